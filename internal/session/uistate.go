package session

import (
	"regexp"
	"strings"
	"sync"

	"github.com/triageops/console/internal/domain"
)

// confirmPattern matches assistant phrasing that asks the operator for a
// decision without a trailing question mark.
var confirmPattern = regexp.MustCompile(`(?i)\b(confirm|approve|proceed|shall i|should i|do you want|would you like|yes or no|y/n)\b`)

// WaitingForOperator reports whether the last assistant message is asking
// the operator for input. Derived from the message list on every call, never
// cached across sessions.
func WaitingForOperator(messages []domain.ChatMessage) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != domain.RoleAssistant {
			continue
		}
		if msg.Metadata != nil && msg.Metadata.Type == domain.MessageTypeQuestion {
			return true
		}
		content := strings.TrimSpace(msg.Content)
		return strings.HasSuffix(content, "?") || confirmPattern.MatchString(content)
	}
	return false
}

// UIState tracks the slow-moving presentation flags for one session: the
// chat panel drawer and the unread counter. It is deliberately separate from
// the streaming buffer so a per-token update does not touch it.
type UIState struct {
	mu        sync.Mutex
	panelOpen bool
	unread    int
}

func NewUIState() *UIState {
	return &UIState{}
}

// NoteAssistantMessage counts one assistant message as unread while the
// panel is closed.
func (u *UIState) NoteAssistantMessage() {
	u.mu.Lock()
	if !u.panelOpen {
		u.unread++
	}
	u.mu.Unlock()
}

// SetPanelOpen opens or closes the chat panel. Opening clears the unread
// counter.
func (u *UIState) SetPanelOpen(open bool) {
	u.mu.Lock()
	u.panelOpen = open
	if open {
		u.unread = 0
	}
	u.mu.Unlock()
}

// PanelOpen reports whether the chat panel is open.
func (u *UIState) PanelOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.panelOpen
}

// Unread returns the count of assistant messages appended since the panel
// was last open.
func (u *UIState) Unread() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.unread
}
