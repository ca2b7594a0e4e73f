package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triageops/console/internal/domain"
	"github.com/triageops/console/internal/session"
)

func TestUIState_UnreadCountsOnlyWhileClosed(t *testing.T) {
	t.Parallel()

	ui := session.NewUIState()
	assert.Zero(t, ui.Unread())
	assert.False(t, ui.PanelOpen())

	ui.NoteAssistantMessage()
	ui.NoteAssistantMessage()
	assert.Equal(t, 2, ui.Unread())

	ui.SetPanelOpen(true)
	assert.Zero(t, ui.Unread(), "opening the panel clears the counter")

	ui.NoteAssistantMessage()
	assert.Zero(t, ui.Unread(), "messages read live are never unread")

	ui.SetPanelOpen(false)
	ui.NoteAssistantMessage()
	assert.Equal(t, 1, ui.Unread())
}

func TestWaitingForOperator(t *testing.T) {
	t.Parallel()

	assistant := func(content string) domain.ChatMessage {
		return domain.ChatMessage{Role: domain.RoleAssistant, Content: content}
	}
	user := func(content string) domain.ChatMessage {
		return domain.ChatMessage{Role: domain.RoleUser, Content: content}
	}

	question := assistant("Next step")
	question.Metadata = &domain.MessageMetadata{Type: domain.MessageTypeQuestion}

	tests := []struct {
		name     string
		messages []domain.ChatMessage
		want     bool
	}{
		{
			name: "no messages",
		},
		{
			name:     "only user messages",
			messages: []domain.ChatMessage{user("hello?")},
		},
		{
			name:     "trailing question mark",
			messages: []domain.ChatMessage{assistant("Should we escalate?")},
			want:     true,
		},
		{
			name:     "trailing question mark with whitespace",
			messages: []domain.ChatMessage{assistant("Restart the pod?  ")},
			want:     true,
		},
		{
			name:     "confirmation keyword without question mark",
			messages: []domain.ChatMessage{assistant("Please confirm the rollback.")},
			want:     true,
		},
		{
			name:     "shall i phrasing",
			messages: []domain.ChatMessage{assistant("Shall I apply the fix now.")},
			want:     true,
		},
		{
			name:     "plain statement",
			messages: []domain.ChatMessage{assistant("Deployment looks healthy.")},
		},
		{
			name:     "keyword inside a word does not match",
			messages: []domain.ChatMessage{assistant("The confirmation email was sent.")},
		},
		{
			name:     "question metadata overrides content",
			messages: []domain.ChatMessage{question},
			want:     true,
		},
		{
			name: "only the last assistant message counts",
			messages: []domain.ChatMessage{
				assistant("Do you want the full log?"),
				assistant("Never mind, found it."),
			},
		},
		{
			name: "trailing user message does not hide the question",
			messages: []domain.ChatMessage{
				assistant("Approve the restart."),
				user("one sec"),
			},
			want: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, session.WaitingForOperator(tc.messages))
		})
	}
}
