package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/triageops/console/internal/domain"
)

// StatusSink receives phase/confidence updates carried on finalized
// assistant messages.
type StatusSink interface {
	PhaseChanged(phase string, confidence float64)
}

// Engine is the chat streaming state machine. It is either idle or
// streaming: a stream starts on the first chunk, accumulates chunk text in
// arrival order, and finishing the stream atomically replaces the ephemeral
// buffer with a finalized assistant message. Finalized messages are
// immutable once appended.
type Engine struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
	buf      domain.StreamingBuffer
	status   StatusSink
}

// NewEngine creates an idle engine. status may be nil.
func NewEngine(status StatusSink) *Engine {
	return &Engine{status: status}
}

// Start allocates a fresh streaming buffer. A second Start before the
// current stream finishes is a no-op; each assistant reply gets exactly one
// buffer id. Returns false when the call was a no-op.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() bool {
	if e.buf.IsStreaming {
		return false
	}
	e.buf = domain.StreamingBuffer{
		IsStreaming: true,
		MessageID:   uuid.New(),
	}
	return true
}

// AppendChunk concatenates one chunk to the live buffer, starting a stream
// if none is in flight. Chunks are applied strictly in call order.
func (e *Engine) AppendChunk(text string) {
	e.mu.Lock()
	if !e.buf.IsStreaming {
		e.startLocked()
	}
	e.buf.Content += text
	e.mu.Unlock()
}

// FinishStream finalizes the in-flight reply. When full is empty the
// accumulated buffer content is used. The buffer is cleared and the engine
// returns to idle; a phase update on the metadata is propagated to the
// status sink.
func (e *Engine) FinishStream(full string, meta *domain.MessageMetadata) domain.ChatMessage {
	e.mu.Lock()
	content := full
	if content == "" {
		content = e.buf.Content
	}
	id := e.buf.MessageID
	if id == uuid.Nil {
		id = uuid.New()
	}
	msg := domain.ChatMessage{
		ID:        id,
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	}
	e.messages = append(e.messages, msg)
	e.buf = domain.StreamingBuffer{}
	sink := e.status
	e.mu.Unlock()

	if meta != nil && meta.NewPhase != "" && sink != nil {
		sink.PhaseChanged(meta.NewPhase, meta.Confidence)
	}
	return msg
}

// AppendAssistant appends a complete, non-streamed assistant message. Any
// in-flight buffer is discarded: a finalized message supersedes it.
func (e *Engine) AppendAssistant(msg domain.ChatMessage) domain.ChatMessage {
	e.mu.Lock()
	msg.Role = domain.RoleAssistant
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	e.messages = append(e.messages, msg)
	e.buf = domain.StreamingBuffer{}
	sink := e.status
	e.mu.Unlock()

	if msg.Metadata != nil && msg.Metadata.NewPhase != "" && sink != nil {
		sink.PhaseChanged(msg.Metadata.NewPhase, msg.Metadata.Confidence)
	}
	return msg
}

// AppendUser appends the operator's message optimistically, before the send
// request resolves.
func (e *Engine) AppendUser(content string) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:        uuid.New(),
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	e.mu.Lock()
	e.messages = append(e.messages, msg)
	e.mu.Unlock()
	return msg
}

// Messages returns a copy of the finalized message list in append order.
func (e *Engine) Messages() []domain.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ChatMessage, len(e.messages))
	copy(out, e.messages)
	return out
}

// Buffer returns the current streaming buffer snapshot.
func (e *Engine) Buffer() domain.StreamingBuffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf
}

// Reset forces the engine back to idle with an empty buffer and message
// list. Used on session switch so no buffer can be attributed to the wrong
// session.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.messages = nil
	e.buf = domain.StreamingBuffer{}
	e.mu.Unlock()
}
