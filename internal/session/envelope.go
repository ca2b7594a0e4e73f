package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/triageops/console/internal/domain"
)

// Envelope is the fan-out wire format published to the browser-facing
// stream. Data payloads are the typed structs below.
type Envelope struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EnvelopeTaskEvent   = "task_event"
	EnvelopeChatMessage = "chat_message"
	EnvelopeChatChunk   = "chat_chunk"
	EnvelopeConnState   = "conn_state"
	EnvelopeStatus      = "status"
	EnvelopeReplay      = "replay"
	EnvelopeExhausted   = "exhausted"
)

// StreamUpdate is the chat_chunk payload: the new fragment plus the
// accumulated buffer so a late-joining view can catch up without replaying
// every token.
type StreamUpdate struct {
	MessageID uuid.UUID `json:"message_id"`
	Delta     string    `json:"delta"`
	Content   string    `json:"content"`
}

// ConnUpdate is the conn_state payload.
type ConnUpdate struct {
	Phase    domain.ConnPhase `json:"phase"`
	Attempts int              `json:"attempts"`
}

// ReplayNotice is the replay payload; views refetch the event list when the
// spliced count is nonzero.
type ReplayNotice struct {
	Spliced int `json:"spliced"`
	Total   int `json:"total"`
}
