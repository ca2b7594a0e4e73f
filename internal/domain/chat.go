package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType carries a structured intent on an assistant message, consumed
// by UI affordances (confirmation prompts, error markers, fix proposals).
type MessageType string

const (
	MessageTypeQuestion MessageType = "question"
	MessageTypeError    MessageType = "error"
	MessageTypeFix      MessageType = "fix_proposal"
)

// MessageMetadata is optional structured data attached to a chat message.
type MessageMetadata struct {
	Type       MessageType `json:"type,omitempty"`
	NewPhase   string      `json:"new_phase,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
}

// ChatMessage is a finalized chat entry, immutable once appended to a
// session's message list.
type ChatMessage struct {
	ID        uuid.UUID        `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// StreamingBuffer accumulates partial assistant output for the one
// in-flight reply a session may have. It is ephemeral: finishing the stream
// replaces it with a finalized ChatMessage and it is never persisted.
type StreamingBuffer struct {
	IsStreaming bool      `json:"is_streaming"`
	Content     string    `json:"content"`
	MessageID   uuid.UUID `json:"message_id"`
}
