package domain

import (
	"encoding/json"
	"time"
)

// EventType tags a task event. The set is open: backend agents may emit
// types this client has never seen, and the client must carry them through
// untouched.
type EventType string

const (
	EventStarted     EventType = "started"
	EventSummary     EventType = "summary"
	EventSuccess     EventType = "success"
	EventError       EventType = "error"
	EventFinding     EventType = "finding"
	EventPhaseChange EventType = "phase_change"
)

// Terminal reports whether the event type ends an agent's work and should
// trigger a session status refresh.
func (t EventType) Terminal() bool {
	return t == EventSuccess || t == EventError
}

// TaskEvent is a discrete progress or finding notification emitted by a
// backend diagnostic agent. Events are totally ordered per session by
// arrival order; the server is the ordering authority and the client never
// reorders them.
type TaskEvent struct {
	SessionID string          `json:"session_id"`
	AgentName string          `json:"agent_name"`
	EventType EventType       `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
