package domain

import "encoding/json"

// ConnPhase is the reconnection controller's externally visible state.
type ConnPhase string

const (
	ConnDisconnected ConnPhase = "disconnected"
	ConnConnecting   ConnPhase = "connecting"
	ConnConnected    ConnPhase = "connected"
	ConnReconnecting ConnPhase = "reconnecting"
	ConnExhausted    ConnPhase = "exhausted"
)

// SessionStatus is the platform's summary of a diagnostic session, refreshed
// after terminal task events.
type SessionStatus struct {
	Phase      string  `json:"phase"`
	Confidence float64 `json:"confidence"`
	TokenUsage int     `json:"token_usage"`
}

// Finding is a structured diagnostic result surfaced by a peripheral view.
// The console passes it through without interpreting the detail payload.
type Finding struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	AgentName string          `json:"agent_name"`
	Severity  string          `json:"severity"`
	Title     string          `json:"title"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}
