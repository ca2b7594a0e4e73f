// Package notify surfaces terminal sync conditions to the operator
// out-of-band. The console UI gets its own notification through the
// session stream; this package covers the operator who has walked away
// from the screen during a multi-hour investigation.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Notifier delivers an out-of-band alert when the reconnect budget for a
// session is spent and the console has given up retrying.
type Notifier interface {
	ReconnectExhausted(ctx context.Context, sessionID string, attempts int) error
}

// LogNotifier is the fallback when no messenger is configured.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func (LogNotifier) ReconnectExhausted(_ context.Context, sessionID string, attempts int) error {
	log.Error().
		Str("session_id", sessionID).
		Int("attempts", attempts).
		Msg("session stream lost; reconnect budget exhausted")
	return nil
}

func exhaustedText(sessionID string, attempts int) string {
	return fmt.Sprintf(
		"Lost the live stream for diagnostic session %s after %d reconnect attempts. The console is no longer retrying; reactivate the session to resume.",
		sessionID, attempts,
	)
}
