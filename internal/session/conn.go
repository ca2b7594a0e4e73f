package session

import (
	"sync"
	"time"

	"github.com/triageops/console/internal/domain"
)

// BackoffPolicy bounds automatic reconnection.
type BackoffPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// DefaultBackoff matches the platform's recommended client behavior.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Base:        time.Second,
		Cap:         15 * time.Second,
		MaxAttempts: 10,
	}
}

// Delay returns the reconnect delay for the given zero-based attempt:
// min(base * 2^attempt, cap). Delays are non-decreasing up to the cap.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.Cap || d <= 0 {
			return p.Cap
		}
	}
	if d > p.Cap {
		return p.Cap
	}
	return d
}

// Controller tracks the reconnection state machine for one session:
//
//	disconnected -> connecting -> connected -> reconnecting -> connecting -> ... -> exhausted
//
// The attempt counter increments each time a reconnect is scheduled and
// resets to zero on the first successful open after at least one failure.
type Controller struct {
	mu        sync.Mutex
	policy    BackoffPolicy
	phase     domain.ConnPhase
	attempts  int
	replaying bool

	onPhase func(domain.ConnPhase)
}

// NewController creates a controller in the disconnected phase. onPhase, if
// non-nil, is invoked outside the controller lock on every phase change.
func NewController(policy BackoffPolicy, onPhase func(domain.ConnPhase)) *Controller {
	return &Controller{
		policy:  policy,
		phase:   domain.ConnDisconnected,
		onPhase: onPhase,
	}
}

func (c *Controller) setPhase(p domain.ConnPhase) {
	c.mu.Lock()
	changed := c.phase != p
	c.phase = p
	fn := c.onPhase
	c.mu.Unlock()

	if changed && fn != nil {
		fn(p)
	}
}

// Connecting marks a dial in progress.
func (c *Controller) Connecting() {
	c.setPhase(domain.ConnConnecting)
}

// Opened records a successful open. It returns true when this open recovered
// from at least one failed or dropped connection, which is the trigger for
// an event-log replay. The attempt counter resets here and nowhere else.
func (c *Controller) Opened() bool {
	c.mu.Lock()
	recovered := c.attempts > 0
	c.attempts = 0
	c.mu.Unlock()

	c.setPhase(domain.ConnConnected)
	return recovered
}

// ScheduleRetry consumes one reconnect attempt. It returns the delay to wait
// before the next dial and false once the attempt budget is spent, at which
// point the controller is terminal: no further retries are allowed.
func (c *Controller) ScheduleRetry() (time.Duration, bool) {
	c.mu.Lock()
	if c.attempts >= c.policy.MaxAttempts {
		c.mu.Unlock()
		c.setPhase(domain.ConnExhausted)
		return 0, false
	}
	delay := c.policy.Delay(c.attempts)
	c.attempts++
	c.mu.Unlock()

	c.setPhase(domain.ConnReconnecting)
	return delay, true
}

// Disconnected marks a clean teardown (session switch or shutdown).
// Exhausted is terminal and stays exhausted.
func (c *Controller) Disconnected() {
	c.mu.Lock()
	if c.phase == domain.ConnExhausted {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.setPhase(domain.ConnDisconnected)
}

// SetReplaying flags that a replay fetch is in flight.
func (c *Controller) SetReplaying(v bool) {
	c.mu.Lock()
	c.replaying = v
	c.mu.Unlock()
}

// Phase returns the current connection phase.
func (c *Controller) Phase() domain.ConnPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Attempts returns the number of reconnect attempts consumed since the last
// successful open.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Replaying reports whether a replay fetch is in flight.
func (c *Controller) Replaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaying
}
