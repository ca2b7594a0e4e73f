package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/triageops/console/internal/domain"
)

// Manager owns the single active session. Activating a new session id tears
// the previous one down completely — socket, pending reconnect timers,
// event log, chat buffers — before the new state goes live, so no two
// sessions' state is ever live simultaneously and a stale socket can never
// deliver events attributed to the new session.
type Manager struct {
	ctx      context.Context
	dialer   Dialer
	platform Platform
	bus      Broadcaster
	notifier Notifier
	policy   BackoffPolicy

	mu     sync.Mutex
	active *Session
}

// NewManager creates a Manager. ctx is the process-lifetime context; every
// session's context derives from it so shutdown tears the active session
// down. notifier may be nil.
func NewManager(ctx context.Context, dialer Dialer, platform Platform, bus Broadcaster, notifier Notifier, policy BackoffPolicy) *Manager {
	return &Manager{
		ctx:      ctx,
		dialer:   dialer,
		platform: platform,
		bus:      bus,
		notifier: notifier,
		policy:   policy,
	}
}

// Activate makes sessionID the active session and starts its connection
// loop. Re-activating the current session while its connection is live or
// pending is a no-op so rapid repeated activations cannot race duplicate
// sockets.
func (m *Manager) Activate(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.id == sessionID && m.active.ctx.Err() == nil {
		if phase := m.active.ctrl.Phase(); phase != domain.ConnExhausted {
			return m.active
		}
		// Exhausted sessions restart with a fresh attempt budget on an
		// explicit activation.
	}

	if m.active != nil {
		log.Info().Str("session_id", m.active.id).Msg("deactivating session")
		m.active.Close()
	}

	s := newSession(m.ctx, sessionID, m.dialer, m.platform, m.bus, m.notifier, m.policy)
	m.active = s
	go s.run()

	log.Info().Str("session_id", sessionID).Msg("session activated")
	return s
}

// Deactivate tears down the active session, if any. Called when the
// operator returns home.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}
	log.Info().Str("session_id", m.active.id).Msg("deactivating session")
	m.active.Close()
	m.active = nil
}

// Active returns the active session, or false when none is.
func (m *Manager) Active() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Get returns the active session if it matches sessionID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.id != sessionID {
		return nil, domain.ErrNoSession
	}
	return m.active, nil
}
