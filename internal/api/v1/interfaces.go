package v1

import (
	"context"
	"encoding/json"

	"github.com/triageops/console/internal/domain"
	"github.com/triageops/console/internal/session"
)

// SessionManager is the sync-core surface the console API drives.
type SessionManager interface {
	Activate(sessionID string) *session.Session
	Deactivate()
	Get(sessionID string) (*session.Session, error)
}

// PlatformClient is the subset of the platform REST client proxied to
// peripheral console views.
type PlatformClient interface {
	GetSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error)
	ListFindings(ctx context.Context, sessionID string) ([]domain.Finding, error)
	GetProposedFix(ctx context.Context, sessionID string) (json.RawMessage, error)
	RunPromQLQuery(ctx context.Context, query string) (json.RawMessage, error)
}
