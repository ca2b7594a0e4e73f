package v1_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/triageops/console/internal/domain"
	"github.com/triageops/console/internal/session"
)

// ---------------------------------------------------------------------------
// Sync-core fakes — a real session.Manager over stubbed collaborators
// ---------------------------------------------------------------------------

// stubConn blocks on Read until the session context is torn down.
type stubConn struct{}

func (stubConn) Read(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stubConn) Write(_ context.Context, _ []byte) error { return nil }

func (stubConn) Close(_ websocket.StatusCode, _ string) error { return nil }

type stubDialer struct{}

func (stubDialer) Dial(_ context.Context, _ string) (session.Conn, error) {
	return stubConn{}, nil
}

type stubPlatform struct {
	sendErr error
}

func (p *stubPlatform) GetEvents(_ context.Context, _ string) ([]domain.TaskEvent, error) {
	return nil, nil
}

func (p *stubPlatform) SendChatMessage(_ context.Context, _, content string) (*domain.ChatMessage, error) {
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	return &domain.ChatMessage{Role: domain.RoleUser, Content: content}, nil
}

func (p *stubPlatform) GetSessionStatus(_ context.Context, _ string) (*domain.SessionStatus, error) {
	return &domain.SessionStatus{}, nil
}

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := session.NewManager(ctx, stubDialer{}, &stubPlatform{}, nil, nil, session.BackoffPolicy{
		Base:        time.Millisecond,
		Cap:         time.Millisecond,
		MaxAttempts: 1,
	})
	t.Cleanup(m.Deactivate)
	return m
}

// ---------------------------------------------------------------------------
// Mock PlatformClient for the query proxies
// ---------------------------------------------------------------------------

type mockPlatformClient struct {
	getStatusFunc    func(ctx context.Context, sessionID string) (*domain.SessionStatus, error)
	listFindingsFunc func(ctx context.Context, sessionID string) ([]domain.Finding, error)
	getFixFunc       func(ctx context.Context, sessionID string) (json.RawMessage, error)
	promQLFunc       func(ctx context.Context, query string) (json.RawMessage, error)
}

func (m *mockPlatformClient) GetSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	return m.getStatusFunc(ctx, sessionID)
}

func (m *mockPlatformClient) ListFindings(ctx context.Context, sessionID string) ([]domain.Finding, error) {
	return m.listFindingsFunc(ctx, sessionID)
}

func (m *mockPlatformClient) GetProposedFix(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return m.getFixFunc(ctx, sessionID)
}

func (m *mockPlatformClient) RunPromQLQuery(ctx context.Context, query string) (json.RawMessage, error) {
	return m.promQLFunc(ctx, query)
}
