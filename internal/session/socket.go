package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
)

// Conn is a single bidirectional message channel to the platform.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens the platform's per-session stream.
type Dialer interface {
	Dial(ctx context.Context, sessionID string) (Conn, error)
}

// WSDialer dials the platform websocket endpoint at <BaseURL>/<sessionID>.
type WSDialer struct {
	BaseURL string
}

func (d *WSDialer) Dial(ctx context.Context, sessionID string) (Conn, error) {
	u := strings.TrimRight(d.BaseURL, "/") + "/" + url.PathEscape(sessionID)
	c, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("session.WSDialer.Dial: %w", err)
	}
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close(code websocket.StatusCode, reason string) error {
	return w.conn.Close(code, reason)
}

// Socket owns at most one live connection for a session. A second Open while
// a connection is live or a dial is in flight is a no-op, so rapid repeated
// activations cannot race two sockets for the same session. Close is safe to
// call multiple times and from any state.
type Socket struct {
	mu      sync.Mutex
	dialer  Dialer
	conn    Conn
	dialing bool
}

func NewSocket(dialer Dialer) *Socket {
	return &Socket{dialer: dialer}
}

// Open dials the session stream. The returned bool is false when the socket
// is already open or connecting and the call was a no-op.
func (s *Socket) Open(ctx context.Context, sessionID string) (Conn, bool, error) {
	s.mu.Lock()
	if s.conn != nil || s.dialing {
		s.mu.Unlock()
		return nil, false, nil
	}
	s.dialing = true
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx, sessionID)

	s.mu.Lock()
	s.dialing = false
	if err != nil {
		s.mu.Unlock()
		return nil, true, fmt.Errorf("session.Socket.Open: %w", err)
	}
	s.conn = conn
	s.mu.Unlock()
	return conn, true, nil
}

// Close tears down the live connection, if any.
func (s *Socket) Close(code websocket.StatusCode, reason string) {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close(code, reason)
	}
}
