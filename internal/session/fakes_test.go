package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/triageops/console/internal/domain"
	"github.com/triageops/console/internal/session"
)

var errConnDropped = errors.New("connection dropped")

// scriptConn is a fake transport connection fed by the test.
type scriptConn struct {
	frames   chan []byte
	dropped  chan struct{}
	dropOnce sync.Once
}

func newScriptConn() *scriptConn {
	return &scriptConn{
		frames:  make(chan []byte, 64),
		dropped: make(chan struct{}),
	}
}

func (c *scriptConn) deliver(t *testing.T, frameType string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(session.Frame{Type: frameType, Data: payload})
	require.NoError(t, err)
	c.frames <- raw
}

func (c *scriptConn) deliverEvent(t *testing.T, ev domain.TaskEvent) {
	t.Helper()
	c.deliver(t, "task_event", ev)
}

// drop simulates the server side closing the connection.
func (c *scriptConn) drop() {
	c.dropOnce.Do(func() { close(c.dropped) })
}

func (c *scriptConn) Read(ctx context.Context) ([]byte, error) {
	// Drain delivered frames before honoring a drop so nothing delivered
	// before the drop is lost.
	select {
	case f := <-c.frames:
		return f, nil
	default:
	}
	select {
	case f := <-c.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.dropped:
		return nil, errConnDropped
	}
}

func (c *scriptConn) Write(_ context.Context, _ []byte) error {
	select {
	case <-c.dropped:
		return errConnDropped
	default:
		return nil
	}
}

func (c *scriptConn) Close(_ websocket.StatusCode, _ string) error {
	c.drop()
	return nil
}

type dialResult struct {
	conn *scriptConn
	err  error
}

// scriptDialer hands out scripted connections in order. When the script is
// empty every dial fails.
type scriptDialer struct {
	mu     sync.Mutex
	script []dialResult
	dials  int
}

func (d *scriptDialer) push(conn *scriptConn) {
	d.mu.Lock()
	d.script = append(d.script, dialResult{conn: conn})
	d.mu.Unlock()
}

func (d *scriptDialer) pushErr(err error) {
	d.mu.Lock()
	d.script = append(d.script, dialResult{err: err})
	d.mu.Unlock()
}

func (d *scriptDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *scriptDialer) Dial(_ context.Context, _ string) (session.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.script) == 0 {
		return nil, errors.New("dial refused")
	}
	next := d.script[0]
	d.script = d.script[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.conn, nil
}

// fakePlatform scripts the REST collaborators.
type fakePlatform struct {
	mu         sync.Mutex
	history    []domain.TaskEvent
	historyErr error
	eventsGate chan struct{} // when set, GetEvents blocks until closed
	sendErr    error
	sendGate   chan struct{} // when set, SendChatMessage blocks until closed
	status     domain.SessionStatus
	statusErr  error

	eventsCalls int
	statusCalls int
}

func (p *fakePlatform) setHistory(events []domain.TaskEvent) {
	p.mu.Lock()
	p.history = events
	p.mu.Unlock()
}

func (p *fakePlatform) GetEvents(ctx context.Context, _ string) ([]domain.TaskEvent, error) {
	p.mu.Lock()
	gate := p.eventsGate
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.eventsCalls++
	if p.historyErr != nil {
		return nil, p.historyErr
	}
	out := make([]domain.TaskEvent, len(p.history))
	copy(out, p.history)
	return out, nil
}

func (p *fakePlatform) SendChatMessage(ctx context.Context, sessionID, content string) (*domain.ChatMessage, error) {
	p.mu.Lock()
	gate := p.sendGate
	sendErr := p.sendErr
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	if sendErr != nil {
		return nil, sendErr
	}
	return &domain.ChatMessage{Role: domain.RoleUser, Content: content}, nil
}

func (p *fakePlatform) GetSessionStatus(_ context.Context, _ string) (*domain.SessionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusCalls++
	if p.statusErr != nil {
		return nil, p.statusErr
	}
	status := p.status
	return &status, nil
}

// recordBus captures published envelopes.
type recordBus struct {
	mu   sync.Mutex
	envs []session.Envelope
}

func (b *recordBus) Publish(_ context.Context, _ string, payload []byte) error {
	var env session.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	b.mu.Lock()
	b.envs = append(b.envs, env)
	b.mu.Unlock()
	return nil
}

func (b *recordBus) byType(envType string) []session.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []session.Envelope
	for _, env := range b.envs {
		if env.Type == envType {
			out = append(out, env)
		}
	}
	return out
}

// recordNotifier captures exhaustion notifications.
type recordNotifier struct {
	mu    sync.Mutex
	calls []int // attempts per call
}

func (n *recordNotifier) ReconnectExhausted(_ context.Context, _ string, attempts int) error {
	n.mu.Lock()
	n.calls = append(n.calls, attempts)
	n.mu.Unlock()
	return nil
}

func (n *recordNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
