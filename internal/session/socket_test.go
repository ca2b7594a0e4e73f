package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triageops/console/internal/session"
)

// blockingDialer parks every Dial until released, signalling entry so tests
// can sequence against the pending dial.
type blockingDialer struct {
	entered chan struct{}
	release chan struct{}
	conn    *scriptConn
	once    sync.Once
}

func (d *blockingDialer) Dial(ctx context.Context, _ string) (session.Conn, error) {
	d.once.Do(func() { close(d.entered) })
	select {
	case <-d.release:
		return d.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSocket_OpenOnce(t *testing.T) {
	t.Parallel()

	dialer := &scriptDialer{}
	dialer.push(newScriptConn())
	socket := session.NewSocket(dialer)

	conn, ok, err := socket.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, conn)

	// A second open while the connection is live is a no-op.
	conn2, ok, err := socket.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, conn2)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestSocket_OpenWhileConnectingIsNoop(t *testing.T) {
	t.Parallel()

	dialer := &blockingDialer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		conn:    newScriptConn(),
	}
	socket := session.NewSocket(dialer)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, ok, err := socket.Open(context.Background(), "sess-1")
		assert.NoError(t, err)
		assert.True(t, ok)
	}()

	// Wait for the first dial to park, then run a second open against it.
	<-dialer.entered
	conn, ok, err := socket.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, ok, "open during a pending dial must be a no-op")
	assert.Nil(t, conn)

	close(dialer.release)
	wg.Wait()
}

func TestSocket_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := newScriptConn()
	dialer := &scriptDialer{}
	dialer.push(conn)
	socket := session.NewSocket(dialer)

	_, ok, err := socket.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	require.True(t, ok)

	socket.Close(websocket.StatusNormalClosure, "bye")
	socket.Close(websocket.StatusNormalClosure, "bye again")
	socket.Close(websocket.StatusGoingAway, "and again")
}

func TestSocket_ReopenAfterClose(t *testing.T) {
	t.Parallel()

	dialer := &scriptDialer{}
	dialer.push(newScriptConn())
	dialer.push(newScriptConn())
	socket := session.NewSocket(dialer)

	_, ok, err := socket.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	require.True(t, ok)

	socket.Close(websocket.StatusNormalClosure, "reconnect")

	conn, ok, err := socket.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, conn)
	assert.Equal(t, 2, dialer.dialCount())
}

func TestSocket_DialErrorLeavesSocketReusable(t *testing.T) {
	t.Parallel()

	dialer := &scriptDialer{}
	dialer.pushErr(assert.AnError)
	dialer.push(newScriptConn())
	socket := session.NewSocket(dialer)

	_, ok, err := socket.Open(context.Background(), "sess-1")
	require.Error(t, err)
	require.True(t, ok, "a failed dial is an attempted open, not a no-op")

	conn, ok, err := socket.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, conn)
}
