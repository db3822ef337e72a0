package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil)
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h
}

func receive(t *testing.T, c *Connection) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	h := startHub(t)
	c := h.NewConnection(nil)
	assert.NotEmpty(t, c.ID)

	h.Register(c)
	assert.Eventually(t, func() bool { return h.GetConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Unregister(c)
	assert.Eventually(t, func() bool { return h.GetConnectionCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)
}

func TestBroadcastReachesOtherTabsOfSession(t *testing.T) {
	h := startHub(t)
	a, b, other := h.NewConnection(nil), h.NewConnection(nil), h.NewConnection(nil)
	for _, c := range []*Connection{a, b, other} {
		h.Register(c)
	}
	h.BindSession(a, "sess-1")
	h.BindSession(b, "sess-1")
	h.BindSession(other, "sess-2")

	assert.Equal(t, 2, h.GetSessionCount())

	require.NoError(t, h.BroadcastJSON("sess-1", a.ID, map[string]string{"type": "question"}))
	assert.JSONEq(t, `{"type":"question"}`, string(receive(t, b)))
	assert.True(t, b.Behind(), "the other tab is marked")
	assert.False(t, b.Behind(), "the mark clears once read")
	assert.False(t, a.Behind(), "the sender is not marked")

	// Only the session's other tab receives it.
	require.NoError(t, h.BroadcastJSON("sess-2", "", map[string]string{"type": "intro"}))
	assert.JSONEq(t, `{"type":"intro"}`, string(receive(t, other)))
	assert.Empty(t, a.Send)
	assert.Empty(t, b.Send)
}

func TestBindSessionMovesAndUnbinds(t *testing.T) {
	h := startHub(t)
	c := h.NewConnection(nil)
	h.Register(c)

	h.BindSession(c, "sess-1")
	h.BindSession(c, "sess-2")
	assert.Equal(t, "sess-2", c.SessionID)
	assert.Equal(t, 1, h.GetSessionCount())

	h.BindSession(c, "")
	assert.Equal(t, 0, h.GetSessionCount())
	assert.Empty(t, c.SessionID)
}

func TestSendToConnectionBufferFull(t *testing.T) {
	h := NewHub(nil)
	c := h.NewConnection(nil)
	for i := 0; i < cap(c.Send); i++ {
		require.NoError(t, h.SendToConnection(c, []byte("x")))
	}
	assert.ErrorIs(t, h.SendToConnection(c, []byte("x")), ErrBufferFull)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil)
	go h.Run(ctx)

	h.Register(h.NewConnection(nil))
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	// Calls after shutdown return instead of blocking.
	h.Unregister(h.NewConnection(nil))
	h.Broadcast("sess-1", "", []byte("x"))
}
