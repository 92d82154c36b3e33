package hub

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/wes-io-live/live-relay/internal/config"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
)

func newTestRegistry(buffer int) *Registry {
	return NewRegistry(config.WebSocketConfig{SendBuffer: buffer})
}

func TestRegister_AssignsID(t *testing.T) {
	reg := newTestRegistry(4)

	id := reg.Register(NewClient("", reg, nil))
	assert.NotEmpty(t, id)
	assert.True(t, reg.IsOpen(id))

	other := reg.Register(NewClient("", reg, nil))
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, reg.Count())
}

func TestSend_DeliversToClient(t *testing.T) {
	reg := newTestRegistry(4)
	c := NewClient("c1", reg, nil)
	reg.Register(c)

	require.NoError(t, reg.Send("c1", []byte("hello")))

	select {
	case msg := <-c.Send:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestSend_UnknownConnection(t *testing.T) {
	reg := newTestRegistry(4)
	err := reg.Send("ghost", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrConnectionClosed)
}

func TestUnregister_Idempotent(t *testing.T) {
	reg := newTestRegistry(4)
	var calls int32
	reg.OnDisconnect(func(id string) {
		atomic.AddInt32(&calls, 1)
	})

	c := NewClient("c1", reg, nil)
	reg.Register(c)

	reg.Unregister("c1")
	reg.Unregister("c1")
	reg.Unregister("never-registered")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, reg.IsOpen("c1"))

	_, ok := <-c.Send
	assert.False(t, ok, "send channel should be closed")

	assert.ErrorIs(t, reg.Send("c1", []byte("x")), domain.ErrConnectionClosed)
}

func TestUnregister_HooksRunBeforeReturn(t *testing.T) {
	reg := newTestRegistry(4)
	var seen string
	reg.OnDisconnect(func(id string) {
		seen = id
	})

	reg.Register(NewClient("c1", reg, nil))
	reg.Unregister("c1")

	assert.Equal(t, "c1", seen)
}

func TestSend_FullBufferEvicts(t *testing.T) {
	reg := newTestRegistry(1)
	done := make(chan string, 1)
	reg.OnDisconnect(func(id string) {
		done <- id
	})

	reg.Register(NewClient("slow", reg, nil))
	require.NoError(t, reg.Send("slow", []byte("1")))

	err := reg.Send("slow", []byte("2"))
	assert.ErrorIs(t, err, domain.ErrConnectionClosed)

	select {
	case id := <-done:
		assert.Equal(t, "slow", id)
	case <-time.After(time.Second):
		t.Fatal("slow connection was not evicted")
	}
	assert.False(t, reg.IsOpen("slow"))
}

func TestConcurrentSendAndUnregister(t *testing.T) {
	reg := newTestRegistry(1024)
	for i := 0; i < 50; i++ {
		reg.Register(NewClient("", reg, nil))
	}

	ids := make([]string, 0, 50)
	for i := range reg.shards {
		for id := range reg.shards[i].clients {
			ids = append(ids, id)
		}
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = reg.Send(id, []byte("x"))
			}
		}(id)
		go func(id string) {
			defer wg.Done()
			reg.Unregister(id)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 0, reg.Count())
}

func TestRelease_RunsHooksAfterEviction(t *testing.T) {
	reg := newTestRegistry(1)
	var calls int32
	reg.OnDisconnect(func(id string) {
		atomic.AddInt32(&calls, 1)
	})

	reg.Register(NewClient("slow", reg, nil))
	require.NoError(t, reg.Send("slow", []byte("1")))
	require.Error(t, reg.Send("slow", []byte("2")))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	// The read loop ending still cleans up once more.
	reg.Release("slow")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.False(t, reg.IsOpen("slow"))
}

func TestRelease_OpenConnection(t *testing.T) {
	reg := newTestRegistry(4)
	var calls int32
	reg.OnDisconnect(func(id string) {
		atomic.AddInt32(&calls, 1)
	})

	c := NewClient("c1", reg, nil)
	reg.Register(c)
	reg.Release("c1")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, reg.IsOpen("c1"))
	_, ok := <-c.Send
	assert.False(t, ok)
}
