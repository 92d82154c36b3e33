package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
)

type recordingBus struct {
	mu     sync.Mutex
	topics []string
	msgs   []domain.ChatMessage
}

func (b *recordingBus) Publish(_ context.Context, topic string, v any) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	if m, ok := v.(domain.ChatMessage); ok {
		b.msgs = append(b.msgs, m)
	}
	return 1, nil
}

func newTestBroadcaster(capacity int) (*Broadcaster, *recordingBus) {
	bus := &recordingBus{}
	return NewBroadcaster(capacity, NewSanitizer(500, 50), bus), bus
}

func TestSubmit_Scenario(t *testing.T) {
	b, bus := newTestBroadcaster(300)

	msg, err := b.Submit(context.Background(), "<b>Bob</b>", "hi<script>alert(1)</script>")
	require.NoError(t, err)

	assert.Equal(t, "Bob", msg.DisplayName)
	assert.NotContains(t, msg.Content, "<")
	assert.NotContains(t, strings.ToLower(msg.Content), "script")
	assert.Equal(t, domain.KindChat, msg.Type)
	assert.Len(t, msg.ID, 26)

	require.Len(t, bus.msgs, 1)
	assert.Equal(t, domain.TopicChat, bus.topics[0])
	assert.Equal(t, *msg, bus.msgs[0])
}

func TestSubmit_EmptyContentRejected(t *testing.T) {
	b, bus := newTestBroadcaster(300)

	_, err := b.Submit(context.Background(), "Bob", "   <br/>  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, bus.topics)
}

func TestSubmit_DefaultName(t *testing.T) {
	b, _ := newTestBroadcaster(300)

	msg, err := b.Submit(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, DefaultDisplayName, msg.DisplayName)
}

func TestHistory_BoundedOldestFirst(t *testing.T) {
	b, _ := newTestBroadcaster(300)
	ctx := context.Background()

	for i := 0; i < 350; i++ {
		_, err := b.Submit(ctx, "u", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	h := b.History()
	require.Len(t, h, 300)
	assert.Equal(t, "m50", h[0].Content)
	assert.Equal(t, "m349", h[299].Content)
	for i := 1; i < len(h); i++ {
		assert.Less(t, h[i-1].ID, h[i].ID, "ids sort in insertion order")
	}
}

func TestHistory_IsSnapshot(t *testing.T) {
	b, _ := newTestBroadcaster(3)
	ctx := context.Background()
	_, _ = b.Submit(ctx, "u", "one")

	h := b.History()
	_, _ = b.Submit(ctx, "u", "two")

	require.Len(t, h, 1)
	assert.Equal(t, "one", h[0].Content)
	assert.Equal(t, 2, b.Len())
}

func TestClear(t *testing.T) {
	b, bus := newTestBroadcaster(300)
	ctx := context.Background()
	_, _ = b.Submit(ctx, "u", "one")

	msg := b.Clear(ctx, "admin-1")
	assert.Equal(t, domain.KindSystem, msg.Type)
	assert.Equal(t, domain.SystemName, msg.DisplayName)
	assert.Empty(t, b.History())

	require.Len(t, bus.msgs, 2)
	assert.Equal(t, domain.KindSystem, bus.msgs[1].Type)

	_, _ = b.Submit(ctx, "u", "after")
	h := b.History()
	require.Len(t, h, 1)
	assert.Equal(t, "after", h[0].Content)
}

func TestNewErrorMessage(t *testing.T) {
	b, bus := newTestBroadcaster(300)

	msg := b.NewErrorMessage("Message cannot be empty")
	assert.Equal(t, domain.KindError, msg.Type)
	assert.Equal(t, domain.SystemName, msg.DisplayName)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, bus.topics)
}

func TestSubmit_Concurrent(t *testing.T) {
	b, _ := newTestBroadcaster(50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = b.Submit(ctx, "u", fmt.Sprintf("%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, b.Len())
}
