package chat

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/weiawesome/wes-io-live/live-relay/internal/audit"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
)

// Publisher is the topic bus as seen by the broadcaster.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) (int, error)
}

// Broadcaster keeps the most recent chat messages and publishes each
// accepted message on the chat topic.
type Broadcaster struct {
	mu      sync.Mutex
	ring    []domain.ChatMessage
	head    int // index of the oldest message
	size    int
	entropy io.Reader

	sanitizer *Sanitizer
	bus       Publisher
	now       func() time.Time
}

// NewBroadcaster creates a broadcaster holding up to capacity messages.
func NewBroadcaster(capacity int, sanitizer *Sanitizer, bus Publisher) *Broadcaster {
	if capacity <= 0 {
		capacity = 300
	}
	return &Broadcaster{
		ring:      make([]domain.ChatMessage, capacity),
		entropy:   ulid.Monotonic(rand.Reader, 0),
		sanitizer: sanitizer,
		bus:       bus,
		now:       time.Now,
	}
}

// newIDLocked returns a ULID that sorts after every earlier one.
func (b *Broadcaster) newIDLocked(ts time.Time) string {
	id, err := ulid.New(ulid.Timestamp(ts), b.entropy)
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		b.entropy = ulid.Monotonic(rand.Reader, 0)
		id = ulid.MustNew(ulid.Timestamp(ts), b.entropy)
	}
	return id.String()
}

// Submit sanitizes and stores a chat message, then publishes it. Content
// that is empty after sanitizing fails with ErrValidation.
func (b *Broadcaster) Submit(ctx context.Context, displayName, content string) (*domain.ChatMessage, error) {
	cleaned := b.sanitizer.CleanContent(content)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: message content is empty", domain.ErrValidation)
	}
	name := b.sanitizer.CleanDisplayName(displayName)

	b.mu.Lock()
	defer b.mu.Unlock()

	ts := b.now()
	msg := domain.ChatMessage{
		ID:          b.newIDLocked(ts),
		DisplayName: name,
		Content:     cleaned,
		Timestamp:   ts,
		Type:        domain.KindChat,
	}
	b.appendLocked(msg)
	b.publishLocked(ctx, msg)
	return &msg, nil
}

func (b *Broadcaster) appendLocked(msg domain.ChatMessage) {
	if b.size < len(b.ring) {
		b.ring[(b.head+b.size)%len(b.ring)] = msg
		b.size++
		return
	}
	b.ring[b.head] = msg
	b.head = (b.head + 1) % len(b.ring)
}

func (b *Broadcaster) publishLocked(ctx context.Context, msg domain.ChatMessage) {
	if _, err := b.bus.Publish(ctx, domain.TopicChat, msg); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldTopic, domain.TopicChat).Msg("failed to publish chat message")
	}
}

// History returns a copy of the buffer, oldest first.
func (b *Broadcaster) History() []domain.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.ChatMessage, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	return out
}

// Len returns the number of buffered messages.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Clear empties the buffer and announces it with a SYSTEM message. The
// announcement is published but not stored.
func (b *Broadcaster) Clear(ctx context.Context, actor string) domain.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := b.size
	clear(b.ring)
	b.head, b.size = 0, 0

	ts := b.now()
	msg := domain.ChatMessage{
		ID:          b.newIDLocked(ts),
		DisplayName: domain.SystemName,
		Content:     "Chat history was cleared",
		Timestamp:   ts,
		Type:        domain.KindSystem,
	}
	b.publishLocked(ctx, msg)

	audit.LogWithDetail(ctx, audit.ActionChatClear, actor, fmt.Sprintf("%d messages", removed), "chat history cleared")
	return msg
}

// NewErrorMessage builds an ERROR message from System for a rejected
// submission. It is never stored or published.
func (b *Broadcaster) NewErrorMessage(text string) domain.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := b.now()
	return domain.ChatMessage{
		ID:          b.newIDLocked(ts),
		DisplayName: domain.SystemName,
		Content:     text,
		Timestamp:   ts,
		Type:        domain.KindError,
	}
}
