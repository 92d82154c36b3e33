package topic

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/pubsub"
)

// Sender delivers a frame to one connection without blocking.
type Sender interface {
	Send(connID string, data []byte) error
}

type exportItem struct {
	topic string
	data  json.RawMessage
}

// Bus fans out publishes to every connection subscribed to a topic.
// When an exporter is set, publishes are also mirrored to it from a
// background queue so exporter I/O never stalls delivery.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]struct{} // topic -> connID set
	byConn map[string]map[string]struct{} // connID -> topic set

	sender   Sender
	exporter pubsub.Publisher
	source   string
	queue    chan exportItem
}

// Option configures a Bus.
type Option func(*Bus)

// WithExporter mirrors every publish to p on channel relay:topic:<topic>.
func WithExporter(p pubsub.Publisher, source string, queueSize int) Option {
	return func(b *Bus) {
		if p == nil {
			return
		}
		if queueSize <= 0 {
			queueSize = 1024
		}
		b.exporter = p
		b.source = source
		b.queue = make(chan exportItem, queueSize)
	}
}

// NewBus creates a bus delivering through sender.
func NewBus(sender Sender, opts ...Option) *Bus {
	b := &Bus{
		topics: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
		sender: sender,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe adds conn to topic. Subscribing twice is a no-op.
func (b *Bus) Subscribe(topic, conn string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]struct{})
		b.topics[topic] = subs
	}
	subs[conn] = struct{}{}

	topics, ok := b.byConn[conn]
	if !ok {
		topics = make(map[string]struct{})
		b.byConn[conn] = topics
	}
	topics[topic] = struct{}{}
}

// Unsubscribe removes conn from topic.
func (b *Bus) Unsubscribe(topic, conn string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(topic, conn)
}

// UnsubscribeAll removes conn from every topic.
func (b *Bus) UnsubscribeAll(conn string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic := range b.byConn[conn] {
		b.removeLocked(topic, conn)
	}
}

func (b *Bus) removeLocked(topic, conn string) {
	if subs, ok := b.topics[topic]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	if topics, ok := b.byConn[conn]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(b.byConn, conn)
		}
	}
}

// Subscribers returns the connections subscribed to topic, sorted.
func (b *Bus) Subscribers(topic string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.topics[topic]))
	for id := range b.topics[topic] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stats returns the subscriber count per topic.
func (b *Bus) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]int, len(b.topics))
	for topic, subs := range b.topics {
		out[topic] = len(subs)
	}
	return out
}

// Publish marshals v once and delivers it to every current subscriber of
// topic. A failed delivery is logged and does not affect the others. It
// returns the number of subscribers that accepted the frame.
func (b *Bus) Publish(ctx context.Context, topic string, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	frame, err := json.Marshal(domain.EventFrame{Type: domain.FrameEvent, Topic: topic, Data: data})
	if err != nil {
		return 0, err
	}

	subs := b.Subscribers(topic)

	l := pkglog.Ctx(ctx)
	delivered := 0
	for _, id := range subs {
		if err := b.sender.Send(id, frame); err != nil {
			l.Debug().Err(err).Str(pkglog.FieldTopic, topic).Str(pkglog.FieldConnID, id).Msg("topic delivery failed")
			continue
		}
		delivered++
	}

	b.export(ctx, topic, data)
	return delivered, nil
}

func (b *Bus) export(ctx context.Context, topic string, data json.RawMessage) {
	if b.queue == nil {
		return
	}
	select {
	case b.queue <- exportItem{topic: topic, data: data}:
	default:
		l := pkglog.Ctx(ctx)
		l.Warn().Str(pkglog.FieldTopic, topic).Msg("export queue full, event dropped")
	}
}

// Run forwards queued publishes to the exporter until ctx is done. It
// returns immediately when no exporter is configured.
func (b *Bus) Run(ctx context.Context) {
	if b.queue == nil {
		return
	}
	l := pkglog.L()
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-b.queue:
			ev, err := pubsub.NewEvent(pubsub.EventTopicPublish, item.topic, item.data)
			if err != nil {
				l.Warn().Err(err).Str(pkglog.FieldTopic, item.topic).Msg("failed to build topic event")
				continue
			}
			ev.Source = b.source
			if err := b.exporter.Publish(ctx, pubsub.TopicChannel(item.topic), ev); err != nil {
				l.Warn().Err(err).Str(pkglog.FieldTopic, item.topic).Msg("failed to export topic event")
			}
		}
	}
}
