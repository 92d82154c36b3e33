package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/weiawesome/wes-io-live/live-relay/internal/config"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
)

const shardCount = 32

// DisconnectHook is called after a connection has been removed from the
// registry.
type DisconnectHook func(connID string)

type shard struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// Registry tracks open connections by id. Sends hold a shard read lock and
// never block; Unregister closes a client's Send channel under the shard
// write lock, so no send can race the close.
type Registry struct {
	shards [shardCount]shard
	config config.WebSocketConfig

	hooksMu sync.RWMutex
	hooks   []DisconnectHook
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg config.WebSocketConfig) *Registry {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	r := &Registry{config: cfg}
	for i := range r.shards {
		r.shards[i].clients = make(map[string]*Client)
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	return &r.shards[xxhash.Sum64String(id)%shardCount]
}

// OnDisconnect adds a hook run synchronously by the first Unregister of a
// connection, before Unregister returns. Release runs hooks again, so they
// must be idempotent.
func (r *Registry) OnDisconnect(hook DisconnectHook) {
	r.hooksMu.Lock()
	r.hooks = append(r.hooks, hook)
	r.hooksMu.Unlock()
}

// Register adds c and returns its id. A client without an id gets a fresh one.
func (r *Registry) Register(c *Client) string {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	s := r.shardFor(c.ID)
	s.mu.Lock()
	s.clients[c.ID] = c
	s.mu.Unlock()

	l := pkglog.L()
	l.Debug().Str(pkglog.FieldConnID, c.ID).Msg("connection registered")
	return c.ID
}

// Unregister removes the connection and runs disconnect hooks. Unknown or
// already-removed ids are a no-op.
func (r *Registry) Unregister(id string) {
	if r.remove(id) {
		r.runHooks(id)
	}
}

// Release is the final cleanup of a connection whose read loop has ended.
// Unlike Unregister it always runs the hooks: an evicted connection may
// have handled frames after its first cleanup, and those must be undone.
func (r *Registry) Release(id string) {
	r.remove(id)
	r.runHooks(id)
}

func (r *Registry) remove(id string) bool {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
		close(c.Send)
	}
	return ok
}

func (r *Registry) runHooks(id string) {
	r.hooksMu.RLock()
	hooks := r.hooks
	r.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(id)
	}

	l := pkglog.L()
	l.Debug().Str(pkglog.FieldConnID, id).Msg("connection unregistered")
}

// IsOpen reports whether id is registered.
func (r *Registry) IsOpen(id string) bool {
	s := r.shardFor(id)
	s.mu.RLock()
	_, ok := s.clients[id]
	s.mu.RUnlock()
	return ok
}

// Send enqueues data for id without blocking. A connection whose buffer is
// full is treated as dead: it is unregistered in the background and the
// send fails with ErrConnectionClosed.
func (r *Registry) Send(id string, data []byte) error {
	s := r.shardFor(id)
	s.mu.RLock()
	c, ok := s.clients[id]
	if !ok {
		s.mu.RUnlock()
		return fmt.Errorf("send to %s: %w", id, domain.ErrConnectionClosed)
	}
	select {
	case c.Send <- data:
		s.mu.RUnlock()
		return nil
	default:
		s.mu.RUnlock()
	}

	l := pkglog.L()
	l.Warn().Str(pkglog.FieldConnID, id).Msg("send buffer full, closing connection")
	go r.Unregister(id)
	return fmt.Errorf("send to %s: buffer full: %w", id, domain.ErrConnectionClosed)
}

// SendJSON marshals v and sends it to id.
func (r *Registry) SendJSON(id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Send(id, data)
}

// Count returns the number of open connections.
func (r *Registry) Count() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		n += len(s.clients)
		s.mu.RUnlock()
	}
	return n
}
