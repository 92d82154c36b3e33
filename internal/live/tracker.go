package live

import (
	"context"
	"sync"
)

// Tracker counts each connection as a viewer at most once per live session
// and uncounts it when the connection leaves or closes.
type Tracker struct {
	machine *Machine

	mu      sync.Mutex
	counted map[string]uint64 // connID -> epoch
}

// NewTracker creates a tracker over m.
func NewTracker(m *Machine) *Tracker {
	return &Tracker{machine: m, counted: make(map[string]uint64)}
}

// Join counts conn as a viewer of the running session. It reports false
// when idle or when conn is already counted.
func (t *Tracker) Join(ctx context.Context, conn string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if epoch, ok := t.counted[conn]; ok && t.machine.isCurrent(epoch) {
		return false
	}
	epoch, ok := t.machine.AddViewer(ctx)
	if !ok {
		delete(t.counted, conn)
		return false
	}
	t.counted[conn] = epoch
	return true
}

// Leave uncounts conn. It reports whether the live count changed.
func (t *Tracker) Leave(ctx context.Context, conn string) bool {
	t.mu.Lock()
	epoch, ok := t.counted[conn]
	delete(t.counted, conn)
	t.mu.Unlock()

	if !ok {
		return false
	}
	return t.machine.ReleaseViewer(ctx, epoch)
}
