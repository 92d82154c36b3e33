package live

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weiawesome/wes-io-live/live-relay/internal/audit"
	"github.com/weiawesome/wes-io-live/live-relay/internal/config"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	"github.com/weiawesome/wes-io-live/live-relay/internal/kafka"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
)

// Publisher is the topic bus as seen by the machine.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) (int, error)
}

// snapshot pairs a status with the live session it belongs to. Each entry
// into LIVE gets a new epoch.
type snapshot struct {
	status domain.StreamStatus
	epoch  uint64
}

// Machine is the live-session state machine. Writers serialize on mu and
// replace the whole snapshot; readers load it without locking.
type Machine struct {
	mu  sync.Mutex
	cur atomic.Pointer[snapshot]

	epoch     uint64
	lastStart time.Time
	lastTitle string
	lastDesc  string

	cfg      config.LiveConfig
	bus      Publisher
	producer kafka.BroadcastEventProducer
	now      func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithProducer emits broadcast lifecycle events to Kafka.
func WithProducer(p kafka.BroadcastEventProducer) Option {
	return func(m *Machine) { m.producer = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine creates an idle machine.
func NewMachine(cfg config.LiveConfig, bus Publisher, opts ...Option) *Machine {
	m := &Machine{
		cfg: cfg,
		bus: bus,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cur.Store(&snapshot{})
	return m
}

// Status returns the current snapshot.
func (m *Machine) Status() domain.StreamStatus {
	return m.cur.Load().status
}

// Control applies a START, STOP, PAUSE or RESUME action. PAUSE behaves
// exactly like STOP. Action tokens are case-insensitive.
func (m *Machine) Control(ctx context.Context, req domain.ControlRequest) (domain.StreamStatus, error) {
	action := strings.ToUpper(strings.TrimSpace(req.Action))

	m.mu.Lock()
	prev := m.cur.Load()
	var next *snapshot
	switch action {
	case domain.ActionStart:
		next = m.startLocked(req.StreamTitle, req.StreamDescription)
	case domain.ActionStop, domain.ActionPause:
		next = &snapshot{}
	case domain.ActionResume:
		if prev.status.IsLive {
			m.mu.Unlock()
			return prev.status, nil
		}
		next = m.startLocked(m.lastTitle, m.lastDesc)
	default:
		m.mu.Unlock()
		return domain.StreamStatus{}, fmt.Errorf("%w: %q", domain.ErrInvalidAction, req.Action)
	}
	m.cur.Store(next)
	m.publishLocked(ctx, domain.TopicStreamStatus, next.status)
	m.mu.Unlock()

	audit.LogWithDetail(ctx, audit.ActionStreamControl, req.Actor, action, "stream control applied")
	m.emit(ctx, action, req.Actor, prev.status.IsLive, next.status)
	return next.status, nil
}

func (m *Machine) startLocked(title, desc string) *snapshot {
	title = strings.TrimSpace(title)
	if title == "" {
		title = m.cfg.DefaultTitle
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		desc = m.cfg.DefaultDescription
	}
	m.lastTitle, m.lastDesc = title, desc

	// startTime must move forward even with a coarse clock.
	start := m.now()
	if !start.After(m.lastStart) {
		start = m.lastStart.Add(time.Millisecond)
	}
	m.lastStart = start
	m.epoch++

	return &snapshot{
		epoch: m.epoch,
		status: domain.StreamStatus{
			IsLive:            true,
			StreamTitle:       optional(title),
			StreamDescription: optional(desc),
			StartTime:         &start,
			ViewerCount:       0,
			StreamURL:         optional(m.cfg.StreamURL),
		},
	}
}

// AddViewer counts one more viewer of the running session and returns that
// session's epoch. While idle it changes nothing and publishes nothing.
func (m *Machine) AddViewer(ctx context.Context) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.cur.Load()
	if !cur.status.IsLive {
		return 0, false
	}
	m.setCountLocked(ctx, cur, cur.status.ViewerCount+1)
	return cur.epoch, true
}

// RemoveViewer uncounts one viewer of whatever session is running. The
// count never drops below zero.
func (m *Machine) RemoveViewer(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.cur.Load()
	if !cur.status.IsLive || cur.status.ViewerCount == 0 {
		return false
	}
	m.setCountLocked(ctx, cur, cur.status.ViewerCount-1)
	return true
}

// ReleaseViewer uncounts a viewer only if the session it was counted in
// is still running.
func (m *Machine) ReleaseViewer(ctx context.Context, epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.cur.Load()
	if !cur.status.IsLive || cur.epoch != epoch || cur.status.ViewerCount == 0 {
		return false
	}
	m.setCountLocked(ctx, cur, cur.status.ViewerCount-1)
	return true
}

func (m *Machine) isCurrent(epoch uint64) bool {
	cur := m.cur.Load()
	return cur.status.IsLive && cur.epoch == epoch
}

func (m *Machine) setCountLocked(ctx context.Context, cur *snapshot, count int) {
	next := &snapshot{status: cur.status, epoch: cur.epoch}
	next.status.ViewerCount = count
	m.cur.Store(next)
	m.publishLocked(ctx, domain.TopicViewerCount, domain.ViewerCount{ViewerCount: count})
}

// publishLocked runs under mu so subscribers see snapshots in order.
func (m *Machine) publishLocked(ctx context.Context, topic string, v any) {
	if _, err := m.bus.Publish(ctx, topic, v); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldTopic, topic).Msg("failed to publish live status")
	}
}

func (m *Machine) emit(ctx context.Context, action, actor string, wasLive bool, st domain.StreamStatus) {
	if m.producer == nil {
		return
	}

	var err error
	switch {
	case st.IsLive && (action == domain.ActionStart || !wasLive):
		title := ""
		if st.StreamTitle != nil {
			title = *st.StreamTitle
		}
		err = m.producer.ProduceBroadcastStarted(ctx, domain.DefaultRoom, actor, title)
	case !st.IsLive && wasLive:
		reason := kafka.ReasonExplicit
		if action == domain.ActionPause {
			reason = kafka.ReasonPaused
		}
		err = m.producer.ProduceBroadcastStopped(ctx, domain.DefaultRoom, actor, reason)
	}
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to produce broadcast event")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
