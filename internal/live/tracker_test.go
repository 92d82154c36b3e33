package live

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
)

func TestTracker_CountsOncePerConnection(t *testing.T) {
	m, _ := newTestMachine()
	tr := NewTracker(m)
	ctx := context.Background()

	assert.False(t, tr.Join(ctx, "a"), "idle join is not counted")

	_, _ = m.Control(ctx, domain.ControlRequest{Action: "START"})
	assert.True(t, tr.Join(ctx, "a"))
	assert.False(t, tr.Join(ctx, "a"))
	assert.True(t, tr.Join(ctx, "b"))
	assert.Equal(t, 2, m.Status().ViewerCount)

	assert.True(t, tr.Leave(ctx, "a"))
	assert.False(t, tr.Leave(ctx, "a"))
	assert.Equal(t, 1, m.Status().ViewerCount)
}

func TestTracker_NewSessionRecounts(t *testing.T) {
	m, _ := newTestMachine()
	tr := NewTracker(m)
	ctx := context.Background()

	_, _ = m.Control(ctx, domain.ControlRequest{Action: "START"})
	tr.Join(ctx, "a")

	_, _ = m.Control(ctx, domain.ControlRequest{Action: "START"})
	assert.Equal(t, 0, m.Status().ViewerCount)

	assert.True(t, tr.Join(ctx, "a"), "counted again in the new session")
	assert.Equal(t, 1, m.Status().ViewerCount)
}

func TestTracker_LeaveAfterStopDoesNotTouchNewSession(t *testing.T) {
	m, _ := newTestMachine()
	tr := NewTracker(m)
	ctx := context.Background()

	_, _ = m.Control(ctx, domain.ControlRequest{Action: "START"})
	tr.Join(ctx, "old")
	_, _ = m.Control(ctx, domain.ControlRequest{Action: "STOP"})
	_, _ = m.Control(ctx, domain.ControlRequest{Action: "START"})
	tr.Join(ctx, "new")

	assert.False(t, tr.Leave(ctx, "old"))
	assert.Equal(t, 1, m.Status().ViewerCount)
}
