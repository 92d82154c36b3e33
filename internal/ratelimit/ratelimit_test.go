package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_Burst(t *testing.T) {
	l := New(0.001, 2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.True(t, l.Allow("b"), "keys have separate buckets")
}

func TestAllow_Disabled(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.Equal(t, 0, l.Len())
}

func TestForgetAndSweep(t *testing.T) {
	l := New(1, 1)
	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	l.Forget("a")
	assert.Equal(t, 1, l.Len())

	l.Sweep(time.Now().Add(time.Second))
	assert.Equal(t, 0, l.Len())
}
