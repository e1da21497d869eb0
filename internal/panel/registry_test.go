package panel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistry_SessionBinding(t *testing.T) {
	h := newHarness(time.Millisecond)
	reg := NewRegistry(time.Hour)
	c, _ := h.page("p1")
	reg.Add(c)

	got, err := reg.Get("p1", "sess-1")
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = reg.Get("p1", "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Get("missing", "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_IdleExpiry(t *testing.T) {
	h := newHarness(time.Millisecond)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg := NewRegistry(10 * time.Minute)
	reg.now = func() time.Time { return now }

	stale, _ := h.page("stale")
	stale.Open(context.Background())
	reg.Add(stale)
	busy, _ := h.page("busy")
	reg.Add(busy)

	now = now.Add(8 * time.Minute)
	_, err := reg.Get("busy", "sess-1")
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, Closed, stale.State(), "evicted panels are closed")

	now = now.Add(time.Hour)
	_, err = reg.Get("busy", "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ExpiredPanelsCloseAsExpired(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(time.Millisecond)
	h.deps.Logger = zap.New(core)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg := NewRegistry(time.Minute)
	reg.now = func() time.Time { return now }

	swept, _ := h.page("swept")
	swept.Open(context.Background())
	reg.Add(swept)
	fetched, _ := h.page("fetched")
	fetched.Open(context.Background())
	reg.Add(fetched)

	now = now.Add(2 * time.Minute)
	_, err := reg.Get("fetched", "sess-1")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, reg.Sweep())

	closed := logs.FilterMessage("panel closed").All()
	require.Len(t, closed, 2)
	for _, entry := range closed {
		assert.Equal(t, "expired", entry.ContextMap()["reason"])
	}
}
