package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groceryFulfillment/internal/logger"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestBroadcaster_LatestWins(t *testing.T) {
	b := NewBroadcaster[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx)
	b.Publish(1)
	b.Publish(2)
	b.Publish(3)
	assert.Equal(t, 3, recv(t, ch))

	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestBroadcaster_UnsubscribeOnCancel(t *testing.T) {
	b := NewBroadcaster[string]()
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	require.Equal(t, 1, b.Len())

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster[int]()
	ch := b.Subscribe(context.Background())
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)

	late := b.Subscribe(context.Background())
	_, ok = <-late
	assert.False(t, ok, "subscribe after close yields a closed channel")
	b.Publish(1)
}

func TestCollection_SubscribeGetsCurrentSnapshotFirst(t *testing.T) {
	var calls atomic.Int32
	c := NewCollection[string]("orders", func(context.Context) ([]string, error) {
		n := calls.Add(1)
		if n == 1 {
			return []string{"a"}, nil
		}
		return []string{"a", "b"}, nil
	}, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Refresh(ctx))
	sub := c.Subscribe(ctx)
	first := recv(t, sub)
	assert.Equal(t, []string{"a"}, first.Items)
	assert.Equal(t, uint64(1), first.Seq)

	require.NoError(t, c.Refresh(ctx))
	second := recv(t, sub)
	assert.Equal(t, []string{"a", "b"}, second.Items)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestCollection_ErrorKeepsLastGoodItems(t *testing.T) {
	fail := errors.New("backend down")
	var broken atomic.Bool
	c := NewCollection[int]("products", func(context.Context) ([]int, error) {
		if broken.Load() {
			return nil, fail
		}
		return []int{1, 2}, nil
	}, logger.Discard())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	sub := c.Subscribe(ctx)
	recv(t, sub)

	broken.Store(true)
	assert.ErrorIs(t, c.Refresh(ctx), fail)
	snap := recv(t, sub)
	assert.ErrorIs(t, snap.Err, fail)
	assert.Equal(t, []int{1, 2}, snap.Items)

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.NoError(t, latest.Err)
}

func TestHub_NotifyTriggersReload(t *testing.T) {
	var loads atomic.Int32
	c := NewCollection[int]("orders", func(context.Context) ([]int, error) {
		return []int{int(loads.Add(1))}, nil
	}, logger.Discard())
	h := NewHub(logger.Discard())
	h.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	assert.Eventually(t, func() bool { return loads.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	sub := c.Subscribe(ctx)
	recv(t, sub)

	h.Notify("orders")
	h.Notify("unknown")
	snap := recv(t, sub)
	assert.GreaterOrEqual(t, snap.Items[0], 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop")
	}
}
