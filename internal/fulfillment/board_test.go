package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groceryFulfillment/internal/live"
	"groceryFulfillment/internal/logger"
	"groceryFulfillment/internal/metrics"
	"groceryFulfillment/models"
)

type boardHarness struct {
	board    *Board
	dir      *fakeDirectory
	metrics  *metrics.Metrics
	orders   chan live.Snapshot[models.Order]
	products chan live.Snapshot[models.Product]
	users    chan live.Snapshot[models.User]
	views    <-chan View
	cancel   context.CancelFunc
	done     chan error
}

func startBoard(t *testing.T) *boardHarness {
	t.Helper()
	h := &boardHarness{
		dir:      newFakeDirectory(),
		metrics:  metrics.New(),
		orders:   make(chan live.Snapshot[models.Order]),
		products: make(chan live.Snapshot[models.Product]),
		users:    make(chan live.Snapshot[models.User]),
		done:     make(chan error, 1),
	}
	agg := NewAggregator(h.dir, AggregatorConfig{Timeout: 5 * time.Second}, logger.Discard(), h.metrics)
	h.board = NewBoard(agg, nil, logger.Discard(), h.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.views = h.board.Watch(ctx)
	go func() { h.done <- h.board.Run(ctx, h.orders, h.products, h.users) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Errorf("board did not stop")
		}
	})
	return h
}

func (h *boardHarness) nextView(t *testing.T) View {
	t.Helper()
	select {
	case v, ok := <-h.views:
		require.True(t, ok, "view channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("no view published")
	}
	return View{}
}

func TestBoard_PublishesResolvedTableAndStats(t *testing.T) {
	h := startBoard(t)
	h.dir.users["u1"] = &models.User{ID: "u1", Name: "Mario"}

	h.products <- live.Snapshot[models.Product]{Seq: 1, Items: []models.Product{{Stock: 0}, {Stock: 5}}}
	h.orders <- live.Snapshot[models.Order]{Seq: 1, Items: []models.Order{
		{ID: "o1", UserID: "u1", TotalAmount: decimal.NewFromInt(10), Status: models.OrderStatusPending},
		{ID: "o2", TotalAmount: decimal.NewFromInt(25), Status: models.OrderStatusCompleted},
	}}

	v := h.nextView(t)
	require.NoError(t, v.Err)
	require.Len(t, v.Orders, 2)
	assert.Equal(t, "Mario", v.Orders[0].CustomerName)
	assert.Equal(t, 2, v.Stats.TotalOrders)
	assert.Equal(t, "35", v.Stats.TotalRevenue.String())
	assert.Equal(t, 1, v.Stats.ActiveProducts)
	assert.Equal(t, 1, v.Stats.PendingOrders)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.PendingOrders))

	// a product change refreshes stats without a new pass
	h.products <- live.Snapshot[models.Product]{Seq: 2, Items: []models.Product{{Stock: 1}, {Stock: 5}}}
	v2 := h.nextView(t)
	assert.Equal(t, 2, v2.Stats.ActiveProducts)
	assert.Equal(t, v.Seq, v2.Seq)
	assert.Equal(t, 2, h.board.Stats().ActiveProducts)

	latest, ok := h.board.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, latest.Stats.ActiveProducts)
	assert.Len(t, h.board.Orders(), 2)
}

func TestBoard_DiscardsSupersededPass(t *testing.T) {
	h := startBoard(t)
	release := h.dir.gate("slow")
	h.dir.users["slow"] = &models.User{ID: "slow", Name: "Lento"}
	h.dir.users["fast"] = &models.User{ID: "fast", Name: "Veloce"}

	h.orders <- live.Snapshot[models.Order]{Seq: 1, Items: []models.Order{{ID: "old", UserID: "slow"}}}
	require.Eventually(t, func() bool { return h.dir.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	h.orders <- live.Snapshot[models.Order]{Seq: 2, Items: []models.Order{{ID: "new", UserID: "fast"}}}
	v := h.nextView(t)
	require.NoError(t, v.Err)
	require.Len(t, v.Orders, 1)
	assert.Equal(t, "new", v.Orders[0].Order.ID)

	close(release)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(h.metrics.PassesDiscarded) == 1 }, 2*time.Second, 5*time.Millisecond)

	select {
	case stale := <-h.views:
		t.Fatalf("superseded pass was published: %+v", stale)
	case <-time.After(50 * time.Millisecond):
	}
	latest, _ := h.board.Latest()
	assert.Equal(t, "new", latest.Orders[0].Order.ID)
}

func TestBoard_FeedErrorIsTableWide(t *testing.T) {
	h := startBoard(t)
	h.orders <- live.Snapshot[models.Order]{Seq: 1, Items: []models.Order{{ID: "o1", TotalAmount: decimal.NewFromInt(3)}}}
	first := h.nextView(t)
	require.NoError(t, first.Err)

	feedErr := errors.New("store unreachable")
	h.orders <- live.Snapshot[models.Order]{Seq: 2, Err: feedErr}
	v := h.nextView(t)
	var aggErr *AggregationError
	require.True(t, errors.As(v.Err, &aggErr))
	assert.ErrorIs(t, v.Err, feedErr)
	assert.Empty(t, v.Orders)
	assert.Equal(t, 1, v.Stats.TotalOrders, "lists are kept when the feed fails")
}

func TestBoard_UserSnapshotRerunsPass(t *testing.T) {
	h := startBoard(t)

	// no orders yet: nothing to resolve, nothing published
	h.users <- live.Snapshot[models.User]{Seq: 1}
	select {
	case v := <-h.views:
		t.Fatalf("view published before any order snapshot: %+v", v)
	case <-time.After(50 * time.Millisecond):
	}

	h.dir.setUser(&models.User{ID: "u1", Name: "Mario"})
	h.orders <- live.Snapshot[models.Order]{Seq: 1, Items: []models.Order{{ID: "o1", UserID: "u1"}}}
	v := h.nextView(t)
	require.Len(t, v.Orders, 1)
	assert.Equal(t, "Mario", v.Orders[0].CustomerName)
	assert.Equal(t, NotSpecified, v.Orders[0].CustomerPhone)

	h.dir.setUser(&models.User{ID: "u1", Name: "Mario Rossi", Phone: "333 111"})
	h.users <- live.Snapshot[models.User]{Seq: 2, Items: []models.User{{ID: "u1"}}}
	v2 := h.nextView(t)
	require.NoError(t, v2.Err)
	require.Len(t, v2.Orders, 1)
	assert.Greater(t, v2.Seq, v.Seq)
	assert.Equal(t, "Mario Rossi", v2.Orders[0].CustomerName)
	assert.Equal(t, "333 111", v2.Orders[0].CustomerPhone)
	assert.Equal(t, "o1", v2.Orders[0].Order.ID)

	// a failing user feed keeps the current table
	h.users <- live.Snapshot[models.User]{Seq: 3, Err: errors.New("users unreachable")}
	select {
	case v := <-h.views:
		t.Fatalf("user feed error published a view: %+v", v)
	case <-time.After(50 * time.Millisecond):
	}
}
