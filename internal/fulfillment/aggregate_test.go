package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groceryFulfillment/internal/logger"
	"groceryFulfillment/models"
)

func newTestAggregator(dir UserDirectory, cfg AggregatorConfig) *Aggregator {
	return NewAggregator(dir, cfg, logger.Discard(), nil)
}

func TestAggregator_WaitsForEveryLookup(t *testing.T) {
	dir := newFakeDirectory()
	dir.users["a"] = &models.User{ID: "a", Name: "Anna"}
	dir.users["b"] = &models.User{ID: "b", Name: "Bruno"}
	dir.users["c"] = &models.User{ID: "c", Name: "Carla"}
	release := dir.gate("b")

	agg := newTestAggregator(dir, AggregatorConfig{Timeout: 5 * time.Second, Concurrency: 4})
	orders := []models.Order{{ID: "1", UserID: "a"}, {ID: "2", UserID: "b"}, {ID: "3", UserID: "c"}}

	type result struct {
		rows []ResolvedOrder
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rows, err := agg.Resolve(context.Background(), orders)
		done <- result{rows, err}
	}()

	require.Eventually(t, func() bool { return dir.calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatalf("result delivered before the slow lookup finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("aggregation did not finish")
	}
	require.NoError(t, res.err)
	require.Len(t, res.rows, 3)
	assert.Equal(t, []string{"Anna", "Bruno", "Carla"}, []string{res.rows[0].CustomerName, res.rows[1].CustomerName, res.rows[2].CustomerName})
	assert.Equal(t, "2", res.rows[1].Order.ID)
}

func TestAggregator_DerivedFields(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir, AggregatorConfig{})
	orders := []models.Order{
		{
			ID:        "1",
			UserEmail: "sara@shop.it",
			Items: []models.OrderItem{
				{Name: "Mele", Quantity: 2, Unit: "kg", Price: decimal.RequireFromString("2.50")},
				{Name: "Pane", Quantity: 1, Unit: "pz", Price: decimal.RequireFromString("1.20")},
			},
			TotalAmount: decimal.RequireFromString("6.20"),
			PickupDate:  "15/09/2025",
		},
		{
			ID:          "2",
			Items:       []models.OrderItem{{Name: "Uova", Quantity: 3, Price: decimal.RequireFromString("0.30")}},
			TotalAmount: decimal.RequireFromString("1.00"),
		},
	}

	rows, err := agg.Resolve(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "sara", first.CustomerName)
	assert.Equal(t, "15/09/2025", first.PickupDisplay)
	assert.Equal(t, "Mele x2 kg, Pane x1 pz", first.ItemsSummary)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "5.00", first.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "6.20", first.ComputedTotal.StringFixed(2))
	assert.False(t, first.TotalMismatch)

	second := rows[1]
	assert.Equal(t, UnknownUser, second.CustomerName)
	assert.Equal(t, PickupUndefined, second.PickupDisplay)
	assert.Equal(t, "Uova x3", second.ItemsSummary)
	assert.Equal(t, "0.90", second.ComputedTotal.StringFixed(2))
	assert.True(t, second.TotalMismatch)
}

func TestAggregator_LookupFailureDoesNotAbortPass(t *testing.T) {
	dir := newFakeDirectory()
	dir.users["ok"] = &models.User{ID: "ok", Name: "Ok"}
	dir.errs["bad"] = ErrPermissionDenied
	dir.panics["boom"] = true
	agg := newTestAggregator(dir, AggregatorConfig{})

	rows, err := agg.Resolve(context.Background(), []models.Order{{UserID: "bad"}, {UserID: "ok"}, {UserID: "boom"}})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ErrorMarker(ReasonPermissionDenied), rows[0].CustomerEmail)
	assert.Equal(t, "Ok", rows[1].CustomerName)
	require.NotNil(t, rows[2].LookupErr)
	assert.Equal(t, ReasonOther, rows[2].LookupErr.Reason)
}

func TestAggregator_TimeoutMarksSlowLookups(t *testing.T) {
	dir := newFakeDirectory()
	dir.gate("slow")
	dir.users["fast"] = &models.User{ID: "fast", Name: "Fast"}
	agg := newTestAggregator(dir, AggregatorConfig{Timeout: 50 * time.Millisecond})

	rows, err := agg.Resolve(context.Background(), []models.Order{{UserID: "slow"}, {UserID: "fast"}})
	require.NoError(t, err)
	require.NotNil(t, rows[0].LookupErr)
	assert.Equal(t, ReasonNetwork, rows[0].LookupErr.Reason)
	assert.Equal(t, "Fast", rows[1].CustomerName)
}

func TestAggregator_CancelledPass(t *testing.T) {
	dir := newFakeDirectory()
	dir.gate("slow")
	agg := newTestAggregator(dir, AggregatorConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	rows, err := agg.Resolve(ctx, []models.Order{{UserID: "slow"}})
	assert.Nil(t, rows)
	var aggErr *AggregationError
	require.True(t, errors.As(err, &aggErr), "got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_NewestFirstIsStable(t *testing.T) {
	base := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: "old", CreatedAt: base},
		{ID: "new-a", CreatedAt: base.Add(time.Hour)},
		{ID: "mid", CreatedAt: base.Add(time.Minute)},
		{ID: "new-b", CreatedAt: base.Add(time.Hour)},
	}

	rows, err := newTestAggregator(newFakeDirectory(), AggregatorConfig{}).Resolve(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new-a", "mid", "new-b"}, ids(rows), "input order by default")

	rows, err = newTestAggregator(newFakeDirectory(), AggregatorConfig{NewestFirst: true}).Resolve(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, []string{"new-a", "new-b", "mid", "old"}, ids(rows))
}

func TestAggregator_EmptyInput(t *testing.T) {
	rows, err := newTestAggregator(newFakeDirectory(), AggregatorConfig{}).Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func ids(rows []ResolvedOrder) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Order.ID
	}
	return out
}

func TestAggregator_TimeoutDoesNotWaitOnDeafDirectory(t *testing.T) {
	dir := &deafDirectory{release: make(chan struct{})}
	t.Cleanup(func() { close(dir.release) })

	agg := newTestAggregator(dir, AggregatorConfig{Timeout: 50 * time.Millisecond, Concurrency: 2})
	orders := []models.Order{{ID: "1", UserID: "a", UserEmail: "a@shop.it"}, {ID: "2"}}

	done := make(chan []ResolvedOrder, 1)
	go func() {
		rows, err := agg.Resolve(context.Background(), orders)
		assert.NoError(t, err)
		done <- rows
	}()

	var rows []ResolvedOrder
	select {
	case rows = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pass blocked on a directory that ignores its context")
	}
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].LookupErr)
	assert.Equal(t, ReasonNetwork, rows[0].LookupErr.Reason)
	assert.Equal(t, ErrorMarker(ReasonNetwork), rows[0].CustomerName)
	assert.Equal(t, UnknownUser, rows[1].CustomerName)
}
