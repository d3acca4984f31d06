package fulfillment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"groceryFulfillment/internal/live"
	"groceryFulfillment/internal/logger"
	"groceryFulfillment/internal/metrics"
	"groceryFulfillment/models"
)

// View is what the board publishes after every pass: the complete resolved
// order table and the stats, or a table-wide error.
type View struct {
	Seq    uint64
	Orders []ResolvedOrder
	Stats  Stats
	Err    error
	At     time.Time
}

// Board owns the live order and product lists. They are only replaced by
// subscription snapshots. Each order snapshot starts a new aggregation
// pass, and so does each user snapshot once orders are known; a pass that
// is superseded is cancelled and its result dropped.
type Board struct {
	agg     *Aggregator
	desk    *Desk
	log     *slog.Logger
	metrics *metrics.Metrics

	mu           sync.Mutex
	orders       []models.Order
	ordersLoaded bool
	products     []models.Product
	stats        Stats
	seq          uint64
	cancelPass   context.CancelFunc
	view         View
	hasView      bool
	passes       sync.WaitGroup

	bc *live.Broadcaster[View]
}

func NewBoard(agg *Aggregator, desk *Desk, log *slog.Logger, m *metrics.Metrics) *Board {
	return &Board{
		agg:     agg,
		desk:    desk,
		log:     logger.Component(log, "board"),
		metrics: m,
		stats:   ComputeStats(nil, nil),
		bc:      live.NewBroadcaster[View](),
	}
}

// Run consumes snapshots until ctx is done or every feed is closed. It
// waits for in-flight passes before returning. A user snapshot re-runs the
// pass over the current order list so edited profiles show up; a nil feed
// is never read.
func (b *Board) Run(ctx context.Context, orders <-chan live.Snapshot[models.Order], products <-chan live.Snapshot[models.Product], users <-chan live.Snapshot[models.User]) error {
	defer func() {
		b.mu.Lock()
		if b.cancelPass != nil {
			b.cancelPass()
		}
		b.mu.Unlock()
		b.passes.Wait()
		b.bc.Close()
	}()
	for orders != nil || products != nil || users != nil {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-orders:
			if !ok {
				orders = nil
				continue
			}
			b.applyOrders(ctx, snap)
		case snap, ok := <-products:
			if !ok {
				products = nil
				continue
			}
			b.applyProducts(snap)
		case snap, ok := <-users:
			if !ok {
				users = nil
				continue
			}
			b.applyUsers(ctx, snap)
		}
	}
	return nil
}

func (b *Board) applyOrders(ctx context.Context, snap live.Snapshot[models.Order]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if snap.Err != nil {
		// the feed failed: keep the lists, supersede any pass, report table-wide
		b.supersedeLocked()
		b.publishLocked(View{Seq: b.seq, Stats: b.stats, Err: &AggregationError{Err: snap.Err}, At: time.Now()})
		return
	}

	b.orders = snap.Items
	b.ordersLoaded = true
	b.recomputeStatsLocked()
	b.startPassLocked(ctx)
}

// applyUsers starts a fresh pass over the orders already held. Before the
// first order snapshot there is nothing to resolve.
func (b *Board) applyUsers(ctx context.Context, snap live.Snapshot[models.User]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if snap.Err != nil {
		b.log.Warn("user feed error", "err", snap.Err)
		return
	}
	if !b.ordersLoaded {
		return
	}
	b.startPassLocked(ctx)
}

func (b *Board) startPassLocked(ctx context.Context) {
	passCtx, cancel := context.WithCancel(ctx)
	seq := b.supersedeLocked()
	b.cancelPass = cancel
	orders := b.orders
	b.passes.Add(1)
	go func() {
		defer b.passes.Done()
		defer cancel()
		rows, err := b.agg.Resolve(passCtx, orders)
		b.finishPass(seq, orders, rows, err)
	}()
}

// supersedeLocked cancels the running pass and returns the next sequence number.
func (b *Board) supersedeLocked() uint64 {
	if b.cancelPass != nil {
		b.cancelPass()
		b.cancelPass = nil
	}
	b.seq++
	return b.seq
}

func (b *Board) finishPass(seq uint64, orders []models.Order, rows []ResolvedOrder, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.seq {
		if b.metrics != nil {
			b.metrics.PassesDiscarded.Inc()
		}
		b.log.Debug("dropping superseded pass", "seq", seq, "latest", b.seq)
		return
	}
	b.cancelPass = nil
	v := View{Seq: seq, Orders: rows, Stats: ComputeStats(orders, b.products), At: time.Now()}
	if err != nil {
		b.log.Error("aggregation pass failed", "seq", seq, "err", err)
		v.Orders = nil
		v.Err = err
	}
	b.publishLocked(v)
}

func (b *Board) applyProducts(snap live.Snapshot[models.Product]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if snap.Err != nil {
		b.log.Warn("product feed error", "err", snap.Err)
		return
	}
	b.products = snap.Items
	b.recomputeStatsLocked()
	if b.hasView {
		v := b.view
		v.Stats = b.stats
		v.At = time.Now()
		b.publishLocked(v)
	}
}

func (b *Board) recomputeStatsLocked() {
	b.stats = ComputeStats(b.orders, b.products)
	if b.metrics != nil {
		b.metrics.PendingOrders.Set(float64(b.stats.PendingOrders))
	}
}

func (b *Board) publishLocked(v View) {
	b.view = v
	b.hasView = true
	b.bc.Publish(v)
}

// Latest returns the most recently published view.
func (b *Board) Latest() (View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view, b.hasView
}

// Stats returns the stats of the current lists.
func (b *Board) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Orders returns a copy of the current order list.
func (b *Board) Orders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Order(nil), b.orders...)
}

// Watch streams views until ctx is done, starting with the latest one.
func (b *Board) Watch(ctx context.Context) <-chan View {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasView {
		return b.bc.SubscribeWith(ctx, b.view)
	}
	return b.bc.Subscribe(ctx)
}

// SetStatus is the operator's status action. The board picks up the change
// from the next order snapshot.
func (b *Board) SetStatus(ctx context.Context, id string, status models.OrderStatus) error {
	return b.desk.SetStatus(ctx, id, status)
}

// EditOrder is the operator's field edit. Like SetStatus, the new table
// arrives with the next order snapshot.
func (b *Board) EditOrder(ctx context.Context, id string, e OrderEdit) (*models.Order, error) {
	return b.desk.EditOrder(ctx, id, e)
}

// DeleteOrder is the operator's delete action.
func (b *Board) DeleteOrder(ctx context.Context, id string) error {
	return b.desk.DeleteOrder(ctx, id)
}
