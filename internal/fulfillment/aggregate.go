package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"groceryFulfillment/internal/logger"
	"groceryFulfillment/internal/metrics"
	"groceryFulfillment/models"
)

// ItemLine is an order item with its computed subtotal.
type ItemLine struct {
	models.OrderItem
	Subtotal decimal.Decimal
}

// ResolvedOrder is an order joined with its customer and display fields.
// It is derived on every pass and never stored.
type ResolvedOrder struct {
	Order models.Order

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	LookupErr       *LookupError

	PickupDisplay string
	Items         []ItemLine
	ItemsSummary  string
	// ComputedTotal is the sum of item subtotals. TotalMismatch flags a
	// difference from the stored total at cent precision.
	ComputedTotal decimal.Decimal
	TotalMismatch bool
}

// AggregatorConfig tunes a pass.
type AggregatorConfig struct {
	Timeout     time.Duration
	Concurrency int
	NewestFirst bool
}

// Aggregator resolves order lists into ResolvedOrder rows.
type Aggregator struct {
	resolver *CustomerResolver
	cfg      AggregatorConfig
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func NewAggregator(dir UserDirectory, cfg AggregatorConfig, log *slog.Logger, m *metrics.Metrics) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = logger.Component(log, "aggregator")
	return &Aggregator{
		resolver: &CustomerResolver{Directory: dir, Log: log, Metrics: m},
		cfg:      cfg,
		log:      log,
		metrics:  m,
	}
}

// Resolve looks up every order's customer concurrently and returns one row
// per order, in input order unless NewestFirst is set. It returns only after
// every lookup has finished. Individual lookup failures are folded into the
// rows; cancellation of ctx fails the whole pass with an AggregationError.
func (a *Aggregator) Resolve(ctx context.Context, orders []models.Order) ([]ResolvedOrder, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		a.observe(start, "cancelled")
		return nil, &AggregationError{Err: err}
	}

	passCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	out := make([]ResolvedOrder, len(orders))
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i := range orders {
		i := i
		g.Go(func() error {
			out[i] = a.resolveOne(passCtx, orders[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		a.observe(start, "cancelled")
		return nil, &AggregationError{Err: err}
	}
	if a.cfg.NewestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Order.CreatedAt.After(out[j].Order.CreatedAt)
		})
	}
	a.observe(start, "ok")
	a.log.Debug("aggregation pass done", "orders", len(out), "took", time.Since(start))
	return out, nil
}

func (a *Aggregator) observe(start time.Time, outcome string) {
	if a.metrics != nil {
		a.metrics.PassDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

func (a *Aggregator) resolveOne(ctx context.Context, o models.Order) ResolvedOrder {
	c := a.resolver.Resolve(ctx, o.UserID, o.UserEmail)
	lines, total := itemLines(o.Items)
	return ResolvedOrder{
		Order:           o,
		CustomerName:    c.Name,
		CustomerEmail:   c.Email,
		CustomerPhone:   c.Phone,
		CustomerAddress: c.Address,
		LookupErr:       c.Err,
		PickupDisplay:   PickupDisplay(o),
		Items:           lines,
		ItemsSummary:    ItemsSummary(o.Items),
		ComputedTotal:   total,
		TotalMismatch:   !total.Round(2).Equal(o.TotalAmount.Round(2)),
	}
}

func itemLines(items []models.OrderItem) ([]ItemLine, decimal.Decimal) {
	lines := make([]ItemLine, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		sub := it.Subtotal()
		total = total.Add(sub)
		lines = append(lines, ItemLine{OrderItem: it, Subtotal: sub})
	}
	return lines, total
}

// ItemsSummary joins items as "Mele x2 kg, Pane x1 pz".
func ItemsSummary(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		s := fmt.Sprintf("%s x%d", it.Name, it.Quantity)
		if u := strings.TrimSpace(it.Unit); u != "" {
			s += " " + u
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
