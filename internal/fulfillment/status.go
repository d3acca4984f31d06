package fulfillment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"groceryFulfillment/internal/logger"
	"groceryFulfillment/internal/metrics"
	"groceryFulfillment/models"
)

// OrderStore is the write side of the order collection used by the Desk.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	Update(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, id string) error
}

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy interface {
	Allowed(from, to models.OrderStatus) bool
}

// Permissive allows any move between valid statuses.
type Permissive struct{}

func (Permissive) Allowed(_, _ models.OrderStatus) bool { return true }

// Conventional follows pending -> confirmed -> ready -> completed, with
// cancelled reachable from every status except completed.
type Conventional struct{}

var conventionalMoves = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusReady, models.OrderStatusCancelled},
	models.OrderStatusReady:     {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

func (Conventional) Allowed(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range conventionalMoves[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a status literal coming from an operator. Only the
// five stored literals are accepted, exactly as written.
func ParseStatus(s string) (models.OrderStatus, error) {
	st := models.OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Desk applies operator actions to orders.
type Desk struct {
	store   OrderStore
	policy  TransitionPolicy
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewDesk builds a Desk. strict selects the Conventional policy.
func NewDesk(store OrderStore, strict bool, log *slog.Logger, m *metrics.Metrics) *Desk {
	var policy TransitionPolicy = Permissive{}
	if strict {
		policy = Conventional{}
	}
	return &Desk{store: store, policy: policy, now: time.Now, log: logger.Component(log, "desk"), metrics: m}
}

// SetStatus stores status and a fresh updatedAt for the order. Nothing else
// on the order changes. Setting the current status again is allowed.
func (d *Desk) SetStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if !status.Valid() {
		d.count(status, "invalid")
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
	}
	if _, permissive := d.policy.(Permissive); !permissive {
		cur, err := d.store.GetByID(ctx, id)
		if err != nil {
			d.count(status, "error")
			return &PersistenceError{Op: "set status", OrderID: id, Err: err}
		}
		if cur == nil {
			d.count(status, "not_found")
			return &PersistenceError{Op: "set status", OrderID: id, Err: ErrOrderNotFound}
		}
		if !d.policy.Allowed(cur.Status, status) {
			d.count(status, "rejected")
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cur.Status, status)
		}
	}
	if err := d.store.UpdateStatus(ctx, id, status, d.now().UTC()); err != nil {
		d.count(status, "error")
		return d.persistenceError("set status", id, err)
	}
	d.count(status, "ok")
	d.log.Info("order status changed", "order_id", id, "status", status)
	return nil
}

// DeleteOrder removes the order.
func (d *Desk) DeleteOrder(ctx context.Context, id string) error {
	if err := d.store.Delete(ctx, id); err != nil {
		return d.persistenceError("delete", id, err)
	}
	d.log.Info("order deleted", "order_id", id)
	return nil
}

func (d *Desk) persistenceError(op, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrOrderNotFound
	}
	d.log.Error("order write failed", "op", op, "order_id", id, "err", err)
	return &PersistenceError{Op: op, OrderID: id, Err: err}
}

func (d *Desk) count(status models.OrderStatus, result string) {
	if d.metrics == nil {
		return
	}
	label := string(status)
	if !status.Valid() {
		label = "invalid"
	}
	d.metrics.StatusChanges.WithLabelValues(label, result).Inc()
}
