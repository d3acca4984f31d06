package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"groceryFulfillment/models"
)

// OrderRepository stores orders in SQLite. Items are kept as a JSON document
// so a row mirrors the order record one-to-one.
type OrderRepository struct {
	db     *sql.DB
	notify ChangeNotifier
}

// NewOrderRepository creates a new OrderRepository. notifier may be nil.
func NewOrderRepository(db *sql.DB, notifier ChangeNotifier) *OrderRepository {
	return &OrderRepository{db: db, notify: notifierOrNoop(notifier)}
}

const orderColumns = `id, user_id, user_email, items, total_amount, status, pickup_date_raw, pickup_time, pickup_date, notes, created_at, updated_at`

// Create assigns an id and timestamps and inserts the order. Status defaults to 'pending'.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	items, err := json.Marshal(itemsOrEmpty(o.Items))
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO orders (id, seq, user_id, user_email, items, total_amount, status, pickup_date_raw, pickup_time, pickup_date, notes, created_at, updated_at)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM orders), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullIfEmpty(o.UserID), nullIfEmpty(o.UserEmail), string(items), o.TotalAmount, string(o.Status),
		nullIfEmpty(o.PickupDateRaw), nullIfEmpty(o.PickupTime), nullIfEmpty(o.PickupDate), nullIfEmpty(o.Notes),
		toMillis(now), toMillis(now))
	if err != nil {
		return nil, err
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created order not found: id=%s", id)
	}
	r.notify.Notify(CollectionOrders)
	return created, nil
}

// GetByID fetches an order by its ID. Returns (nil, nil) when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// List returns every order in arrival order. This is the full snapshot the live feed publishes.
func (r *OrderRepository) List(ctx context.Context) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUserID returns the orders of one customer, newest first.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus sets status and updated_at. Returns sql.ErrNoRows for an unknown id.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, string(status), toMillis(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	r.notify.Notify(CollectionOrders)
	return nil
}

// Update rewrites the operator-editable fields of an order: items, total,
// pickup and notes. updated_at takes o.UpdatedAt, or now when it is zero.
// Status, customer reference and created_at are left untouched.
func (r *OrderRepository) Update(ctx context.Context, o *models.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	items, err := json.Marshal(itemsOrEmpty(o.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	at := o.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET items = ?, total_amount = ?, pickup_date_raw = ?, pickup_time = ?, pickup_date = ?, notes = ?, updated_at = ?
WHERE id = ?`,
		string(items), o.TotalAmount, nullIfEmpty(o.PickupDateRaw), nullIfEmpty(o.PickupTime),
		nullIfEmpty(o.PickupDate), nullIfEmpty(o.Notes), toMillis(at), o.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	r.notify.Notify(CollectionOrders)
	return nil
}

// Delete removes an order by ID. Returns sql.ErrNoRows for an unknown id.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	r.notify.Notify(CollectionOrders)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*models.Order, error) {
	var o models.Order
	var status, items string
	var userID, userEmail, pickupRaw, pickupTime, pickupDate, notes sql.NullString
	var created, updated int64
	if err := s.Scan(&o.ID, &userID, &userEmail, &items, &o.TotalAmount, &status, &pickupRaw, &pickupTime, &pickupDate, &notes, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	o.Status = models.OrderStatus(status)
	o.UserID = userID.String
	o.UserEmail = userEmail.String
	o.PickupDateRaw = pickupRaw.String
	o.PickupTime = pickupTime.String
	o.PickupDate = pickupDate.String
	o.Notes = notes.String
	o.CreatedAt = fromMillis(created)
	o.UpdatedAt = fromMillis(updated)
	return &o, nil
}

func itemsOrEmpty(items []models.OrderItem) []models.OrderItem {
	if items == nil {
		return []models.OrderItem{}
	}
	return items
}
