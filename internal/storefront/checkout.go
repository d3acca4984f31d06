package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groceryFulfillment/internal/logger"
	"groceryFulfillment/internal/metrics"
	"groceryFulfillment/models"
)

var (
	ErrNotSignedIn   = errors.New("customer not signed in")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidPickup = errors.New("invalid pickup")
)

// OrderCreator persists a new order and returns it with id and timestamps.
type OrderCreator interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
}

// CheckoutRequest is what the customer submits from the cart page.
type CheckoutRequest struct {
	UserID     string
	UserEmail  string
	Cart       *Cart
	PickupDate string // YYYY-MM-DD, optional
	PickupTime string // mattina | pomeriggio, optional
	Notes      string
}

// Checkout turns carts into pending orders.
type Checkout struct {
	orders  OrderCreator
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewCheckout(orders OrderCreator, log *slog.Logger, m *metrics.Metrics) *Checkout {
	return &Checkout{orders: orders, log: logger.Component(log, "checkout"), metrics: m}
}

// PlaceOrder writes a pending order for the signed-in customer. The total is
// the cart total. The cart is cleared once the order is stored.
func (c *Checkout) PlaceOrder(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrNotSignedIn
	}
	if req.Cart == nil || req.Cart.Empty() {
		return nil, ErrEmptyCart
	}
	o := &models.Order{
		UserID:      req.UserID,
		UserEmail:   strings.TrimSpace(req.UserEmail),
		Items:       req.Cart.Items(),
		TotalAmount: req.Cart.Total(),
		Status:      models.OrderStatusPending,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if err := setPickup(o, req.PickupDate, req.PickupTime); err != nil {
		return nil, err
	}

	created, err := c.orders.Create(ctx, o)
	if err != nil {
		c.log.Error("place order failed", "user_id", req.UserID, "err", err)
		return nil, fmt.Errorf("place order: %w", err)
	}
	req.Cart.Clear()
	if c.metrics != nil {
		c.metrics.OrdersPlaced.Inc()
	}
	c.log.Info("order placed", "order_id", created.ID, "user_id", created.UserID, "total", created.TotalAmount.StringFixed(2))
	return created, nil
}

func setPickup(o *models.Order, date, slot string) error {
	date, slot = strings.TrimSpace(date), strings.TrimSpace(slot)
	if date == "" && slot == "" {
		return nil
	}
	if date == "" || slot == "" {
		return fmt.Errorf("%w: date and time slot go together", ErrInvalidPickup)
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidPickup, date)
	}
	s, ok := models.ParsePickupSlot(slot)
	if !ok {
		return fmt.Errorf("%w: time slot %q", ErrInvalidPickup, slot)
	}
	o.PickupDateRaw = date
	o.PickupTime = string(s)
	return nil
}
