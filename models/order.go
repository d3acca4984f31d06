package models

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in conventional workflow order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the five known statuses.
// The comparison is exact: "PENDING" or " pending" are not statuses.
func (s OrderStatus) Valid() bool {
	return slices.Contains(OrderStatuses, s)
}

// PickupSlot is the time-of-day window a customer picks for collection.
type PickupSlot string

const (
	PickupMorning   PickupSlot = "mattina"
	PickupAfternoon PickupSlot = "pomeriggio"
)

// ParsePickupSlot accepts the stored Italian literals and their English aliases.
func ParsePickupSlot(s string) (PickupSlot, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mattina", "morning":
		return PickupMorning, true
	case "pomeriggio", "afternoon":
		return PickupAfternoon, true
	}
	return "", false
}

// OrderItem is one cart line frozen at checkout time. Price is per unit.
type OrderItem struct {
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal returns price * quantity.
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Order is a customer purchase request.
// UserID may be empty for legacy or guest records; UserEmail is the snapshot taken at checkout.
// PickupDateRaw (YYYY-MM-DD) + PickupTime is the current pickup form, PickupDate the legacy free text.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId,omitempty"`
	UserEmail     string          `json:"userEmail,omitempty"`
	Items         []OrderItem     `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        OrderStatus     `json:"status"`
	PickupDateRaw string          `json:"pickupDateRaw,omitempty"`
	PickupTime    string          `json:"pickupTime,omitempty"`
	PickupDate    string          `json:"pickupDate,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ItemsTotal sums the item subtotals, independent of TotalAmount.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}
