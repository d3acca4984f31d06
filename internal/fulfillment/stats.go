package fulfillment

import (
	"github.com/shopspring/decimal"

	"groceryFulfillment/models"
)

// Stats summarises the live collections.
// TotalRevenue counts every order, cancelled ones included; CancelledRevenue
// is the cancelled share of it.
type Stats struct {
	TotalOrders      int
	TotalRevenue     decimal.Decimal
	ActiveProducts   int
	PendingOrders    int
	CancelledRevenue decimal.Decimal
}

// ComputeStats derives Stats from the current orders and products.
func ComputeStats(orders []models.Order, products []models.Product) Stats {
	s := Stats{TotalOrders: len(orders), TotalRevenue: decimal.Zero, CancelledRevenue: decimal.Zero}
	for _, o := range orders {
		s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
		switch o.Status {
		case models.OrderStatusPending:
			s.PendingOrders++
		case models.OrderStatusCancelled:
			s.CancelledRevenue = s.CancelledRevenue.Add(o.TotalAmount)
		}
	}
	for _, p := range products {
		if p.Stock > 0 {
			s.ActiveProducts++
		}
	}
	return s
}
