package fulfillment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"groceryFulfillment/models"
)

func TestComputeStats(t *testing.T) {
	orders := []models.Order{
		{TotalAmount: decimal.NewFromInt(10), Status: models.OrderStatusPending},
		{TotalAmount: decimal.NewFromInt(25), Status: models.OrderStatusCompleted},
	}
	products := []models.Product{{Stock: 0}, {Stock: 5}}

	s := ComputeStats(orders, products)
	assert.Equal(t, 2, s.TotalOrders)
	assert.True(t, s.TotalRevenue.Equal(decimal.NewFromInt(35)), "revenue = %s", s.TotalRevenue)
	assert.Equal(t, 1, s.ActiveProducts)
	assert.Equal(t, 1, s.PendingOrders)
	assert.True(t, s.CancelledRevenue.IsZero())
}

func TestComputeStats_CancelledStillCounted(t *testing.T) {
	orders := []models.Order{
		{TotalAmount: decimal.RequireFromString("12.50"), Status: models.OrderStatusCancelled},
		{TotalAmount: decimal.RequireFromString("7.25"), Status: models.OrderStatusReady},
		{Status: models.OrderStatusPending}, // no amount recorded
	}
	s := ComputeStats(orders, nil)
	assert.Equal(t, 3, s.TotalOrders)
	assert.Equal(t, "19.75", s.TotalRevenue.StringFixed(2))
	assert.Equal(t, "12.50", s.CancelledRevenue.StringFixed(2))
	assert.Equal(t, 0, s.ActiveProducts)
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil, nil)
	assert.Zero(t, s.TotalOrders)
	assert.True(t, s.TotalRevenue.IsZero())
}
