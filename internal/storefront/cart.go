// Package storefront holds the customer-facing flows: cart arithmetic,
// catalog search, checkout and profile, plus the admin catalog forms.
package storefront

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"groceryFulfillment/models"
)

var (
	ErrUnavailable     = errors.New("product not available")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// CartLine is one product in the cart with the price it had when added.
type CartLine struct {
	ProductID string
	Name      string
	Unit      string
	Price     decimal.Decimal
	Quantity  int
}

// Cart keeps lines in the order they were first added. The zero value is ready to use.
type Cart struct {
	lines []CartLine
}

// Add puts qty units of p in the cart, merging with an existing line.
func (c *Cart) Add(p models.Product, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}
	if !p.Available || p.Stock <= 0 {
		return fmt.Errorf("%w: %s", ErrUnavailable, p.Name)
	}
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity += qty
			return nil
		}
	}
	c.lines = append(c.lines, CartLine{ProductID: p.ID, Name: p.Name, Unit: p.Unit, Price: p.Price, Quantity: qty})
	return nil
}

// Remove drops the line for productID, if any.
func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// SetQuantity changes a line's quantity; zero or less removes it.
func (c *Cart) SetQuantity(productID string, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = qty
			return
		}
	}
}

func (c *Cart) Lines() []CartLine {
	return append([]CartLine(nil), c.lines...)
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

func (c *Cart) Clear() { c.lines = nil }

// Items freezes the cart into order items.
func (c *Cart) Items() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Unit:      l.Unit,
			Price:     l.Price,
		})
	}
	return items
}
