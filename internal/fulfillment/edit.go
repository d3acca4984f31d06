package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"groceryFulfillment/models"
)

// OrderEdit is an operator field edit. Nil fields are kept as stored.
// Replacing Items also replaces TotalAmount with the items' sum.
type OrderEdit struct {
	Notes      *string
	PickupDate *string // YYYY-MM-DD; "" clears it
	PickupTime *string // mattina/pomeriggio or an English alias; "" clears it
	Items      []models.OrderItem
}

func (e OrderEdit) empty() bool {
	return e.Notes == nil && e.PickupDate == nil && e.PickupTime == nil && e.Items == nil
}

// EditOrder applies e to the stored order and returns the result. Status and
// customer reference are not editable here.
func (d *Desk) EditOrder(ctx context.Context, id string, e OrderEdit) (*models.Order, error) {
	if e.empty() {
		return nil, fmt.Errorf("%w: nothing to change", ErrInvalidEdit)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	cur, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, d.persistenceError("edit", id, err)
	}
	if cur == nil {
		return nil, &PersistenceError{Op: "edit", OrderID: id, Err: ErrOrderNotFound}
	}

	o := *cur
	if e.Notes != nil {
		o.Notes = strings.TrimSpace(*e.Notes)
	}
	if e.PickupDate != nil {
		o.PickupDateRaw = strings.TrimSpace(*e.PickupDate)
	}
	if e.PickupTime != nil {
		o.PickupTime = ""
		if slot, ok := models.ParsePickupSlot(*e.PickupTime); ok {
			o.PickupTime = string(slot)
		}
	}
	if e.Items != nil {
		o.Items = append([]models.OrderItem(nil), e.Items...)
		o.TotalAmount = o.ItemsTotal()
	}
	o.UpdatedAt = d.now().UTC()

	if err := d.store.Update(ctx, &o); err != nil {
		return nil, d.persistenceError("edit", id, err)
	}
	d.log.Info("order edited", "order_id", id, "items", len(o.Items), "total", o.TotalAmount.StringFixed(2))
	return &o, nil
}

func (e OrderEdit) validate() error {
	if e.PickupDate != nil {
		if v := strings.TrimSpace(*e.PickupDate); v != "" {
			if _, err := time.Parse(time.DateOnly, v); err != nil {
				return fmt.Errorf("%w: pickup date %q is not YYYY-MM-DD", ErrInvalidEdit, v)
			}
		}
	}
	if e.PickupTime != nil {
		if v := strings.TrimSpace(*e.PickupTime); v != "" {
			if _, ok := models.ParsePickupSlot(v); !ok {
				return fmt.Errorf("%w: unknown pickup slot %q", ErrInvalidEdit, v)
			}
		}
	}
	if e.Items != nil && len(e.Items) == 0 {
		return fmt.Errorf("%w: an order needs at least one item", ErrInvalidEdit)
	}
	for i, it := range e.Items {
		switch {
		case strings.TrimSpace(it.Name) == "":
			return fmt.Errorf("%w: items[%d] has no name", ErrInvalidEdit, i)
		case it.Quantity < 1:
			return fmt.Errorf("%w: items[%d] quantity must be at least 1", ErrInvalidEdit, i)
		case it.Price.IsNegative():
			return fmt.Errorf("%w: items[%d] price is negative", ErrInvalidEdit, i)
		}
	}
	return nil
}
