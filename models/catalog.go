package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the storefront catalog.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Product is a catalog entry. Unit is a free-text label such as "kg" or "al pezzo".
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	Available   bool            `json:"available"`
	CategoryID  string          `json:"categoryId"`
	CreatedAt   time.Time       `json:"createdAt"`
}
