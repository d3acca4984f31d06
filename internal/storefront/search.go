package storefront

import (
	"strings"

	"groceryFulfillment/models"
)

// ProductRow is a product with its category name resolved ("N/A" when the
// category is gone).
type ProductRow struct {
	models.Product
	CategoryName string
}

// Search filters products by a case-insensitive match on name or
// description and, when categoryID is set, by category. Input order is kept.
func Search(products []models.Product, categories []models.Category, query, categoryID string) []ProductRow {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]ProductRow, 0, len(products))
	for _, p := range products {
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		name, ok := names[p.CategoryID]
		if !ok {
			name = "N/A"
		}
		out = append(out, ProductRow{Product: p, CategoryName: name})
	}
	return out
}
