package storefront

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"groceryFulfillment/internal/logger"
	"groceryFulfillment/models"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrNotFound        = errors.New("not found")
)

// CatalogStore is the persistence the catalog forms write to.
type CatalogStore interface {
	CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// NewProduct is the admin "add product" form.
type NewProduct struct {
	Name        string
	Description string
	Image       string
	Price       decimal.Decimal
	Stock       int
	Unit        string
	CategoryID  string
}

// Catalog validates admin catalog edits and serves catalog reads.
type Catalog struct {
	store CatalogStore
	log   *slog.Logger
}

func NewCatalog(store CatalogStore, log *slog.Logger) *Catalog {
	return &Catalog{store: store, log: logger.Component(log, "catalog")}
}

func (c *Catalog) AddCategory(ctx context.Context, name, description, image string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	cat, err := c.store.CreateCategory(ctx, &models.Category{Name: name, Description: strings.TrimSpace(description), Image: image})
	if err != nil {
		return nil, err
	}
	c.log.Info("category added", "category_id", cat.ID, "name", cat.Name)
	return cat, nil
}

// AddProduct requires a name, a positive price and stock, and an existing
// category. Unit defaults to "kg".
func (c *Catalog) AddProduct(ctx context.Context, np NewProduct) (*models.Product, error) {
	name := strings.TrimSpace(np.Name)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !np.Price.IsPositive():
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case np.Stock <= 0:
		return nil, fmt.Errorf("%w: stock must be positive", ErrInvalidProduct)
	case strings.TrimSpace(np.CategoryID) == "":
		return nil, fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	cats, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if !hasCategory(cats, np.CategoryID) {
		return nil, fmt.Errorf("%w: unknown category %s", ErrInvalidProduct, np.CategoryID)
	}
	unit := strings.TrimSpace(np.Unit)
	if unit == "" {
		unit = "kg"
	}
	p, err := c.store.CreateProduct(ctx, &models.Product{
		Name:        name,
		Description: strings.TrimSpace(np.Description),
		Image:       np.Image,
		Price:       np.Price,
		Stock:       np.Stock,
		Unit:        unit,
		Available:   true,
		CategoryID:  np.CategoryID,
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("product added", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// Browse loads categories and products together and applies Search.
func (c *Catalog) Browse(ctx context.Context, query, categoryID string) ([]models.Category, []ProductRow, error) {
	var (
		cats     []models.Category
		products []models.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cats, err = c.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = c.store.ListProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	return cats, Search(products, cats, query, categoryID), nil
}

// Product returns one product, or ErrNotFound.
func (c *Catalog) Product(ctx context.Context, id string) (*models.Product, error) {
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, nil
}

func (c *Catalog) DeleteProduct(ctx context.Context, id string) error {
	return notFound(c.store.DeleteProduct(ctx, id), "product", id)
}

func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	return notFound(c.store.DeleteCategory(ctx, id), "category", id)
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return err
}

func hasCategory(cats []models.Category, id string) bool {
	for _, c := range cats {
		if c.ID == id {
			return true
		}
	}
	return false
}
