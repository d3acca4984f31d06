package repository

import (
	"context"
	"time"

	"groceryFulfillment/models"
)

// Collection names shared by the store and the live feed.
const (
	CollectionOrders     = "orders"
	CollectionUsers      = "users"
	CollectionProducts   = "products"
	CollectionCategories = "categories"
)

// ChangeNotifier is told about every committed write so live subscribers
// can be pushed a fresh snapshot of the collection.
type ChangeNotifier interface {
	Notify(collection string)
}

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Save(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	All(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id string) error
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	Update(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, id string) error
}

// CatalogRepositoryI defines operations on categories and products.
type CatalogRepositoryI interface {
	CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}

func notifierOrNoop(n ChangeNotifier) ChangeNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// nullIfEmpty stores blank strings as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
