package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"groceryFulfillment/models"
)

// CatalogRepository stores categories and products.
type CatalogRepository struct {
	db     *sql.DB
	notify ChangeNotifier
}

func NewCatalogRepository(db *sql.DB, notifier ChangeNotifier) *CatalogRepository {
	return &CatalogRepository{db: db, notify: notifierOrNoop(notifier)}
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	if c == nil {
		return nil, errors.New("category is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out := *c
	out.ID = uuid.NewString()
	out.CreatedAt = time.UnixMilli(toMillis(time.Now())).UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (id, name, description, image, created_at) VALUES (?, ?, ?, ?, ?)`,
		out.ID, out.Name, nullIfEmpty(out.Description), nullIfEmpty(out.Image), toMillis(out.CreatedAt))
	if err != nil {
		return nil, err
	}
	r.notify.Notify(CollectionCategories)
	return &out, nil
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, image, created_at FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Category
	for rows.Next() {
		var c models.Category
		var desc, image sql.NullString
		var created int64
		if err := rows.Scan(&c.ID, &c.Name, &desc, &image, &created); err != nil {
			return nil, err
		}
		c.Description = desc.String
		c.Image = image.String
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes the category. Products keep their dangling category id.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	r.notify.Notify(CollectionCategories)
	return nil
}

// CreateProduct inserts a product. Unit defaults to "kg".
func (r *CatalogRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p == nil {
		return nil, errors.New("product is nil")
	}
	out := *p
	if out.Unit == "" {
		out.Unit = "kg"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out.ID = uuid.NewString()
	out.CreatedAt = time.UnixMilli(toMillis(time.Now())).UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO products (id, name, description, image, price, stock, unit, available, category_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.Name, nullIfEmpty(out.Description), nullIfEmpty(out.Image), out.Price, out.Stock, out.Unit,
		boolToInt(out.Available), nullIfEmpty(out.CategoryID), toMillis(out.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	r.notify.Notify(CollectionProducts)
	return &out, nil
}

// GetProduct returns (nil, nil) when the product does not exist.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	r.notify.Notify(CollectionProducts)
	return nil
}

const productColumns = `id, name, description, image, price, stock, unit, available, category_id, created_at`

func scanProduct(s rowScanner) (*models.Product, error) {
	var p models.Product
	var desc, image, category sql.NullString
	var available int
	var created int64
	if err := s.Scan(&p.ID, &p.Name, &desc, &image, &p.Price, &p.Stock, &p.Unit, &available, &category, &created); err != nil {
		return nil, err
	}
	p.Description = desc.String
	p.Image = image.String
	p.CategoryID = category.String
	p.Available = available != 0
	p.CreatedAt = fromMillis(created)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
