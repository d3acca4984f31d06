package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"groceryFulfillment/models"
)

type UserRepository struct {
	db     *sql.DB
	notify ChangeNotifier
}

func NewUserRepository(db *sql.DB, notifier ChangeNotifier) *UserRepository {
	return &UserRepository{db: db, notify: notifierOrNoop(notifier)}
}

// Save upserts the profile keyed by u.ID (the identity provider's user id).
// Role defaults to 'customer' on insert and is preserved on update when empty.
func (r *UserRepository) Save(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil || strings.TrimSpace(u.ID) == "" {
		return nil, errors.New("user id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, display_name, email, phone, address, role, created_at)
VALUES (?, ?, ?, ?, ?, ?, COALESCE(?, 'customer'), ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  display_name = excluded.display_name,
  email = excluded.email,
  phone = excluded.phone,
  address = excluded.address,
  role = COALESCE(?, users.role)`,
		u.ID, nullIfEmpty(u.Name), nullIfEmpty(u.DisplayName), nullIfEmpty(u.Email), nullIfEmpty(u.Phone),
		nullIfEmpty(u.Address), nullIfEmpty(u.Role), toMillis(time.Now()), nullIfEmpty(u.Role))
	if err != nil {
		return nil, err
	}
	saved, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	r.notify.Notify(CollectionUsers)
	return saved, nil
}

// GetByID returns the user record, or (nil, nil) when no record exists.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT id, name, display_name, email, phone, address, role, created_at FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// FetchUser satisfies the customer directory contract of the fulfillment core.
func (r *UserRepository) FetchUser(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return r.query(ctx, `SELECT id, name, display_name, email, phone, address, role, created_at FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, offset)
}

// All returns every user record. It loads the live users feed.
func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	return r.query(ctx, `SELECT id, name, display_name, email, phone, address, role, created_at FROM users ORDER BY created_at, id`)
}

func (r *UserRepository) query(ctx context.Context, q string, args ...any) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return err
	}
	r.notify.Notify(CollectionUsers)
	return nil
}

// UpdateRole sets the role for the given user id.
// Intended for administrative flows and tests.
func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	r.notify.Notify(CollectionUsers)
	return nil
}

func scanUser(s rowScanner) (*models.User, error) {
	var u models.User
	var name, displayName, email, phone, address sql.NullString
	var created int64
	if err := s.Scan(&u.ID, &name, &displayName, &email, &phone, &address, &u.Role, &created); err != nil {
		return nil, err
	}
	u.Name = name.String
	u.DisplayName = displayName.String
	u.Email = email.String
	u.Phone = phone.String
	u.Address = address.String
	u.CreatedAt = fromMillis(created)
	return &u, nil
}
