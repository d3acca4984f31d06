package repository

import (
	"context"
	"testing"

	"groceryFulfillment/models"
)

func TestUserRepository_SaveAndQueries(t *testing.T) {
	d := openDB(t, "userrepo")
	n := &recordingNotifier{}
	repo := NewUserRepository(d, n)
	ctx := context.Background()

	u, err := repo.Save(ctx, &models.User{ID: "uid-1", Name: "Mario Rossi", Email: "mario@example.com", Phone: "333"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if u.Role != models.RoleCustomer || u.Name != "Mario Rossi" {
		t.Fatalf("unexpected saved user: %+v", u)
	}

	// upsert keeps the role and created_at
	if err := repo.UpdateRole(ctx, "uid-1", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	u2, err := repo.Save(ctx, &models.User{ID: "uid-1", Name: "Mario", Email: "mario@example.com"})
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if u2.Role != models.RoleAdmin || u2.Name != "Mario" || u2.Phone != "" {
		t.Fatalf("unexpected upserted user: %+v", u2)
	}
	if !u2.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("createdAt changed on upsert")
	}

	g, err := repo.FetchUser(ctx, "uid-1")
	if err != nil || g == nil || !g.IsAdmin() {
		t.Fatalf("fetch: %v %+v", err, g)
	}

	list, err := repo.List(ctx, 10, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	all, err := repo.All(ctx)
	if err != nil || len(all) != 1 || all[0].ID != "uid-1" {
		t.Fatalf("all: %v %+v", err, all)
	}

	if err := repo.Delete(ctx, "uid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := repo.GetByID(ctx, "uid-1")
	if err != nil || gone != nil {
		t.Fatalf("expected user gone, got %v %+v", err, gone)
	}
	if n.count(CollectionUsers) != 4 {
		t.Fatalf("expected 4 user notifications, got %v", n.calls)
	}
}

func TestUserRepository_SaveRequiresID(t *testing.T) {
	repo := NewUserRepository(openDB(t, "userrepo_noid"), nil)
	if _, err := repo.Save(context.Background(), &models.User{ID: "  "}); err == nil {
		t.Fatalf("expected error for blank id")
	}
}
