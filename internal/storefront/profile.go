package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"groceryFulfillment/models"
)

var ErrInvalidProfile = errors.New("invalid profile")

// ProfileStore upserts customer records.
type ProfileStore interface {
	Save(ctx context.Context, u *models.User) (*models.User, error)
}

// Profile is the registration / account form.
type Profile struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// SaveProfile stores the signed-in customer's contact details under their id.
func SaveProfile(ctx context.Context, store ProfileStore, userID string, p Profile) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrNotSignedIn
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	return store.Save(ctx, &models.User{
		ID:      userID,
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.TrimSpace(p.Email),
		Phone:   strings.TrimSpace(p.Phone),
		Address: strings.TrimSpace(p.Address),
	})
}
