package models

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is a customer or operator profile keyed by the identity provider's user id.
// Name is what the storefront collects at registration; DisplayName comes from the identity profile.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user may operate the back-office.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
