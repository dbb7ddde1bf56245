// Package domain holds the entities the auth core operates on.
package domain

import "time"

// Roles form a closed set. Role labels ride inside access tokens and drive
// every authorization decision, so unknown labels are rejected at the edge.
const (
	RoleUser            = "user"
	RoleAdmin           = "admin"
	RolePharmacyAdmin   = "pharmacy_admin"
	RolePharmacist      = "pharmacist"
	RoleDeliveryPartner = "delivery_partner"
)

var knownRoles = map[string]struct{}{
	RoleUser:            {},
	RoleAdmin:           {},
	RolePharmacyAdmin:   {},
	RolePharmacist:      {},
	RoleDeliveryPartner: {},
}

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	_, ok := knownRoles[role]
	return ok
}

// User is the identity record. PasswordHash is opaque and never empty once
// set; ResetTokenHash is present iff a password-reset flow is in progress.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Active       bool

	ResetTokenHash    string
	ResetTokenExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicProfile is the client-visible projection of a User. The password
// hash and reset-token fields never leave the service.
type PublicProfile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile returns the public projection of u.
func (u User) Profile() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

// UserPatch enumerates the fields a caller may change through the generic
// profile-update path. Role, password hash and the active flag are absent on
// purpose: they move only through their dedicated operations, so a crafted
// update payload cannot mass-assign them.
type UserPatch struct {
	Email *string `json:"email"`
}

// Apply merges the permitted fields of p into u and reports whether
// anything changed.
func (u *User) Apply(p UserPatch) bool {
	changed := false
	if p.Email != nil && *p.Email != u.Email {
		u.Email = *p.Email
		changed = true
	}
	return changed
}
