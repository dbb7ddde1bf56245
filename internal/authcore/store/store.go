// Package store defines the persistence contract the auth core requires.
// Concrete drivers (sqlite today) implement it. Every operation is a
// single-row atomic read or write; no multi-row transaction spans a request.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface, exposing sub-repositories to
// keep concerns tidy and testable.
type Store interface {
	Users() Users
	Blacklist() Blacklist

	ApplyMigrations() error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

type Users interface {
	// CreateUser inserts a new user and returns the stored record with its
	// assigned id and timestamps. Returns ErrAlreadyExists when the
	// username or email is taken.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns all users ordered by id.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateUserEmail changes the email, bumping updated_at. Returns
	// ErrAlreadyExists when another user holds the email.
	UpdateUserEmail(ctx context.Context, id int64, email string) error

	// UpdateUserRole changes the role label, bumping updated_at.
	UpdateUserRole(ctx context.Context, id int64, role string) error

	// SetResetToken stores the fingerprint of an issued reset token and its
	// expiry on the user record, replacing any previous one.
	SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error

	// ConsumePasswordReset atomically sets the new password hash and clears
	// the reset-token fields for the user whose stored fingerprint matches
	// and whose expiry has not passed. Reports whether a row was consumed;
	// false means the token is unknown, expired or already used.
	ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (bool, error)

	// ClearExpiredResetTokens blanks reset-token fields whose expiry has
	// passed and returns the number of rows touched.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)

	// DeleteUser removes the record. Returns ErrNotFound for unknown ids.
	DeleteUser(ctx context.Context, id int64) error
}

type Blacklist interface {
	// Add stores a revocation record. Adding a token that is already
	// blacklisted is a no-op, not an error.
	Add(ctx context.Context, e domain.BlacklistEntry) error

	// IsBlacklisted reports whether the exact token string is on the ledger.
	IsBlacklisted(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes entries whose expiry is strictly before now and
	// returns the count removed. Safe to run concurrently with Add.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
