package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/swiftmeds/authcore/internal/authcore/store"
	"github.com/swiftmeds/authcore/pkg/slogx"
	"github.com/swiftmeds/authcore/pkg/validate"
)

var (
	ErrUnknownUser = errors.New("unknown_user")
	ErrUnknownRole = errors.New("unknown_role")
)

// UserService covers profile access and the admin-only user management
// operations.
type UserService struct {
	Store store.Store
}

// GetByUsername resolves a user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownUser
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile applies the permitted patch fields to the user's record and
// returns the updated user. A patch that changes nothing is a successful
// no-op.
func (s *UserService) UpdateProfile(ctx context.Context, username string, patch domain.UserPatch) (domain.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return domain.User{}, err
	}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		patch.Email = &email
		if !validate.Email(email) {
			return domain.User{}, ErrInvalidEmail
		}
	}

	if !user.Apply(patch) {
		return user, nil
	}

	if err := s.Store.Users().UpdateUserEmail(ctx, user.ID, user.Email); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("profile updated", slog.Int64("user_id", user.ID))
	return user, nil
}

// List returns every user, for the admin listing.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// UpdateRole assigns a role from the closed role set to the user.
func (s *UserService) UpdateRole(ctx context.Context, id int64, role string) (domain.User, error) {
	if !domain.ValidRole(role) {
		return domain.User{}, ErrUnknownRole
	}

	if err := s.Store.Users().UpdateUserRole(ctx, id, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownUser
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("role updated",
		slog.Int64("user_id", id),
		slog.String("role", role))
	return s.Store.Users().GetUserByID(ctx, id)
}

// Delete removes the user record.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownUser
		}
		return err
	}
	slogx.FromContext(ctx).Info("user deleted", slog.Int64("user_id", id))
	return nil
}
