package service

import (
	"context"
	"testing"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/stretchr/testify/require"
)

func TestUserService(t *testing.T) {
	t.Parallel()

	auth, _, st := newTestServices(t)
	users := &UserService{Store: st}
	ctx := context.Background()

	alice, err := auth.Register(ctx, "alice", "alice@example.com", "sup3r-secret!")
	require.NoError(t, err)
	_, err = auth.Register(ctx, "bob", "bob@example.com", "sup3r-secret!")
	require.NoError(t, err)

	t.Run("get by username", func(t *testing.T) {
		got, err := users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, alice.ID, got.ID)

		_, err = users.GetByUsername(ctx, "nobody")
		require.ErrorIs(t, err, ErrUnknownUser)
	})

	t.Run("profile hides sensitive fields", func(t *testing.T) {
		p := alice.Profile()
		require.Equal(t, alice.Username, p.Username)
		require.Equal(t, alice.Email, p.Email)
	})

	t.Run("update own email", func(t *testing.T) {
		email := "alice+new@example.com"
		got, err := users.UpdateProfile(ctx, "alice", domain.UserPatch{Email: &email})
		require.NoError(t, err)
		require.Equal(t, email, got.Email)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		got, err := users.UpdateProfile(ctx, "alice", domain.UserPatch{})
		require.NoError(t, err)
		require.Equal(t, "alice+new@example.com", got.Email)
	})

	t.Run("email collisions surface distinctly", func(t *testing.T) {
		email := "bob@example.com"
		_, err := users.UpdateProfile(ctx, "alice", domain.UserPatch{Email: &email})
		require.ErrorIs(t, err, ErrEmailTaken)

		bad := "nonsense"
		_, err = users.UpdateProfile(ctx, "alice", domain.UserPatch{Email: &bad})
		require.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("list", func(t *testing.T) {
		all, err := users.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("role updates are restricted to the closed set", func(t *testing.T) {
		got, err := users.UpdateRole(ctx, alice.ID, domain.RolePharmacyAdmin)
		require.NoError(t, err)
		require.Equal(t, domain.RolePharmacyAdmin, got.Role)

		_, err = users.UpdateRole(ctx, alice.ID, "superuser")
		require.ErrorIs(t, err, ErrUnknownRole)

		_, err = users.UpdateRole(ctx, 9999, domain.RoleAdmin)
		require.ErrorIs(t, err, ErrUnknownUser)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, users.Delete(ctx, alice.ID))
		require.ErrorIs(t, users.Delete(ctx, alice.ID), ErrUnknownUser)
	})
}
