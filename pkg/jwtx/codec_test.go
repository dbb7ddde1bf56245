package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestIssueAndParse(t *testing.T) {
	c := NewCodec(testSecret, time.Minute, time.Hour)

	t.Run("access token round-trips", func(t *testing.T) {
		raw, err := c.IssueAccess("alice", "user")
		require.NoError(t, err)

		claims, err := c.Parse(raw, KindAccess)
		require.NoError(t, err)
		require.Equal(t, "alice", claims.Subject)
		require.Equal(t, "user", claims.Role)
		require.Equal(t, KindAccess, claims.Kind)
		require.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 5*time.Second)
	})

	t.Run("refresh token round-trips", func(t *testing.T) {
		raw, err := c.IssueRefresh("alice", "user")
		require.NoError(t, err)

		claims, err := c.Parse(raw, KindRefresh)
		require.NoError(t, err)
		require.Equal(t, KindRefresh, claims.Kind)
	})
}

func TestParse_KindSeparation(t *testing.T) {
	c := NewCodec(testSecret, time.Minute, time.Hour)

	access, err := c.IssueAccess("alice", "user")
	require.NoError(t, err)
	refresh, err := c.IssueRefresh("alice", "user")
	require.NoError(t, err)

	_, err = c.Parse(access, KindRefresh)
	require.ErrorIs(t, err, ErrInvalidToken, "access token must not verify as refresh")

	_, err = c.Parse(refresh, KindAccess)
	require.ErrorIs(t, err, ErrInvalidToken, "refresh token must not verify as access")
}

func TestParse_Expired(t *testing.T) {
	c := NewCodec(testSecret, -time.Second, -time.Second)

	raw, err := c.IssueAccess("alice", "user")
	require.NoError(t, err)

	_, err = c.Parse(raw, KindAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_WrongSecret(t *testing.T) {
	raw, err := NewCodec("secret-a", time.Minute, time.Hour).IssueAccess("alice", "user")
	require.NoError(t, err)

	_, err = NewCodec("secret-b", time.Minute, time.Hour).Parse(raw, KindAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	c := NewCodec(testSecret, time.Minute, time.Hour)

	for _, raw := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := c.Parse(raw, KindAccess)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestExpiry(t *testing.T) {
	t.Run("recovers expiry from an expired token", func(t *testing.T) {
		c := NewCodec(testSecret, -time.Hour, -time.Hour)
		raw, err := c.IssueAccess("alice", "user")
		require.NoError(t, err)

		exp, err := c.Expiry(raw)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(-time.Hour), exp, 5*time.Second)
	})

	t.Run("still requires a valid signature", func(t *testing.T) {
		raw, err := NewCodec("secret-a", time.Minute, time.Hour).IssueAccess("alice", "user")
		require.NoError(t, err)

		_, err = NewCodec("secret-b", time.Minute, time.Hour).Expiry(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := NewCodec(testSecret, time.Minute, time.Hour).Expiry("not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
