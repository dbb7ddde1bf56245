package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/swiftmeds/authcore/internal/authcore/store"
	"github.com/swiftmeds/authcore/pkg/idx"
	"github.com/swiftmeds/authcore/pkg/jwtx"
	"github.com/swiftmeds/authcore/pkg/slogx"
)

// revokeFallbackTTL bounds how long an undecodable token stays on the
// blacklist when its own expiry cannot be recovered.
const revokeFallbackTTL = time.Hour

var ErrInvalidToken = errors.New("invalid_token")

// TokenService mints and verifies the signed access/refresh token pair and
// keeps the revocation ledger.
type TokenService struct {
	Codec *jwtx.Codec
	Store store.Store
}

// IssuePair mints a fresh access and refresh token for the user.
func (s *TokenService) IssuePair(u domain.User) (domain.TokenPair, error) {
	access, err := s.Codec.IssueAccess(u.Username, u.Role)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Codec.IssueRefresh(u.Username, u.Role)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// IssueAccess mints an access token only, as the refresh flow does. The
// presented refresh token stays valid until it expires or is revoked.
func (s *TokenService) IssueAccess(u domain.User) (domain.TokenPair, error) {
	access, err := s.Codec.IssueAccess(u.Username, u.Role)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken: access,
		TokenType:   "bearer",
	}, nil
}

// Verify checks the token's signature, expiry and kind, and consults the
// revocation ledger. Both checks always run; a failure in either yields
// ErrInvalidToken so callers cannot distinguish a forged token from a
// revoked one.
func (s *TokenService) Verify(ctx context.Context, raw string, want jwtx.Kind) (jwtx.Claims, error) {
	claims, parseErr := s.Codec.Parse(raw, want)

	revoked, err := s.Store.Blacklist().IsBlacklisted(ctx, raw)
	if err != nil {
		return jwtx.Claims{}, err
	}

	if parseErr != nil || revoked {
		return jwtx.Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Revoke places the exact token string on the blacklist. Revoking is
// idempotent and succeeds even for malformed tokens, so a logout can never
// fail in a way that leaks whether the presented token was genuine.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	expires, err := s.Codec.Expiry(raw)
	if err != nil {
		// Undecodable tokens get a bounded retention window.
		expires = time.Now().Add(revokeFallbackTTL)
	}

	return s.Store.Blacklist().Add(ctx, domain.BlacklistEntry{
		ID:        idx.New().String(),
		Token:     raw,
		ExpiresAt: expires,
	})
}

// PruneExpired drops blacklist entries past their natural expiry and
// returns the count removed.
func (s *TokenService) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.Store.Blacklist().DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slogx.FromContext(ctx).Debug("pruned expired blacklist entries", slog.Int64("count", n))
	}
	return n, nil
}
