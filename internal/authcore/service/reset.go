package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/swiftmeds/authcore/internal/authcore/store"
	"github.com/swiftmeds/authcore/pkg/cryptox"
	"github.com/swiftmeds/authcore/pkg/slogx"
	"github.com/swiftmeds/authcore/pkg/validate"
)

// resetTokenTTL is how long an issued password-reset token stays valid.
const resetTokenTTL = time.Hour

var ErrInvalidResetToken = errors.New("invalid_reset_token")

// ForgotPassword issues a single-use reset token for the account behind
// email, storing only its fingerprint. When the email is unknown it returns
// an empty token and no error, so the handler responds identically either
// way and the endpoint cannot be used to enumerate accounts. Issuing a new
// token replaces any earlier one.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email")
			return "", nil
		}
		return "", err
	}

	token, err := cryptox.GenerateToken(cryptox.ResetTokenSize)
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(resetTokenTTL)
	if err := s.Store.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), expires); err != nil {
		return "", err
	}

	l.Info("password reset token issued", slog.Int64("user_id", user.ID))
	return token, nil
}

// ResetPassword consumes a reset token and sets the new password. The
// lookup, expiry check and consumption happen in one store operation, so a
// token can be spent exactly once even under concurrent attempts.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !validate.PasswordStrength(newPassword) {
		return ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	ok, err := s.Store.Users().ConsumePasswordReset(ctx, cryptox.FingerprintToken(token), hash, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}

	slogx.FromContext(ctx).Info("password reset completed")
	return nil
}
