// Package service holds the auth core's business rules: registration,
// login, the token lifecycle, password reset and user administration.
// Handlers translate its sentinel errors into HTTP responses.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/swiftmeds/authcore/internal/authcore/store"
	"github.com/swiftmeds/authcore/pkg/cryptox"
	"github.com/swiftmeds/authcore/pkg/jwtx"
	"github.com/swiftmeds/authcore/pkg/slogx"
	"github.com/swiftmeds/authcore/pkg/validate"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("weak_password")
)

// AuthService implements registration, login, token refresh and logout.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
}

// Register validates and sanitizes the input, hashes the password and
// creates the user with the default role. Username and email uniqueness is
// enforced by the store; which field collided is reported distinctly so the
// client can surface a useful message.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	// Password strength is checked before the identity fields so a request
	// failing both reports the weak password.
	if !validate.PasswordStrength(password) {
		return domain.User{}, ErrWeakPassword
	}

	username = validate.Sanitize(username)
	email = validate.Sanitize(email)

	if !validate.Username(username) {
		return domain.User{}, ErrInvalidUsername
	}
	if !validate.Email(email) {
		return domain.User{}, ErrInvalidEmail
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.Store.Users().CreateUser(ctx, domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, s.whichTaken(ctx, username)
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username))
	return user, nil
}

// whichTaken disambiguates a uniqueness violation after the fact: if the
// username now resolves it was the username, otherwise the email.
func (s *AuthService) whichTaken(ctx context.Context, username string) error {
	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

// Login verifies the credentials and mints a token pair. Unknown usernames,
// wrong passwords and deactivated accounts all produce the same error so
// the response cannot be used to probe which usernames exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	username = validate.Sanitize(username)
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login failed", slog.String("username", username), slog.String("reason", "unknown_user"))
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed", slog.String("username", username), slog.String("reason", "bad_password"))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if !user.Active {
		l.Info("login failed", slog.String("username", username), slog.String("reason", "inactive"))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.Tokens.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	l.Info("login succeeded", slog.Int64("user_id", user.ID))
	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// refresh token itself is not rotated; it stays usable until expiry or an
// explicit logout.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.Tokens.Verify(ctx, refreshToken, jwtx.KindRefresh)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}
	if !user.Active {
		return domain.TokenPair{}, ErrInvalidToken
	}

	return s.Tokens.IssueAccess(user)
}

// Logout revokes the presented token. It always succeeds for reachable
// storage, whether or not the token was valid or already revoked.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.Tokens.Revoke(ctx, token)
}
