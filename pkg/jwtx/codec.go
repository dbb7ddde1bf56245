// Package jwtx signs and verifies the service's access and refresh tokens.
//
// Tokens are HS256 JWTs signed with a single server-held secret. Every token
// carries a "typ" claim naming its kind so a long-lived refresh token can
// never be replayed where a short-lived access token is expected.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken covers every verification failure: bad signature,
// malformed structure, expiry, and kind mismatch. Callers cannot tell these
// apart, which is deliberate.
var ErrInvalidToken = errors.New("jwtx: invalid token")

var signingMethods = []string{jwt.SigningMethodHS256.Alg()}

// Claims are the verified contents of a token.
type Claims struct {
	Subject   string // username
	Role      string
	Kind      Kind
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type wireClaims struct {
	Role string `json:"role"`
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec issues and parses tokens for a single signing secret. TTLs are fixed
// at construction so tests can use short or negative lifetimes.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	if accessTTL == 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess mints a short-lived access token for the subject.
func (c *Codec) IssueAccess(subject, role string) (string, error) {
	return c.issue(subject, role, KindAccess, c.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the subject.
func (c *Codec) IssueRefresh(subject, role string) (string, error) {
	return c.issue(subject, role, KindRefresh, c.refreshTTL)
}

func (c *Codec) issue(subject, role string, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := wireClaims{
		Role: role,
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Parse verifies signature, structure, expiry and kind, failing closed with
// ErrInvalidToken on any of them.
func (c *Codec) Parse(raw string, want Kind) (Claims, error) {
	var wc wireClaims
	tok, err := jwt.ParseWithClaims(raw, &wc, c.keyFunc, jwt.WithValidMethods(signingMethods))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if Kind(wc.Kind) != want || wc.Subject == "" || wc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		Subject:   wc.Subject,
		Role:      wc.Role,
		Kind:      Kind(wc.Kind),
		ExpiresAt: wc.ExpiresAt.Time,
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	return claims, nil
}

// Expiry recovers the expiry instant from a signed token without validating
// claims, so an already-expired token can still be placed on the revocation
// ledger for its natural lifetime. The signature must still verify.
func (c *Codec) Expiry(raw string) (time.Time, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(signingMethods), jwt.WithoutClaimsValidation())

	var wc wireClaims
	tok, err := parser.ParseWithClaims(raw, &wc, c.keyFunc)
	if err != nil || !tok.Valid || wc.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}
	return wc.ExpiresAt.Time, nil
}

func (c *Codec) keyFunc(_ *jwt.Token) (any, error) {
	return c.secret, nil
}
