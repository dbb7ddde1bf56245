package domain

import "time"

// TokenPair is what a successful login returns: a short-lived access token
// and a long-lived refresh token. Clients treat both as opaque bearer
// strings and distinguish them only by which endpoint accepts them.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"` // always "bearer"
}

// BlacklistEntry is a revocation record. Once present, the exact token
// string fails every verification until the entry is pruned after its
// natural expiry; pruning only bounds storage growth, since an expired
// token fails the expiry check anyway.
type BlacklistEntry struct {
	ID        string // ULID
	Token     string // exact token string, unique
	ExpiresAt time.Time
	CreatedAt time.Time
}
