package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/swiftmeds/authcore/internal/authcore/service"
	"github.com/swiftmeds/authcore/internal/authcore/store"
	"github.com/swiftmeds/authcore/internal/authcore/store/drivers/sqlite"
	"github.com/swiftmeds/authcore/pkg/cryptox"
	"github.com/swiftmeds/authcore/pkg/httpx"
	"github.com/swiftmeds/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// generousLimits keeps throttling out of the way for the flow tests; the
// rate limit behaviour has its own test with tight ceilings.
var generousLimits = RateLimits{
	Login:    httpx.RateLimitConfig{Requests: 1000, Window: time.Minute},
	Register: httpx.RateLimitConfig{Requests: 1000, Window: time.Minute},
	Reset:    httpx.RateLimitConfig{Requests: 1000, Window: time.Minute},
	General:  httpx.RateLimitConfig{Requests: 1000, Window: time.Minute},
}

func newTestServer(t *testing.T, limits RateLimits) (*httptest.Server, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens := &service.TokenService{
		Codec: jwtx.NewCodec("router-test-secret", 0, 0),
		Store: st,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, limits, httpx.NewLocalRateLimitStore())
	router.AuthService = &service.AuthService{Store: st, Tokens: tokens}
	router.TokenService = tokens
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func registerAndLogin(t *testing.T, baseURL, username, email, password string) (access, refresh string) {
	t.Helper()

	resp, _ := doJSON(t, http.MethodPost, baseURL+"/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestRouter_AuthFlow(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, generousLimits)

	access, refresh := registerAndLogin(t, srv.URL, "alice", "alice@example.com", "sup3r-secret!")

	t.Run("me returns the profile", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/auth/me", access, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "alice", body["username"])
		require.Equal(t, "user", body["role"])
		require.NotContains(t, body, "password_hash")
	})

	t.Run("me requires a token", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/auth/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Not authenticated", body["detail"])
	})

	t.Run("profile email update", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPut, srv.URL+"/auth/me", access, map[string]string{
			"email": "alice+new@example.com",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "alice+new@example.com", body["email"])
	})

	t.Run("refresh then use the new access token", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
			"refresh_token": refresh,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotContains(t, body, "refresh_token")

		fresh := body["access_token"].(string)
		resp, _ = doJSON(t, http.MethodGet, srv.URL+"/auth/me", fresh, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
			"refresh_token": access,
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid refresh token", body["detail"])
	})

	t.Run("logout revokes the access token", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/logout", access, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Successfully logged out", body["detail"])

		resp, _ = doJSON(t, http.MethodGet, srv.URL+"/auth/me", access, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		// Logging out again with the dead token still succeeds.
		resp, _ = doJSON(t, http.MethodPost, srv.URL+"/auth/logout", access, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("bad login", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
			"username": "alice", "password": "wrong-password!",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Incorrect username or password", body["detail"])
	})
}

func TestRouter_PasswordReset(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t, generousLimits)
	registerAndLogin(t, srv.URL, "alice", "alice@example.com", "sup3r-secret!")

	t.Run("known and unknown emails answer identically", func(t *testing.T) {
		respKnown, bodyKnown := doJSON(t, http.MethodPost, srv.URL+"/auth/forgot-password", "", map[string]string{
			"email": "alice@example.com",
		})
		respUnknown, bodyUnknown := doJSON(t, http.MethodPost, srv.URL+"/auth/forgot-password", "", map[string]string{
			"email": "stranger@example.com",
		})
		require.Equal(t, http.StatusOK, respKnown.StatusCode)
		require.Equal(t, respKnown.StatusCode, respUnknown.StatusCode)
		require.Equal(t, bodyKnown, bodyUnknown)
	})

	t.Run("invalid token is refused", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/reset-password", "", map[string]string{
			"token": "nonsense", "new_password": "n3w-secret!",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "Invalid or expired reset token", body["detail"])
	})

	// The reset token only exists as a fingerprint server side, so the only
	// handle a test has is seeding the fingerprint directly.
	t.Run("reset with a seeded token", func(t *testing.T) {
		user, err := st.Users().GetUserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)

		const token = "seeded-reset-token"
		require.NoError(t, st.Users().SetResetToken(context.Background(), user.ID,
			cryptox.FingerprintToken(token), time.Now().Add(time.Hour)))

		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/reset-password", "", map[string]string{
			"token": token, "new_password": "n3w-secret!",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
			"username": "alice", "password": "n3w-secret!",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRouter_AdminEndpoints(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t, generousLimits)
	ctx := context.Background()

	_, _ = registerAndLogin(t, srv.URL, "alice", "alice@example.com", "sup3r-secret!")
	adminAccess, _ := registerAndLogin(t, srv.URL, "root", "root@example.com", "sup3r-secret!")
	userAccess, _ := registerAndLogin(t, srv.URL, "bob", "bob@example.com", "sup3r-secret!")

	rootUser, err := st.Users().GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	require.NoError(t, st.Users().UpdateUserRole(ctx, rootUser.ID, domain.RoleAdmin))

	aliceUser, err := st.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)

	t.Run("plain users are refused", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/users", userAccess, nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, "Not enough permissions", body["detail"])
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+"/users", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin lists users", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/users", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+adminAccess)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var profiles []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&profiles))
		require.Len(t, profiles, 3)
	})

	t.Run("admin changes a role", func(t *testing.T) {
		url := fmt.Sprintf("%s/users/%d/role", srv.URL, aliceUser.ID)
		resp, body := doJSON(t, http.MethodPut, url, adminAccess, map[string]string{
			"role": domain.RolePharmacist,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, domain.RolePharmacist, body["role"])
	})

	t.Run("unknown role is a bad request", func(t *testing.T) {
		url := fmt.Sprintf("%s/users/%d/role", srv.URL, aliceUser.ID)
		resp, body := doJSON(t, http.MethodPut, url, adminAccess, map[string]string{
			"role": "superuser",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "Unknown role", body["detail"])
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPut, srv.URL+"/users/99999/role", adminAccess, map[string]string{
			"role": domain.RoleUser,
		})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("admin deletes a user", func(t *testing.T) {
		url := fmt.Sprintf("%s/users/%d", srv.URL, aliceUser.ID)
		resp, body := doJSON(t, http.MethodDelete, url, adminAccess, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "User deleted", body["detail"])

		resp, _ = doJSON(t, http.MethodDelete, url, adminAccess, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRouter_LogoutTokenSources(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, generousLimits)
	_, refresh := registerAndLogin(t, srv.URL, "alice", "alice@example.com", "sup3r-secret!")

	t.Run("body token is revoked when no header is sent", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/logout", "", map[string]string{
			"token": refresh,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Successfully logged out", body["detail"])

		resp, _ = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
			"refresh_token": refresh,
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing token still answers 200", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/logout", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Successfully logged out", body["detail"])
	})
}

func TestRouter_GeneralLimitKeyedByUser(t *testing.T) {
	t.Parallel()

	limits := generousLimits
	limits.General = httpx.RateLimitConfig{Requests: 2, Window: time.Minute}
	srv, _ := newTestServer(t, limits)

	aliceAccess, _ := registerAndLogin(t, srv.URL, "alice", "alice@example.com", "sup3r-secret!")
	bobAccess, _ := registerAndLogin(t, srv.URL, "bob", "bob@example.com", "sup3r-secret!")

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+"/auth/me", aliceAccess, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// Bob shares the client address but gets his own bucket.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/auth/me", bobAccess, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/auth/me", aliceAccess, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "Rate limit exceeded", body["detail"])
}

func TestRouter_InactiveAccountToken(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t, generousLimits)
	ctx := context.Background()

	_, err := st.Users().CreateUser(ctx, domain.User{
		Username:     "ghost",
		Email:        "ghost@example.com",
		PasswordHash: "$argon2id$dummy",
		Role:         domain.RoleUser,
		Active:       false,
	})
	require.NoError(t, err)

	token, err := jwtx.NewCodec("router-test-secret", 0, 0).IssueAccess("ghost", domain.RoleUser)
	require.NoError(t, err)

	// The answer matches any other bad token so the account state stays
	// hidden from a stolen-token holder.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/auth/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Could not validate credentials", body["detail"])
}

func TestRouter_SecurityHeadersAndHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, generousLimits)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])

	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
	require.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestRouter_RateLimiting(t *testing.T) {
	t.Parallel()

	limits := generousLimits
	limits.Login = httpx.RateLimitConfig{Requests: 3, Window: time.Minute}
	srv, _ := newTestServer(t, limits)

	payload := map[string]string{"username": "ghost", "password": "whatever!"}
	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", payload)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", payload)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "Rate limit exceeded", body["detail"])
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Other endpoint classes are untouched by the exhausted login bucket.
	respReg, _ := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": "sup3r-secret!",
	})
	require.Equal(t, http.StatusCreated, respReg.StatusCode)
}
