package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/swiftmeds/authcore/internal/authcore/service"
	"github.com/swiftmeds/authcore/pkg/httpx"
	"github.com/swiftmeds/authcore/pkg/slogx"
)

// AuthHandler serves the credential and token lifecycle endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			httpx.Error(w, http.StatusBadRequest, "Username must be 3-20 characters: letters, digits and underscores")
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.Error(w, http.StatusBadRequest, "Invalid email address")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.Error(w, http.StatusBadRequest, "Password must be at least 8 characters and contain a special character")
		case errors.Is(err, service.ErrUsernameTaken):
			httpx.Error(w, http.StatusBadRequest, "Username already registered")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.Error(w, http.StatusBadRequest, "Email already registered")
		default:
			serverError(w, r, err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, user.Profile())
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// One message for unknown user, wrong password and
			// deactivated account.
			httpx.Error(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		serverError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			httpx.Error(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		serverError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type logoutRequest struct {
	Token string `json:"token"`
}

// Logout revokes the presented token, taken from the bearer header or the
// request body. Revocation is best effort and the response is 200 whether
// the token was valid, already revoked, garbage or absent, so logout never
// acts as an oracle for token validity.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		var req logoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			raw = req.Token
		}
	}

	if raw != "" {
		if err := h.Auth.Logout(r.Context(), raw); err != nil {
			serverError(w, r, err)
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"detail": "Successfully logged out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword responds identically whether or not the email maps to an
// account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		serverError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"detail": "If the email exists, a password reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			httpx.Error(w, http.StatusBadRequest, "Password must be at least 8 characters and contain a special character")
		case errors.Is(err, service.ErrInvalidResetToken):
			httpx.Error(w, http.StatusBadRequest, "Invalid or expired reset token")
		default:
			serverError(w, r, err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"detail": "Password has been reset successfully"})
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.Error(w, http.StatusInternalServerError, "Internal server error")
}
