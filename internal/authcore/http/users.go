package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/swiftmeds/authcore/internal/authcore/service"
	"github.com/swiftmeds/authcore/pkg/httpx"
)

// ProfileHandler serves the authenticated user's own profile.
type ProfileHandler struct {
	Users *service.UserService
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var patch domain.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.Users.UpdateProfile(r.Context(), user.Username, patch)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.Error(w, http.StatusBadRequest, "Invalid email address")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.Error(w, http.StatusBadRequest, "Email already registered")
		default:
			serverError(w, r, err)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, updated.Profile())
}

// AdminHandler serves the admin-only user management endpoints. The router
// gates every route here on the admin role.
type AdminHandler struct {
	Users *service.UserService
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}

	profiles := make([]domain.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, profiles)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Users.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownRole):
			httpx.Error(w, http.StatusBadRequest, "Unknown role")
		case errors.Is(err, service.ErrUnknownUser):
			httpx.Error(w, http.StatusNotFound, "User not found")
		default:
			serverError(w, r, err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.Users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrUnknownUser) {
			httpx.Error(w, http.StatusNotFound, "User not found")
			return
		}
		serverError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"detail": "User deleted"})
}
