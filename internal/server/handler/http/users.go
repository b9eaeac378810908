package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/service"
)

// UserService defines the account administration operations.
type UserService interface {
	CreateUser(ctx context.Context, in service.NewUser) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// UserHandler serves the admin user endpoints.
type UserHandler struct {
	UserService UserService
}

// List handles GET /admin/users/.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Create handles POST /admin/users/.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	u, err := h.UserService.CreateUser(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, service.ErrUserExists):
		http.Error(w, "user already exists", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
