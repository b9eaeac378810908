// Package http provides the HTTP handlers and router of the development API
// server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/metrics"
	"github.com/atinyakov/CampusPortal/internal/middleware"
	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/service"
	"github.com/atinyakov/CampusPortal/internal/validation"
)

// AuthService defines the authentication operations required by the
// handlers.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Authenticate(ctx context.Context, token string) (models.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// AuthHandler handles sign-in, the current-user lookup and password changes.
type AuthHandler struct {
	AuthService AuthService
	Log         *zap.Logger
}

// TokenResponse is the body of a successful POST /login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login handles POST /login. It expects {"email","password"} and answers
// 401 for wrong credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginForm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("bad_request").Inc()
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		http.Error(w, "incorrect email or password", http.StatusUnauthorized)
		return
	case err != nil:
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		h.logger().Error("login failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /me and returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword handles POST /change-password. Tokens issued before the
// change, including the caller's, stop working.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req validation.ChangePasswordForm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	err := h.AuthService.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, "old password is incorrect", http.StatusBadRequest)
		return
	case err != nil:
		h.logger().Error("change password failed", zap.String("user_id", user.ID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger().Info("password changed", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
