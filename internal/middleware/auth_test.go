package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/service"
)

// dummyHandler records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type fakeAuth struct {
	token string
	user  models.User
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (models.User, error) {
	if token == "db-down" {
		return models.User{}, errors.New("pq: connection refused")
	}
	if token != f.token {
		return models.User{}, service.ErrInvalidToken
	}
	return f.user, nil
}

func TestBearerAuth(t *testing.T) {
	auth := fakeAuth{token: "good", user: models.User{ID: "u1", Role: models.RoleStudent}}

	tests := []struct {
		name       string
		header     string
		wantCode   int
		wantCalled bool
	}{
		{"no header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, false},
		{"empty token", "Bearer ", http.StatusUnauthorized, false},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, false},
		{"storage failure", "Bearer db-down", http.StatusInternalServerError, false},
		{"valid token", "Bearer good", http.StatusOK, true},
		{"lowercase scheme", "bearer good", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BearerAuth(auth)(dummy)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if dummy.called != tt.wantCalled {
				t.Errorf("handler called = %v; want %v", dummy.called, tt.wantCalled)
			}
			if tt.wantCalled {
				u, ok := GetUserFromContext(dummy.ctx)
				if !ok || u.ID != "u1" {
					t.Errorf("expected user u1 in context, got %+v", u)
				}
			} else if tt.wantCode == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("expected WWW-Authenticate header on 401")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		wantCode int
	}{
		{"no user", context.Background(), http.StatusUnauthorized},
		{"wrong role", WithUser(context.Background(), models.User{Role: models.RoleStudent}), http.StatusForbidden},
		{"allowed role", WithUser(context.Background(), models.User{Role: models.RoleAdmin}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := RequireRole(models.RoleAdmin)(dummy)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/users/", nil).WithContext(tt.ctx)
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestGetUserFromContext(t *testing.T) {
	if _, ok := GetUserFromContext(context.Background()); ok {
		t.Error("expected no user in empty context")
	}
	u, ok := GetUserFromContext(WithUser(context.Background(), models.User{ID: "bob"}))
	if !ok || u.ID != "bob" {
		t.Errorf("expected 'bob', got %+v", u)
	}
}
