package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/atinyakov/CampusPortal/internal/client/apiclient"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// API is the subset of the campus API the session store depends on.
type API interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, email, password string) (string, error)
	// Me returns the identity bound to the token the transport attaches.
	Me(ctx context.Context) (models.User, error)
	// ChangePassword updates the current user's password.
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// HTTPAPI implements API on top of an apiclient.Client.
type HTTPAPI struct {
	c *apiclient.Client
}

var _ API = (*HTTPAPI)(nil)

// NewHTTPAPI wraps c.
func NewHTTPAPI(c *apiclient.Client) *HTTPAPI {
	return &HTTPAPI{c: c}
}

// Login calls POST /login.
func (a *HTTPAPI) Login(ctx context.Context, email, password string) (string, error) {
	var resp LoginResponse
	if err := a.c.Post(ctx, "/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", ErrNoToken
	}
	return resp.AccessToken, nil
}

// Me calls GET /me.
func (a *HTTPAPI) Me(ctx context.Context) (models.User, error) {
	var u models.User
	if err := a.c.Get(ctx, "/me", nil, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// ChangePassword calls POST /change-password.
func (a *HTTPAPI) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return a.c.Post(ctx, "/change-password", changePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, nil)
}

// classifyLogin maps a POST /login failure to the session error taxonomy,
// keeping the cause in the chain.
func classifyLogin(err error) error {
	if errors.Is(err, ErrNoToken) {
		return err
	}
	status, ok := apiclient.StatusOf(err)
	switch {
	case !ok, status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
}
