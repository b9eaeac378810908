package session

import "errors"

var (
	// ErrMissingCredentials is returned by Login when the email or the
	// password is empty. No request is made.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrInvalidCredentials is returned when the API rejects the login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnreachable is returned when the API could not be reached or
	// answered with a server error.
	ErrUnreachable = errors.New("authentication service unreachable")

	// ErrNoToken is returned when a successful login response carries no
	// access token.
	ErrNoToken = errors.New("login response has no access token")
)
