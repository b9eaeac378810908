package shell

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenPreviewLen is how much of the token the inspector reveals.
const tokenPreviewLen = 20

// TokenInfo describes a stored token without verifying it.
type TokenInfo struct {
	Preview   string
	Subject   string
	ExpiresAt time.Time
	// Opaque is set when the token is not a parseable JWT.
	Opaque bool
}

// Expired reports whether the token carries an expiry before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// InspectToken extracts display details from token. The signature is not
// checked; only the server can do that.
func InspectToken(token string) TokenInfo {
	info := TokenInfo{Preview: preview(token)}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		info.Opaque = true
		return info
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	return info
}

func preview(token string) string {
	if len(token) <= tokenPreviewLen {
		return token
	}
	return token[:tokenPreviewLen] + "..."
}

func (s *Shell) inspectToken() {
	token, err := s.creds.Load()
	if err != nil {
		s.showError(err)
		return
	}
	u, hasUser := s.sess.CurrentUser()

	t := newTable(s.out)
	if hasUser {
		t.row("User", u.Email)
		t.row("Role", string(u.Role))
	} else {
		t.row("User", "not logged in")
	}
	if token == "" {
		t.row("Token", "none stored")
		t.flush()
		return
	}

	info := InspectToken(token)
	t.row("Token", info.Preview)
	switch {
	case info.Opaque:
		t.row("Format", "opaque (not a JWT)")
	case info.ExpiresAt.IsZero():
		t.row("Expires", "no expiry claim")
	default:
		status := "valid"
		if info.Expired(time.Now()) {
			status = "expired"
		}
		t.row("Expires", info.ExpiresAt.Local().Format(time.RFC1123)+" ("+status+")")
	}
	if info.Subject != "" {
		t.row("Subject", info.Subject)
	}
	t.flush()
}
