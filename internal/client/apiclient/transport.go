// Package apiclient is the portal's single HTTP path to the campus API.
//
// Every request goes through Transport, which attaches the persisted bearer
// token, logs the exchange and reacts to 401 responses by purging the token
// and notifying the session layer. Pages never set auth headers themselves.
package apiclient

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/client/credstore"
)

// Transport is an http.RoundTripper that injects credentials and observes
// authentication failures. It never turns a response into an error.
type Transport struct {
	// Base performs the actual round trip. http.DefaultTransport when nil.
	Base http.RoundTripper
	// Creds is read before every request and cleared on a 401.
	Creds credstore.Store
	// Log receives one entry per exchange. The token is never logged.
	Log *zap.Logger

	mu             sync.Mutex
	onUnauthorized func()
	// hookGen identifies the installed hook so a stale disposer is a no-op.
	hookGen uint64
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := t.logger()

	token, err := t.Creds.Load()
	if err != nil {
		log.Warn("read credentials", zap.Error(err))
	}
	if token != "" {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	log.Debug("api request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Bool("authenticated", token != ""),
	)

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		log.Error("api no response",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Error(err),
		)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		log.Warn("api unauthorized, purging credentials", fields...)
		t.purge(token)
	case resp.StatusCode >= 400:
		log.Info("api error response", fields...)
	default:
		log.Debug("api response", fields...)
	}
	return resp, nil
}

// purge clears the token the rejected request carried and signals the
// session layer. A token saved since the request was sent (a fresh login)
// is left alone and no signal is sent. A request without a token changes
// nothing, so a rejected login attempt does not look like an expired session.
func (t *Transport) purge(sent string) {
	if sent == "" {
		return
	}
	cleared, err := t.Creds.ClearIf(sent)
	if err != nil {
		t.logger().Error("purge credentials", zap.Error(err))
	}
	if !cleared && err == nil {
		t.logger().Debug("stale 401, credentials replaced since the request was sent")
		return
	}
	t.mu.Lock()
	hook := t.onUnauthorized
	t.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (t *Transport) setHook(fn func()) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.onUnauthorized != nil {
		return 0, false
	}
	t.hookGen++
	t.onUnauthorized = fn
	return t.hookGen, true
}

func (t *Transport) clearHook(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hookGen == gen {
		t.onUnauthorized = nil
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *zap.Logger {
	if t.Log != nil {
		return t.Log
	}
	return zap.NewNop()
}
