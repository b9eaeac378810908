package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CampusPortal/internal/client/credstore"
)

func newTestClient(t *testing.T, h http.Handler, creds credstore.Store) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/", Creds: creds})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Creds: credstore.NewMemory("")})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "::not a url", Creds: credstore.NewMemory("")})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "http://api.test"})
	assert.Error(t, err)
}

func TestClient_GetDecodesJSONWithQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/student/events/", r.URL.Path)
		assert.Equal(t, "0", r.URL.Query().Get("skip"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "e1"}})
	}), credstore.NewMemory("tok"))

	var out []map[string]string
	err := c.Get(context.Background(), "/student/events/", url.Values{"skip": {"0"}}, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0]["id"])
}

func TestClient_PostSendsJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])
		w.WriteHeader(http.StatusNoContent)
	}), credstore.NewMemory(""))

	err := c.Post(context.Background(), "login", map[string]string{"email": "a@b.com"}, &struct{}{})
	require.NoError(t, err)
}

func TestClient_NonSuccessBecomesAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "already confirmed", http.StatusConflict)
	}), credstore.NewMemory(""))

	err := c.Post(context.Background(), "/student/event_confirmations/", map[string]string{}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "already confirmed", apiErr.Body)
	assert.True(t, IsStatus(err, http.StatusConflict))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_InstallIsIdempotent(t *testing.T) {
	creds := credstore.NewMemory("tok")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), creds)

	first, second := 0, 0
	dispose := c.Install(func() { first++ })
	c.Install(func() { second++ })

	err := c.Get(context.Background(), "/me", nil, nil)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "a second Install must not add a hook")

	dispose()
	require.NoError(t, creds.Save("tok"))
	_ = c.Get(context.Background(), "/me", nil, nil)
	assert.Equal(t, 1, first, "disposed hook must not fire")
}

func TestClient_StaleDisposerKeepsNewHook(t *testing.T) {
	creds := credstore.NewMemory("tok")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), creds)

	first := c.Install(func() {})
	first()

	calls := 0
	c.Install(func() { calls++ })
	first()

	_ = c.Get(context.Background(), "/me", nil, nil)
	assert.Equal(t, 1, calls, "an old disposer must not detach a later hook")
}

func TestClient_DecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not-json"))
	}), credstore.NewMemory(""))

	var out map[string]any
	err := c.Get(context.Background(), "/me", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode GET /me response")
}
