// Package session owns the answer to "who is logged in".
//
// A single Store is built at startup and handed to everything that needs
// session state. It restores a persisted token once, runs the login and
// logout pipelines, and reacts to the transport's unauthorized signal.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/client/credstore"
	"github.com/atinyakov/CampusPortal/internal/client/guard"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// State is a copy of the store's fields at one instant.
type State struct {
	User        *models.User
	Initialized bool
	Loading     bool
	Restoring   bool
	Err         error
}

// View returns the guard's view of the state.
func (s State) View() guard.SessionView {
	return guard.SessionView{Initialized: s.Initialized, Restoring: s.Restoring, User: s.User}
}

// Store holds the current session. The zero value is not usable; call New.
type Store struct {
	api   API
	creds credstore.Store
	log   *zap.Logger

	mu          sync.RWMutex
	user        *models.User
	initialized bool
	restoring   bool
	loading     bool
	lastErr     error
	listeners   map[int]func(State)
	nextID      int

	ready     chan struct{}
	readyOnce sync.Once
}

// New returns a Store with no user that is not yet initialized.
func New(api API, creds credstore.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api:       api,
		creds:     creds,
		log:       log,
		listeners: make(map[int]func(State)),
		ready:     make(chan struct{}),
	}
}

// CurrentUser returns a copy of the logged-in user.
func (s *Store) CurrentUser() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// IsInitialized reports whether the startup restore has finished.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// IsLoading reports whether a restore or login is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError is the most recent restore or login failure, nil after success.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// View implements guard.Viewer.
func (s *Store) View() guard.SessionView {
	return s.Snapshot().View()
}

// Ready is closed once Restore has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// OnChange registers fn to receive the state after every mutation. fn runs
// on the mutating goroutine and must not block. The returned func removes it.
func (s *Store) OnChange(fn func(State)) (remove func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Restore validates the persisted token, if any, against the API. It runs
// at most once per Store; later calls return immediately. It never fails:
// a rejected or unreadable token is purged and the session stays anonymous.
// The store is initialized when Restore returns.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.initialized || s.restoring {
		s.mu.Unlock()
		return
	}
	s.restoring = true
	s.loading = true
	s.mu.Unlock()
	s.notify()

	var (
		user *models.User
		err  error
	)
	defer func() {
		s.mu.Lock()
		s.user = user
		s.lastErr = err
		s.restoring = false
		s.loading = false
		s.initialized = true
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
		s.notify()
	}()

	token, err := s.creds.Load()
	if err != nil {
		s.log.Warn("unreadable credentials, discarding", zap.Error(err))
		s.purge()
		return
	}
	if token == "" {
		s.log.Debug("no persisted credentials")
		return
	}

	u, err := s.api.Me(ctx)
	if err != nil {
		s.log.Info("persisted credentials rejected", zap.Error(err))
		err = fmt.Errorf("restore session: %w", err)
		s.purge()
		return
	}
	user = &u
	s.log.Info("session restored", zap.String("user", u.Email), zap.String("role", string(u.Role)))
}

// Login authenticates, persists the token and loads the user. On any failure
// the token is purged, no user is set and the classified error is returned.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingCredentials
	}

	s.setLoading(true)
	user, err := s.login(ctx, email, password)

	s.mu.Lock()
	s.loading = false
	s.user = user
	s.lastErr = err
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.log.Info("login failed", zap.String("email", email), zap.Error(err))
		return err
	}
	s.log.Info("login succeeded", zap.String("email", email), zap.String("role", string(user.Role)))
	return nil
}

func (s *Store) login(ctx context.Context, email, password string) (*models.User, error) {
	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.purge()
		return nil, fmt.Errorf("login: %w", classifyLogin(err))
	}

	if err := s.creds.Save(token); err != nil {
		s.purge()
		return nil, fmt.Errorf("login: persist token: %w", err)
	}

	u, err := s.api.Me(ctx)
	if err != nil {
		s.purge()
		return nil, fmt.Errorf("login: fetch current user: %w", err)
	}
	return &u, nil
}

// Logout forgets the token and the user. Calling it twice is harmless.
func (s *Store) Logout() {
	s.purge()
	s.mu.Lock()
	hadUser := s.user != nil
	s.user = nil
	s.lastErr = nil
	s.mu.Unlock()
	if hadUser {
		s.log.Info("logged out")
	}
	s.notify()
}

// ChangePassword changes the current user's password. The session is not
// touched; the error, if any, is returned as-is for the caller to display.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrMissingCredentials
	}
	if err := s.api.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.log.Info("password changed")
	return nil
}

// HandleUnauthorized is called by the transport after a request carrying a
// token got a 401. The token is already purged; the user is dropped so the
// next navigation redirects to login.
func (s *Store) HandleUnauthorized() {
	s.mu.Lock()
	hadUser := s.user != nil
	s.user = nil
	s.mu.Unlock()
	if hadUser {
		s.log.Warn("session expired, user cleared")
		s.notify()
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

func (s *Store) purge() {
	if err := s.creds.Clear(); err != nil {
		s.log.Error("purge credentials", zap.Error(err))
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	st := s.snapshotLocked()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) snapshotLocked() State {
	st := State{
		Initialized: s.initialized,
		Loading:     s.loading,
		Restoring:   s.restoring,
		Err:         s.lastErr,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}
