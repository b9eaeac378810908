package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/repository"
)

type memUsers struct {
	mu     sync.Mutex
	users  map[string]models.User
	hashes map[string]string
	// revoke is called by ReplacePassword.
	revoke func(userID string) int64
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]models.User{}, hashes: map[string]string{}}
}

func (m *memUsers) add(t *testing.T, u models.User, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, m.CreateUser(context.Background(), u, string(hash)))
}

func (m *memUsers) CreateUser(_ context.Context, u models.User, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[u.ID] = u
	m.hashes[u.ID] = hash
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			return u, m.hashes[id], nil
		}
	}
	return models.User{}, "", repository.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) PasswordHash(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return h, nil
}

func (m *memUsers) ReplacePassword(_ context.Context, id, hash string) (int64, error) {
	m.mu.Lock()
	if _, ok := m.users[id]; !ok {
		m.mu.Unlock()
		return 0, repository.ErrNotFound
	}
	m.hashes[id] = hash
	m.mu.Unlock()
	if m.revoke != nil {
		return m.revoke(id), nil
	}
	return 0, nil
}

func (m *memUsers) ListUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

type memTokens struct {
	mu      sync.Mutex
	owner   map[string]string
	revoked map[string]bool
}

func newMemTokens() *memTokens {
	return &memTokens{owner: map[string]string{}, revoked: map[string]bool{}}
}

func (m *memTokens) SaveToken(_ context.Context, jti, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner[jti] = userID
	return nil
}

func (m *memTokens) IsTokenActive(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.owner[jti]
	return ok && !m.revoked[jti], nil
}

func (m *memTokens) revokeUser(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, owner := range m.owner {
		if owner == userID && !m.revoked[jti] {
			m.revoked[jti] = true
			n++
		}
	}
	return n
}

func newTestService(t *testing.T) (*AuthService, *memUsers, *memTokens) {
	t.Helper()
	users := newMemUsers()
	tokens := newMemTokens()
	users.revoke = tokens.revokeUser
	users.add(t, models.User{ID: "s1", Email: "sam@campus.edu", Role: models.RoleStudent}, "secret1")
	return NewAuthService(users, tokens, "test-secret", time.Hour), users, tokens
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, " sam@campus.edu ", "secret1")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "s1", u.ID)
	assert.Equal(t, models.RoleStudent, u.Role)

	var claims Claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "sam@campus.edu", "nope"},
		{"unknown email", "ghost@campus.edu", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthenticate_Rejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(newMemUsers(), newMemTokens(), "other-secret", time.Hour)
	other.users.(*memUsers).add(t, models.User{ID: "s1", Email: "sam@campus.edu"}, "secret1")
	forged, err := other.Login(ctx, "sam@campus.edu", "secret1")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken, "signed with another secret")

	token, err := svc.Login(ctx, "sam@campus.edu", "secret1")
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func TestChangePassword_RevokesTokens(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, "sam@campus.edu", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, "s1", "secret1", "secret2"))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Login(ctx, "sam@campus.edu", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "sam@campus.edu", "secret2")
	assert.NoError(t, err)
}

func TestChangePassword_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ChangePassword(ctx, "s1", "wrong1", "secret2"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, "s1", "secret1", "abc"), ErrInvalidInput)
	assert.ErrorIs(t, svc.ChangePassword(ctx, "s1", "", "secret2"), ErrInvalidInput)
	assert.True(t, errors.Is(svc.ChangePassword(ctx, "ghost", "secret1", "secret2"), repository.ErrNotFound))
}

func TestCreateUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, NewUser{
		Username: "hana", Email: "Head@Campus.edu", Role: "HEAD", Password: "headpass", Department: "CS",
	})
	require.NoError(t, err)
	assert.Equal(t, "head@campus.edu", u.Email)
	assert.Equal(t, models.RoleHead, u.Role)
	assert.NotEmpty(t, u.ID)

	_, err = svc.Login(ctx, "head@campus.edu", "headpass")
	assert.NoError(t, err)

	_, err = svc.CreateUser(ctx, NewUser{Username: "x", Email: "head@campus.edu", Role: "head", Password: "headpass"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.CreateUser(ctx, NewUser{Username: "x", Email: "x@campus.edu", Role: "janitor", Password: "headpass"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateUser(ctx, NewUser{Username: "x", Email: "bad", Role: "head", Password: "headpass"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
