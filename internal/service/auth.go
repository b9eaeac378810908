// Package service provides the authentication logic of the development API
// server, delegating persistence to the user and token repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/CampusPortal/internal/metrics"
	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/repository"
	"github.com/atinyakov/CampusPortal/internal/validation"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for malformed, expired or revoked tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserExists is returned when an email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidInput wraps form validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// UserRepository defines the user persistence the service needs.
type UserRepository interface {
	CreateUser(ctx context.Context, u models.User, passwordHash string) error
	FindByEmail(ctx context.Context, email string) (models.User, string, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	PasswordHash(ctx context.Context, id string) (string, error)
	ReplacePassword(ctx context.Context, id, passwordHash string) (int64, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// TokenRepository records issued token ids.
type TokenRepository interface {
	SaveToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsTokenActive(ctx context.Context, jti string) (bool, error)
}

// Claims is the JWT payload of an access token.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies access tokens.
type AuthService struct {
	users  UserRepository
	tokens TokenRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService constructs a service signing tokens with secret that live
// for ttl.
func NewAuthService(users UserRepository, tokens TokenRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Login checks the credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, hash, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

func (s *AuthService) issue(ctx context.Context, u models.User) (string, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := s.tokens.SaveToken(ctx, claims.ID, u.ID, exp); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies tokenString and returns the user it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (models.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	active, err := s.tokens.IsTokenActive(ctx, claims.ID)
	if err != nil {
		return models.User{}, err
	}
	if !active {
		return models.User{}, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	u, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return u, err
}

// ChangePassword replaces the password of userID after checking oldPassword.
// Every token issued to the user is revoked, the current one included.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	form := validation.ChangePasswordForm{OldPassword: oldPassword, NewPassword: newPassword}
	if err := validation.Struct(form); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := s.users.PasswordHash(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	revoked, err := s.users.ReplacePassword(ctx, userID, string(newHash))
	if err != nil {
		return err
	}
	metrics.TokensRevokedTotal.Add(float64(revoked))
	return nil
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Username   string      `json:"username" validate:"required"`
	Email      string      `json:"email" validate:"required,email"`
	FullName   string      `json:"full_name"`
	Department string      `json:"department"`
	Role       models.Role `json:"role" validate:"required"`
	Password   string      `json:"password" validate:"required,min=6"`
}

// CreateUser registers a new account and returns it.
func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (models.User, error) {
	if err := validation.Struct(in); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	role, err := models.ParseRole(string(in.Role))
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{
		ID:         uuid.NewString(),
		Username:   in.Username,
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		FullName:   in.FullName,
		Department: in.Department,
		Role:       role,
	}
	if err := s.users.CreateUser(ctx, u, string(hash)); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	return u, nil
}

// ListUsers returns every registered user.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}
