// Package repository provides PostgreSQL persistence for the development
// API server: user accounts and issued access tokens.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/CampusPortal/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("already exists")
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// PostgresUserRepository stores user accounts.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a repository on db.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

const userColumns = `id, username, email, full_name, department, role`

// CreateUser inserts u with the given bcrypt hash.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u models.User, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, department, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.Email, u.FullName, u.Department, string(u.Role), passwordHash,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
	}
	return err
}

// FindByEmail returns the user and its password hash.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, string, error) {
	var (
		u    models.User
		role string
		hash string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE lower(email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Department, &role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, "", ErrNotFound
	}
	if err != nil {
		return models.User{}, "", err
	}
	u.Role = models.Role(role)
	return u, hash, nil
}

// FindByID returns the user with the given id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	var (
		u    models.User
		role string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Department, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	u.Role = models.Role(role)
	return u, nil
}

// PasswordHash returns the stored hash of user id.
func (r *PostgresUserRepository) PasswordHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return hash, err
}

// ReplacePassword stores a new hash for user id and revokes every token
// issued to that user, in one transaction. It returns the number of revoked
// tokens.
func (r *PostgresUserRepository) ReplacePassword(ctx context.Context, id, passwordHash string) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE issued_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, id)
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}
	revoked, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return revoked, nil
}

// ListUsers returns all users ordered by email.
func (r *PostgresUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			u    models.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Department, &role); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}
