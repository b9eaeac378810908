package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresTokenRepository records issued access tokens so they can be
// revoked before they expire.
type PostgresTokenRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresTokenRepository creates a repository on db.
func NewPostgresTokenRepository(db *sql.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{DB: db}
}

// SaveToken records a newly issued token id.
func (r *PostgresTokenRepository) SaveToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO issued_tokens (jti, user_id, expires_at) VALUES ($1, $2, $3)`,
		jti, userID, expiresAt,
	)
	return err
}

// IsTokenActive reports whether jti was issued, is not revoked and has not
// expired.
func (r *PostgresTokenRepository) IsTokenActive(ctx context.Context, jti string) (bool, error) {
	var active bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT NOT revoked AND expires_at > now() FROM issued_tokens WHERE jti = $1`,
		jti,
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return active, err
}
