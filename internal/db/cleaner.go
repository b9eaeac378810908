package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/metrics"
)

// StartTokenCleaner periodically deletes revoked token records and those
// that expired more than retention ago. It stops when ctx is cancelled.
func StartTokenCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM issued_tokens
                     WHERE revoked
                        OR expires_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean issued tokens", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					metrics.TokensCleanedTotal.Add(float64(rows))
					log.Info("cleaned issued tokens", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
