package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cinevault/cinevault-api/internal/models"
)

// BlacklistRepository stores revoked session tokens.
type BlacklistRepository struct {
	db *sqlx.DB
}

// NewBlacklistRepository creates a new instance of BlacklistRepository.
func NewBlacklistRepository(db *sqlx.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Add records a revoked token. Duplicate revocations are ignored.
func (r *BlacklistRepository) Add(ctx context.Context, entry *models.BlacklistedToken) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO blacklisted_tokens (id, user_id, token, expires_at, created_at)
		VALUES (:id, :user_id, :token, :expires_at, :created_at)
		ON CONFLICT (token) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// Contains reports whether a non-expired blacklist row matches the token.
func (r *BlacklistRepository) Contains(ctx context.Context, token string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE token = $1 AND expires_at > $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, token, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return exists, nil
}

// PurgeExpired removes blacklist rows whose tokens have expired on their own.
func (r *BlacklistRepository) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM blacklisted_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge blacklist: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
