package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
)

type blacklistRepo struct {
	db *sql.DB
}

// Add is idempotent: revoking the same token twice is not an error.
func (r *blacklistRepo) Add(ctx context.Context, e domain.BlacklistEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO token_blacklist (id, token, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		e.ID, e.Token, unix(e.ExpiresAt), unix(time.Now()))
	return err
}

func (r *blacklistRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM token_blacklist WHERE token = ?`, token).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteExpired removes entries whose expiry is strictly in the past. An
// entry expiring exactly at now is kept for one more sweep.
func (r *blacklistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM token_blacklist WHERE expires_at < ?`, unix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
