package bannedtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/dbx"
)

// PostgresRepository implements the revocation store over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx). Expired rows are ignored by reads and
// deleted by PurgeExpired.
type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) IsBanned(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM banned_tokens
			WHERE token_hash = $1 AND expires_at > $2
		)
	`
	var banned bool
	if err := r.db.QueryRowContext(ctx, query, TokenKey(token), r.now()).Scan(&banned); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return banned, nil
}

func (r *PostgresRepository) Ban(ctx context.Context, token string, expiresAt time.Time) error {
	if !expiresAt.After(r.now()) {
		return nil
	}
	query := `
		INSERT INTO banned_tokens (token_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_hash) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`
	if _, err := r.db.ExecContext(ctx, query, TokenKey(token), expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// BanIfAbsent uses the primary key on token_hash for atomicity: only the
// insert that creates the row affects it.
func (r *PostgresRepository) BanIfAbsent(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if !expiresAt.After(r.now()) {
		return false, nil
	}
	query := `
		INSERT INTO banned_tokens (token_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_hash) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, TokenKey(token), expiresAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// PurgeExpired deletes rows whose token has expired and returns how many
// were removed.
func (r *PostgresRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM banned_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, r.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
