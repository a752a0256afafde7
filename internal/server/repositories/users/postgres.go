package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/dbx"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
)

// PostgresRepository stores users in the users table over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	credentials
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX, hasher PasswordHasher) *PostgresRepository {
	return &PostgresRepository{credentials: credentials{hasher: hasher}, db: db}
}

// AddUser relies on the primary key on email: a concurrent duplicate
// insert affects no rows.
func (r *PostgresRepository) AddUser(ctx context.Context, u models.User) error {
	hash, err := r.hash(ctx, u.Password)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO users (email, password_hash, requires_2fa)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, u.Email.String(), string(hash), u.Requires2FA)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrAlreadyExists
	}

	return nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, email models.Email) (*models.User, error) {
	query :=
		`SELECT password_hash, requires_2fa FROM users
		 WHERE email = $1
		 `

	var hash string
	u := &models.User{Email: email}
	err := r.db.QueryRowContext(ctx, query, email.String()).Scan(&hash, &u.Requires2FA)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.PasswordHash = models.PasswordHash(hash)
	return u, nil
}

func (r *PostgresRepository) ValidateUser(ctx context.Context, email models.Email, password models.Password) error {
	_, err := r.Authenticate(ctx, email, password)
	return err
}

func (r *PostgresRepository) Authenticate(ctx context.Context, email models.Email, password models.Password) (*models.User, error) {
	return r.authenticate(ctx, r.GetUser, email, password)
}
