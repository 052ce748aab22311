package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/waari-travel/waari-erp/internal/platform/db"
	"github.com/waari-travel/waari-erp/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Credential, error) {
	var c Credential
	err := r.db.QueryRow(ctx, `SELECT user_id, role_id, client_code, email, first_name, last_name, password_hash, is_active
FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&c.UserID, &c.RoleID, &c.ClientCode, &c.Email, &c.FirstName, &c.LastName, &c.PasswordHash, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, shared.ErrNotFound
		}
		return Credential{}, err
	}
	return c, nil
}

// SetToken stores the user's current token. An empty token clears it.
func (r *PGRepository) SetToken(ctx context.Context, userID int64, token string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET token = NULLIF($2, ''), updated_at = NOW() WHERE user_id = $1`, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ResetPassword replaces the password hash and revokes the token.
func (r *PGRepository) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, token = NULL, updated_at = NOW() WHERE user_id = $1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
