package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkuznecov/authkeeper/internal/common"
	"github.com/mkuznecov/authkeeper/internal/dbx"
	"github.com/mkuznecov/authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolation = "23505"

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.Token, token.UserID, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorConflict
		}
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT token, user_id, created_at, expires_at, revoked_at,
		       COALESCE(replaced_by_token, ''), COALESCE(reason_revoked, '')
		FROM refresh_tokens
		WHERE token = $1
	`
	rec := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rec.Token, &rec.UserID, &rec.CreatedAt, &rec.ExpiresAt,
		&rec.RevokedAt, &rec.ReplacedByToken, &rec.ReasonRevoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}
	return rec, nil
}

// Revoke is conditional on revoked_at still being NULL so the terminal state
// is written at most once even under concurrent rotations.
func (r *PostgresRepository) Revoke(ctx context.Context, token string, at time.Time, reason models.RevocationReason, replacedBy string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, reason_revoked = $3, replaced_by_token = NULLIF($4, '')
		WHERE token = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, token, at, reason, replacedBy)
	if err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %v", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID int64, at time.Time, reason models.RevocationReason) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, reason_revoked = $3
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, userID, at, reason)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %v", err)
	}
	return affected, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %v", err)
	}
	return affected, nil
}
