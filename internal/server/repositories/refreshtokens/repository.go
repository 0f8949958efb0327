// Package refreshtokens declares the persistence contract for refresh-token
// records and their rotation-chain bookkeeping.
package refreshtokens

import (
	"context"
	"time"

	"github.com/mkuznecov/authkeeper/internal/server/models"
)

// Repository defines operations for storing, retrieving and revoking
// refresh-token records.
//
// Revoke is the concurrency guard for rotation: it only touches rows whose
// revocation fields are still unset, so of two racing rotations of the same
// token exactly one observes a row to update. The loser gets
// common.ErrorNotFound and must treat the token as consumed.
type Repository interface {
	// Create inserts a new record. Returns common.ErrorConflict when the
	// token value already exists; the caller retries with fresh randomness.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a record by its opaque token value.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke sets the write-once revocation fields (revoked_at, reason,
	// replaced_by) on a still-active record. replacedBy may be empty for
	// explicit revocation. Returns common.ErrorNotFound when the record is
	// absent or already revoked.
	Revoke(ctx context.Context, token string, at time.Time, reason models.RevocationReason, replacedBy string) error

	// RevokeAllForUser revokes every active record owned by userID and
	// returns how many were revoked. Used for theft containment.
	RevokeAllForUser(ctx context.Context, userID int64, at time.Time, reason models.RevocationReason) (int64, error)

	// Delete removes a record by its token value. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser removes every record owned by userID.
	DeleteAllForUser(ctx context.Context, userID int64) error

	// DeleteExpired removes records whose expiry passed before cutoff.
	// Housekeeping only; correctness never depends on it.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
