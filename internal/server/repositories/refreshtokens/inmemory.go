package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/mkuznecov/authkeeper/internal/common"
	"github.com/mkuznecov/authkeeper/internal/server/models"
)

// InMemoryRepository is a map-backed Repository used in tests and for running
// the service without a database. A single mutex gives it the same
// at-most-once revocation semantics as the conditional update in the
// Postgres implementation.
type InMemoryRepository struct {
	mu      sync.Mutex
	records map[string]*models.RefreshToken
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*models.RefreshToken)}
}

func (r *InMemoryRepository) clone(rec *models.RefreshToken) *models.RefreshToken {
	c := *rec
	if rec.RevokedAt != nil {
		at := *rec.RevokedAt
		c.RevokedAt = &at
	}
	return &c
}

func (r *InMemoryRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[token.Token]; ok {
		return common.ErrorConflict
	}
	r.records[token.Token] = r.clone(token)
	return nil
}

func (r *InMemoryRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.clone(rec), nil
}

func (r *InMemoryRepository) Revoke(ctx context.Context, token string, at time.Time, reason models.RevocationReason, replacedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[token]
	if !ok || rec.RevokedAt != nil {
		return common.ErrorNotFound
	}

	rec.RevokedAt = &at
	rec.ReasonRevoked = reason
	rec.ReplacedByToken = replacedBy
	return nil
}

func (r *InMemoryRepository) RevokeAllForUser(ctx context.Context, userID int64, at time.Time, reason models.RevocationReason) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked int64
	for _, rec := range r.records {
		if rec.UserID != userID || rec.RevokedAt != nil {
			continue
		}
		t := at
		rec.RevokedAt = &t
		rec.ReasonRevoked = reason
		revoked++
	}
	return revoked, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, token)
	return nil
}

func (r *InMemoryRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, rec := range r.records {
		if rec.UserID == userID {
			delete(r.records, token)
		}
	}
	return nil
}

func (r *InMemoryRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for token, rec := range r.records {
		if rec.ExpiresAt.Before(cutoff) {
			delete(r.records, token)
			deleted++
		}
	}
	return deleted, nil
}
