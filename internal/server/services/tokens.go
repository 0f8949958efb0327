// Package services contains server-side business logic. This file implements
// TokenService: issuing access/refresh token pairs, rotating refresh tokens
// through a linked chain, and revoking them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkuznecov/authkeeper/internal/common"
	"github.com/mkuznecov/authkeeper/internal/dbx"
	"github.com/mkuznecov/authkeeper/internal/logging"
	"github.com/mkuznecov/authkeeper/internal/server/auth"
	"github.com/mkuznecov/authkeeper/internal/server/models"
	"github.com/mkuznecov/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/mkuznecov/authkeeper/internal/server/repositories/repomanager"
)

// refreshTokenBytes is how much CSPRNG entropy goes into one refresh token
// before base64 encoding.
const refreshTokenBytes = 64

// createAttempts bounds retries on a token-value collision. A collision is a
// CSPRNG anomaly, not a client error, so it is retried with fresh randomness.
const createAttempts = 3

// TokenPair bundles a short-lived access token and a long-lived refresh
// token. ExpiresIn is the access token's lifetime in seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenService owns the refresh-token lifecycle:
//   - IssueInitial: mint a pair at login, starting a new rotation chain
//   - Refresh: rotate a refresh token and mint a new pair
//   - Revoke: explicit out-of-band revocation
//
// Presenting an already-rotated token is treated as a theft signal: every
// active session of the owning user is revoked before the request is
// rejected.
type TokenService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	issuer          *auth.Issuer
	refreshValidity time.Duration
	logger          logging.Logger
}

// NewTokenService constructs a TokenService using repositories and the
// access-token issuer.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, refreshValidity time.Duration, logger logging.Logger) *TokenService {
	return &TokenService{
		db:              db,
		repomanager:     m,
		issuer:          issuer,
		refreshValidity: refreshValidity,
		logger:          logger.With("module", "tokens"),
	}
}

// IssueInitial mints a token pair for a freshly authenticated user. The new
// refresh token has no predecessor: concurrent logins for the same user
// coexist as independent chains, one per device.
func (s *TokenService) IssueInitial(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.issuer.Issue(ctx, auth.BuildClaims(user))
	if err != nil {
		return nil, err
	}

	record, err := s.createRecord(ctx, s.repomanager.RefreshTokens(s.db), user.ID)
	if err != nil {
		return nil, err
	}

	s.markLoggedIn(ctx, user.ID)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: record.Token,
		ExpiresIn:    int64(s.issuer.Validity().Seconds()),
	}, nil
}

// Refresh validates the presented refresh token, rotates it, and returns a
// fresh token pair. Unknown, expired or already-revoked tokens fail with
// common.ErrInvalidToken.
//
// The rotation writes (insert successor, conditionally revoke predecessor)
// run in one transaction; the conditional revoke only matches a row whose
// revoked_at is still NULL, so of two concurrent refreshes of the same token
// exactly one commits and the other fails as a replay.
func (s *TokenService) Refresh(ctx context.Context, presentedToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	old, err := repo.Find(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	now := time.Now()
	if !old.IsActive(now) {
		s.containReuse(ctx, repo, old, now)
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// owner deleted; token records should have gone with it
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading token owner: %w", err)
	}

	// Sign before touching the store: a signing failure must not consume the
	// presented token.
	access, err := s.issuer.Issue(ctx, auth.BuildClaims(user))
	if err != nil {
		return nil, err
	}

	var newRecord *models.RefreshToken
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)

		var createErr error
		newRecord, createErr = s.createRecord(ctx, repoTx, old.UserID)
		if createErr != nil {
			return createErr
		}

		if err := repoTx.Revoke(ctx, presentedToken, now, models.ReasonRotation, newRecord.Token); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// lost the race to a concurrent rotation; drop the successor
				// so the loser leaves nothing behind
				if delErr := repoTx.Delete(ctx, newRecord.Token); delErr != nil {
					s.logger.Error(ctx, "error deleting orphaned successor token", "error", delErr.Error())
				}
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error revoking rotated token: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.markLoggedIn(ctx, user.ID)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: newRecord.Token,
		ExpiresIn:    int64(s.issuer.Validity().Seconds()),
	}, nil
}

// Revoke explicitly revokes a still-active refresh token.
// Returns common.ErrorNotFound for an unknown token and
// common.ErrTokenInactive when the token is already revoked or expired.
func (s *TokenService) Revoke(ctx context.Context, presentedToken string) error {
	repo := s.repomanager.RefreshTokens(s.db)

	record, err := repo.Find(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error searching refresh token: %w", err)
	}

	now := time.Now()
	if !record.IsActive(now) {
		return common.ErrTokenInactive
	}

	if err := repo.Revoke(ctx, presentedToken, now, models.ReasonExplicit, ""); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// revoked concurrently between the read and the write
			return common.ErrTokenInactive
		}
		return fmt.Errorf("error revoking token: %w", err)
	}

	s.logger.Info(ctx, "refresh token revoked", "user_id", record.UserID)
	return nil
}

// RevokeAllForUser revokes every active refresh token of a user. Exposed for
// administrative session termination; also the containment primitive used on
// reuse detection.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID int64, reason models.RevocationReason) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).RevokeAllForUser(ctx, userID, time.Now(), reason)
}

// DeleteExpired purges refresh-token records whose expiry has passed and
// returns how many were removed.
func (s *TokenService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, time.Now())
}

// containReuse handles presentation of a non-active token. Reuse of a token
// consumed by rotation means its successor is in someone else's hands, so the
// whole chain (and any other active session of the user) is revoked. Expired
// or explicitly revoked tokens are ordinary invalid use and trigger nothing.
func (s *TokenService) containReuse(ctx context.Context, repo refreshtokens.Repository, old *models.RefreshToken, now time.Time) {
	if !old.IsRevoked() || old.ReasonRevoked != models.ReasonRotation {
		return
	}

	revoked, err := repo.RevokeAllForUser(ctx, old.UserID, now, models.ReasonReuseDetected)
	if err != nil {
		s.logger.Error(ctx, "reuse containment failed", "user_id", old.UserID, "error", err.Error())
		return
	}
	s.logger.Warn(ctx, "refresh token reuse detected, user sessions revoked",
		"user_id", old.UserID, "revoked", revoked)
}

// createRecord inserts a fresh refresh-token record, retrying with new
// randomness on the (practically impossible) token-value collision.
func (s *TokenService) createRecord(ctx context.Context, repo refreshtokens.Repository, userID int64) (*models.RefreshToken, error) {
	now := time.Now()

	for attempt := 0; attempt < createAttempts; attempt++ {
		value, err := common.MakeRandBase64String(refreshTokenBytes)
		if err != nil {
			return nil, fmt.Errorf("error generating refresh token: %w", err)
		}

		record := &models.RefreshToken{
			Token:     value,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.refreshValidity),
		}

		err = repo.Create(ctx, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, common.ErrorConflict) {
			return nil, fmt.Errorf("error storing refresh token: %w", err)
		}
	}

	return nil, fmt.Errorf("refresh token collision persisted after %d attempts: %w", createAttempts, common.ErrorConflict)
}

// markLoggedIn stamps the user's last-login time. Failures are logged and
// swallowed: a missing timestamp must not fail an otherwise successful
// issuance.
func (s *TokenService) markLoggedIn(ctx context.Context, userID int64) {
	if err := s.repomanager.Users(s.db).MarkLoggedIn(ctx, userID); err != nil {
		s.logger.Warn(ctx, "error updating last login", "user_id", userID, "error", err.Error())
	}
}
