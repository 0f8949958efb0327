package models

import "time"

// RevocationReason records why a refresh token left the active state.
type RevocationReason string

const (
	// ReasonRotation marks a token consumed by a successful refresh.
	ReasonRotation RevocationReason = "rotation"
	// ReasonExplicit marks a token revoked on request (logout, admin action).
	ReasonExplicit RevocationReason = "explicit"
	// ReasonReuseDetected marks a token killed during theft containment after
	// an already-rotated token was presented again.
	ReasonReuseDetected RevocationReason = "reuse-detected"
)

// RefreshToken is one record in a rotation chain. Token is the primary lookup
// key. RevokedAt, ReplacedByToken and ReasonRevoked are write-once: they are
// set together when the record leaves the active state and never change
// afterwards.
type RefreshToken struct {
	Token           string
	UserID          int64
	CreatedAt       time.Time
	ExpiresAt       time.Time
	RevokedAt       *time.Time
	ReplacedByToken string
	ReasonRevoked   RevocationReason
}

// IsRevoked reports whether the record has been revoked (by rotation,
// explicit revocation, or reuse containment).
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the record's absolute expiry has passed at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the record may still be used to refresh: not
// revoked and not expired. Revoked and expired are both terminal.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
