package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkuznecov/authkeeper/internal/common"
	"github.com/mkuznecov/authkeeper/internal/server/keys"
)

// Issuer signs access tokens with the provider's RSA key and parses them back
// for the HTTP middleware. Issuer and audience are fixed by configuration.
type Issuer struct {
	keys     *keys.Provider
	issuer   string
	audience string
	validity time.Duration
}

func NewIssuer(kp *keys.Provider, issuer, audience string, validity time.Duration) *Issuer {
	return &Issuer{
		keys:     kp,
		issuer:   issuer,
		audience: audience,
		validity: validity,
	}
}

// Validity returns the configured access-token lifetime.
func (i *Issuer) Validity() time.Duration {
	return i.validity
}

// Issue stamps the claims with the configured issuer/audience and an expiry
// of now+validity, and signs them with RS256. Failures to obtain the key
// surface as common.ErrKeyUnavailable, signing failures as
// common.ErrSigningFailure.
func (i *Issuer) Issue(ctx context.Context, claims *Claims) (string, error) {
	key, err := i.keys.SigningKey(ctx)
	if err != nil {
		return "", err
	}

	claims.Issuer = i.issuer
	claims.Audience = jwt.ClaimStrings{i.audience}
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(i.validity))

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrSigningFailure, err)
	}

	return signed, nil
}

// Parse verifies the signature, expiry, issuer and audience of an access
// token and returns its claims. All verification failures map to
// common.ErrInvalidToken.
func (i *Issuer) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	pub, err := i.keys.PublicKey(ctx)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
