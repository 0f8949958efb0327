// Package auth builds and signs access tokens. Tokens are self-contained
// RS256 JWTs that relying parties verify with the public key alone.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mkuznecov/authkeeper/internal/server/models"
)

// Claims is the fixed claim schema for access tokens: the registered claims
// plus display name, email and role.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// BuildClaims assembles the claim set for a user identity. The jti is a fresh
// UUID on every call, so two tokens issued for the same user in the same
// second still differ.
func BuildClaims(user *models.User) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(user.ID, 10),
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Name:  user.Username,
		Email: user.Email,
		Role:  string(user.Role),
	}
}
