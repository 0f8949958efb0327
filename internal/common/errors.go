package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// token lifecycle errors
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenInactive = errors.New("token already revoked or expired")

	// signing errors
	ErrKeyUnavailable = errors.New("signing key unavailable")
	ErrSigningFailure = errors.New("token signing failure")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")
)
