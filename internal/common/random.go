// Package common holds sentinel errors and small helpers shared by
// the server packages.
package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandBase64String generates size bytes from the CSPRNG and returns them
// base64-encoded. Refresh tokens are produced with size 64, which makes the
// probability of a value collision negligible.
//
// It returns an error only if the random number generator fails.
func MakeRandBase64String(size int) (string, error) {

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}
