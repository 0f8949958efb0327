// Package users declares the repository contract for user identities.
package users

import (
	"context"

	"github.com/mkuznecov/authkeeper/internal/server/models"
)

// Repository defines persistence operations for user identities.
type Repository interface {
	// Create inserts a new user and returns it with the assigned ID.
	// Returns common.ErrorConflict when the username or email is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns the user with the given ID, or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByUsername returns the user with the given username, or
	// common.ErrorNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List returns all users ordered by ID.
	List(ctx context.Context) ([]*models.User, error)

	// Update persists email and role changes for an existing user.
	// Returns common.ErrorNotFound if the user no longer exists.
	Update(ctx context.Context, user *models.User) error

	// Delete removes a user. The refresh-token records owned by the user are
	// removed by the caller in the same transaction.
	Delete(ctx context.Context, id int64) error

	// MarkLoggedIn stamps the user's last-login time with the current time.
	MarkLoggedIn(ctx context.Context, id int64) error
}
