package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkuznecov/authkeeper/internal/common"
	"github.com/mkuznecov/authkeeper/internal/dbx"
	"github.com/mkuznecov/authkeeper/internal/logging"
	"github.com/mkuznecov/authkeeper/internal/server/models"
	"github.com/mkuznecov/authkeeper/internal/server/repositories/repomanager"
)

// UserService provides identity management around the token core:
// registration, login, user CRUD, and deletion with its cascading cleanup of
// refresh-token records.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		logger:      logger.With("module", "users"),
	}
}

// Register creates a user with a bcrypt-hashed password and issues the first
// token pair. Returns common.ErrorConflict when the username or email is
// taken and common.ErrorValidation for a malformed role.
func (s *UserService) Register(ctx context.Context, username, email, password, role string) (*models.User, *TokenPair, error) {
	parsedRole, err := models.ParseRole(role)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         parsedRole,
	}

	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, nil, common.ErrorConflict
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.tokens.IssueInitial(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, pair, nil
}

// Login verifies the password and issues a token pair. Unknown users and
// wrong passwords both map to common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, fmt.Errorf("error loading user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.tokens.IssueInitial(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// GetByID returns a single user, or common.ErrorNotFound.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

// Update changes a user's email and role.
func (s *UserService) Update(ctx context.Context, id int64, email, role string) (*models.User, error) {
	parsedRole, err := models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Email = email
	user.Role = parsedRole

	if err := repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user and all of their refresh-token records in one
// transaction, so no record is left referencing a missing owner. The
// explicit token cleanup keeps the invariant independent of the backing
// store's cascade support.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).DeleteAllForUser(ctx, id); err != nil {
			return fmt.Errorf("error deleting refresh tokens: %w", err)
		}
		if err := s.repomanager.Users(tx).Delete(ctx, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}
