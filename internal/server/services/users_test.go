package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkuznecov/authkeeper/internal/common"
	"github.com/mkuznecov/authkeeper/internal/server/models"
)

func newTestUserService(t *testing.T) (*UserService, *fakeRepoManager, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}

	m := newFakeRepoManager()
	logger := testLogger()
	tokens := NewTokenService(db, m, testIssuer(t), 7*24*time.Hour, logger)
	return NewUserService(db, m, tokens, logger), m, mock, db
}

func TestRegister(t *testing.T) {
	svc, m, _, db := newTestUserService(t)
	defer db.Close()
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret", "user")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected an assigned user ID")
	}
	if user.PasswordHash == "s3cret" {
		t.Fatalf("password stored in the clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")) != nil {
		t.Fatalf("stored hash does not match the password")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("registration did not issue a token pair: %+v", pair)
	}

	rec, err := m.tokens.Find(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token not stored: %v", err)
	}
	if rec.UserID != user.ID {
		t.Fatalf("token owner: got %d want %d", rec.UserID, user.ID)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _, db := newTestUserService(t)
	defer db.Close()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "pw", "user"); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	_, _, err := svc.Register(ctx, "alice", "alice2@example.com", "pw", "user")
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("expected ErrorConflict, got %v", err)
	}
}

func TestRegister_UnknownRole(t *testing.T) {
	svc, _, _, db := newTestUserService(t)
	defer db.Close()

	_, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw", "superuser")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected ErrorValidation, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, m, _, db := newTestUserService(t)
	defer db.Close()
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret", "user")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	user, pair, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("logged in as %d, want %d", user.ID, registered.ID)
	}
	if pair.RefreshToken == "" {
		t.Fatalf("login did not issue a refresh token")
	}

	// registration and login each stamp the last-login time
	if got := m.users.loginCount(user.ID); got != 2 {
		t.Fatalf("login stamp count: got %d want 2", got)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _, db := newTestUserService(t)
	defer db.Close()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret", "user"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_, _, err := svc.Login(ctx, "alice", "wrong")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _, _, db := newTestUserService(t)
	defer db.Close()

	_, _, err := svc.Login(context.Background(), "nobody", "pw")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	svc, _, _, db := newTestUserService(t)
	defer db.Close()
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "alice", "alice@example.com", "pw", "user")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	updated, err := svc.Update(ctx, user.ID, "new@example.com", "admin")
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Email != "new@example.com" || updated.Role != models.RoleAdmin {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	got, err := svc.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Email != "new@example.com" || got.Role != models.RoleAdmin {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc, _, _, db := newTestUserService(t)
	defer db.Close()

	_, err := svc.Update(context.Background(), 777, "x@example.com", "user")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDeleteUser_CascadesTokens(t *testing.T) {
	svc, m, mock, db := newTestUserService(t)
	defer db.Close()
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "alice", "alice@example.com", "pw", "user")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	if _, err := svc.GetByID(ctx, user.ID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("user survived deletion: %v", err)
	}
	if _, err := m.tokens.Find(ctx, pair.RefreshToken); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("refresh token survived owner deletion: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	svc, _, mock, db := newTestUserService(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), 777)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
