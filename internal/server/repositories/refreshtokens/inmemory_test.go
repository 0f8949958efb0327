package refreshtokens

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkuznecov/authkeeper/internal/common"
	"github.com/mkuznecov/authkeeper/internal/server/models"
)

func newRecord(token string, userID int64) *models.RefreshToken {
	now := time.Now()
	return &models.RefreshToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestInMemory_CreateAndFind(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newRecord("t0", 1)); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(ctx, newRecord("t0", 1)); !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("expected ErrorConflict on duplicate token, got %v", err)
	}

	got, err := repo.Find(ctx, "t0")
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if got.UserID != 1 || !got.IsActive(time.Now()) {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := repo.Find(ctx, "absent"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestInMemory_FindReturnsCopy(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newRecord("t0", 1)); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, _ := repo.Find(ctx, "t0")
	at := time.Now()
	got.RevokedAt = &at // mutating the copy must not touch the stored record

	fresh, _ := repo.Find(ctx, "t0")
	if fresh.RevokedAt != nil {
		t.Fatalf("stored record mutated through a returned copy")
	}
}

func TestInMemory_RevokeIsWriteOnce(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newRecord("t0", 1)); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	at := time.Now()
	if err := repo.Revoke(ctx, "t0", at, models.ReasonRotation, "t1"); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	// second revocation must not overwrite the terminal state
	err := repo.Revoke(ctx, "t0", at.Add(time.Minute), models.ReasonExplicit, "")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound on second revoke, got %v", err)
	}

	got, _ := repo.Find(ctx, "t0")
	if got.ReasonRevoked != models.ReasonRotation || got.ReplacedByToken != "t1" {
		t.Fatalf("terminal state overwritten: %+v", got)
	}
}

func TestInMemory_ConcurrentRevoke_OneWinner(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newRecord("t0", 1)); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	const workers = 16
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Revoke(ctx, "t0", time.Now(), models.ReasonRotation, "t1"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one revocation must win, got %d", wins)
	}
}

func TestInMemory_RevokeAllForUser(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	ctx := context.Background()

	for _, token := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, newRecord(token, 1)); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if err := repo.Create(ctx, newRecord("other", 2)); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	// one already revoked, must not be counted again
	if err := repo.Revoke(ctx, "c", time.Now(), models.ReasonExplicit, ""); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	n, err := repo.RevokeAllForUser(ctx, 1, time.Now(), models.ReasonReuseDetected)
	if err != nil {
		t.Fatalf("RevokeAllForUser error: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked count: got %d want 2", n)
	}

	other, _ := repo.Find(ctx, "other")
	if other.IsRevoked() {
		t.Fatalf("another user's token was revoked")
	}
}

func TestInMemory_DeleteAllForUser(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newRecord("mine", 1)); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(ctx, newRecord("theirs", 2)); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := repo.DeleteAllForUser(ctx, 1); err != nil {
		t.Fatalf("DeleteAllForUser error: %v", err)
	}

	if _, err := repo.Find(ctx, "mine"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected record to be gone, got %v", err)
	}
	if _, err := repo.Find(ctx, "theirs"); err != nil {
		t.Fatalf("other user's record must survive: %v", err)
	}
}

func TestInMemory_DeleteExpired(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	ctx := context.Background()

	old := newRecord("old", 1)
	old.ExpiresAt = time.Now().Add(-48 * time.Hour)
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(ctx, newRecord("fresh", 1)); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	n, err := repo.DeleteExpired(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted count: got %d want 1", n)
	}
	if _, err := repo.Find(ctx, "fresh"); err != nil {
		t.Fatalf("fresh record must survive: %v", err)
	}
}
