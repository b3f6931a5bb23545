package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/cimillas/eventapi/internal/domain"
	"github.com/cimillas/eventapi/internal/testutil"
	"github.com/google/uuid"
)

func TestUserRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        "a@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := user
	dup.ID = uuid.NewString()
	if err := repo.CreateUser(ctx, dup); err != domain.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != user.ID || got.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", got)
	}

	got, err = repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Email != user.Email {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := repo.GetUserByID(ctx, uuid.NewString()); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.GetUserByID(ctx, "nope"); err != domain.ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
