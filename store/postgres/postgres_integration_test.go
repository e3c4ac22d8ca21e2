//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/baxter-io/sessionauth/store"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("SESSIONAUTH_PG_DSN")
	if dsn == "" {
		t.Skip("SESSIONAUTH_PG_DSN not set")
	}
	ctx := context.Background()
	db, err := New(ctx, Config{URL: dsn, QueryTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAccountRoundTripAndConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	username := "it-" + uuid.NewString() + "@example.com"
	acc := &store.Account{UserID: uuid.New(), Username: username, PasswordHash: "x"}
	if err := db.Save(ctx, acc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if acc.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := db.FindByUsername(ctx, username)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.UserID != acc.UserID {
		t.Fatalf("user id mismatch")
	}

	err = db.Save(ctx, &store.Account{UserID: uuid.New(), Username: username, PasswordHash: "y"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := db.FindByID(ctx, -1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSeededRolesAndLinks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user, err := db.FindRoleByName(ctx, "ROLE_USER")
	if err != nil {
		t.Fatalf("ROLE_USER: %v", err)
	}
	admin, err := db.FindRoleByName(ctx, "ROLE_ADMIN")
	if err != nil {
		t.Fatalf("ROLE_ADMIN: %v", err)
	}

	acc := &store.Account{UserID: uuid.New(), Username: "it-" + uuid.NewString(), PasswordHash: "x"}
	if err := db.Save(ctx, acc); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, id := range []int64{admin.ID, user.ID, admin.ID} {
		if err := db.SaveLink(ctx, acc.ID, id); err != nil {
			t.Fatalf("link: %v", err)
		}
	}
	ids, err := db.FindRoleIDsByAccount(ctx, acc.ID)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != admin.ID || ids[1] != user.ID {
		t.Fatalf("unexpected ids %v", ids)
	}
}
