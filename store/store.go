package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when an insert violates a unique key.
	ErrConflict = errors.New("store: conflict")
	// ErrUnavailable wraps backend failures (connection, timeout, driver).
	ErrUnavailable = errors.New("store: unavailable")
)

// Account is a persisted user identity.
//
// ID is assigned by the store on Save. UserID is the public identifier and is
// assigned once by the caller before the account is first saved.
type Account struct {
	ID           int64
	UserID       uuid.UUID
	Username     string
	PasswordHash string
}

// Role is a named role row. Roles are reference data and are never created by
// the engine.
type Role struct {
	ID   int64
	Name string
}

// Accounts is the account half of the relational store.
type Accounts interface {
	// FindByUsername returns ErrNotFound when no account has the username.
	FindByUsername(ctx context.Context, username string) (*Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Save inserts the account and sets acc.ID. A taken username yields ErrConflict.
	Save(ctx context.Context, acc *Account) error
	FindByID(ctx context.Context, id int64) (*Account, error)
}

// Roles is the role and link half of the relational store.
type Roles interface {
	FindRoleByID(ctx context.Context, id int64) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	// FindRoleIDsByAccount returns role ids in link insertion order.
	FindRoleIDsByAccount(ctx context.Context, accountID int64) ([]int64, error)
	// SaveLink is idempotent for an existing (accountID, roleID) pair.
	SaveLink(ctx context.Context, accountID, roleID int64) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
