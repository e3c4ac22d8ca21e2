// Package role translates between account-role links and role names.
package role

import (
	"context"
	"errors"
	"fmt"

	"github.com/baxter-io/sessionauth/store"
)

// ErrNotFound matches any *NotFoundError via errors.Is.
var ErrNotFound = errors.New("role not found")

// NotFoundError names the first requested role that has no row.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("role not found: %s", e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Resolver reads role data through store.Roles.
type Resolver struct {
	roles store.Roles
}

func NewResolver(roles store.Roles) *Resolver {
	return &Resolver{roles: roles}
}

// ResolveByUser returns the names of the roles linked to accountID, in link
// insertion order. Links whose role row no longer exists are skipped.
func (r *Resolver) ResolveByUser(ctx context.Context, accountID int64) ([]string, error) {
	ids, err := r.roles.FindRoleIDsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("role ids for account %d: %w", accountID, err)
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		role, err := r.roles.FindRoleByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("role %d: %w", id, err)
		}
		names = append(names, role.Name)
	}
	return names, nil
}

// ResolveByNames looks up each name in order and stops at the first one that
// has no role row, returning a *NotFoundError for it.
func (r *Resolver) ResolveByNames(ctx context.Context, names []string) ([]store.Role, error) {
	out := make([]store.Role, 0, len(names))
	for _, name := range names {
		role, err := r.roles.FindRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &NotFoundError{Name: name}
			}
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		out = append(out, *role)
	}
	return out, nil
}
