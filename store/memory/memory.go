// Package memory provides an in-process implementation of the store
// interfaces. It is meant for tests and local development when no database is
// configured.
package memory

import (
	"context"
	"sync"

	"github.com/baxter-io/sessionauth/store"
)

var (
	_ store.Accounts = (*Store)(nil)
	_ store.Roles    = (*Store)(nil)
)

type link struct {
	accountID int64
	roleID    int64
}

// Store keeps accounts, roles and links in maps guarded by a single mutex.
type Store struct {
	mu sync.Mutex

	nextAccountID int64
	nextRoleID    int64

	accounts   map[int64]store.Account
	byUsername map[string]int64
	roles      map[int64]store.Role
	roleByName map[string]int64
	links      []link
}

// New returns an empty store seeded with the given role names, in order.
func New(roleNames ...string) *Store {
	s := &Store{
		accounts:   make(map[int64]store.Account),
		byUsername: make(map[string]int64),
		roles:      make(map[int64]store.Role),
		roleByName: make(map[string]int64),
	}
	for _, name := range roleNames {
		s.AddRole(name)
	}
	return s
}

// AddRole inserts a role if the name is not present and returns its id.
func (s *Store) AddRole(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.roleByName[name]; ok {
		return id
	}
	s.nextRoleID++
	s.roles[s.nextRoleID] = store.Role{ID: s.nextRoleID, Name: name}
	s.roleByName[name] = s.nextRoleID
	return s.nextRoleID
}

// DeleteRole removes the role row but leaves links pointing at it.
func (s *Store) DeleteRole(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.roles[id]; ok {
		delete(s.roleByName, r.Name)
		delete(s.roles, id)
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) FindByUsername(ctx context.Context, username string) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	acc := s.accounts[id]
	return &acc, nil
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byUsername[username]
	return ok, nil
}

func (s *Store) Save(ctx context.Context, acc *store.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[acc.Username]; ok {
		return store.ErrConflict
	}
	s.nextAccountID++
	acc.ID = s.nextAccountID
	s.accounts[acc.ID] = *acc
	s.byUsername[acc.Username] = acc.ID
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*store.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &acc, nil
}

func (s *Store) FindRoleByID(ctx context.Context, id int64) (*store.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*store.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.roleByName[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	r := s.roles[id]
	return &r, nil
}

func (s *Store) FindRoleIDsByAccount(ctx context.Context, accountID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for _, l := range s.links {
		if l.accountID == accountID {
			ids = append(ids, l.roleID)
		}
	}
	return ids, nil
}

func (s *Store) SaveLink(ctx context.Context, accountID, roleID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.links {
		if l.accountID == accountID && l.roleID == roleID {
			return nil
		}
	}
	s.links = append(s.links, link{accountID: accountID, roleID: roleID})
	return nil
}
