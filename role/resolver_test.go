package role

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/baxter-io/sessionauth/store"
	"github.com/baxter-io/sessionauth/store/memory"
)

type countingRoles struct {
	*memory.Store
	byName []string
	failID int64
}

func (c *countingRoles) FindRoleByName(ctx context.Context, name string) (*store.Role, error) {
	c.byName = append(c.byName, name)
	return c.Store.FindRoleByName(ctx, name)
}

func (c *countingRoles) FindRoleByID(ctx context.Context, id int64) (*store.Role, error) {
	if id == c.failID {
		return nil, store.ErrUnavailable
	}
	return c.Store.FindRoleByID(ctx, id)
}

func TestResolveByUserKeepsLinkOrder(t *testing.T) {
	mem := memory.New("ROLE_USER", "ROLE_ADMIN", "ROLE_AUDITOR")
	ctx := context.Background()
	_ = mem.SaveLink(ctx, 1, 3)
	_ = mem.SaveLink(ctx, 1, 1)

	names, err := NewResolver(mem).ResolveByUser(ctx, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.Join(names, ",") != "ROLE_AUDITOR,ROLE_USER" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestResolveByUserNoLinks(t *testing.T) {
	names, err := NewResolver(memory.New("ROLE_USER")).ResolveByUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no roles, got %v", names)
	}
}

func TestResolveByUserSkipsDanglingLinks(t *testing.T) {
	mem := memory.New("ROLE_USER", "ROLE_ADMIN")
	ctx := context.Background()
	_ = mem.SaveLink(ctx, 1, 1)
	_ = mem.SaveLink(ctx, 1, 2)
	mem.DeleteRole(1)

	names, err := NewResolver(mem).ResolveByUser(ctx, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.Join(names, ",") != "ROLE_ADMIN" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestResolveByUserPropagatesStoreFailure(t *testing.T) {
	mem := memory.New("ROLE_USER")
	ctx := context.Background()
	_ = mem.SaveLink(ctx, 1, 1)

	_, err := NewResolver(&countingRoles{Store: mem, failID: 1}).ResolveByUser(ctx, 1)
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolveByNamesFailsFast(t *testing.T) {
	roles := &countingRoles{Store: memory.New("ROLE_USER", "ROLE_ADMIN")}

	_, err := NewResolver(roles).ResolveByNames(context.Background(), []string{"ROLE_USER", "ROLE_NOPE", "ROLE_ADMIN"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Name != "ROLE_NOPE" {
		t.Fatalf("expected NotFoundError for ROLE_NOPE, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("NotFoundError must match ErrNotFound")
	}
	if len(roles.byName) != 2 {
		t.Fatalf("expected lookup to stop after the missing name, saw %v", roles.byName)
	}
}

func TestResolveByNamesReturnsRows(t *testing.T) {
	out, err := NewResolver(memory.New("ROLE_USER", "ROLE_ADMIN")).
		ResolveByNames(context.Background(), []string{"ROLE_ADMIN", "ROLE_USER"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(out) != 2 || out[0].Name != "ROLE_ADMIN" || out[0].ID != 2 || out[1].ID != 1 {
		t.Fatalf("unexpected rows %+v", out)
	}
}
