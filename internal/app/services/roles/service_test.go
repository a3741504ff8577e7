package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/services/permissions"
	"github.com/jessiesmp/intake/internal/app/storage/memory"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	perms := permissions.New(store, "root_admin", nil)
	return New(store, perms, nil), store
}

func TestGrantMatrix(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	seed := func(actor string, roles ...role.Role) {
		t.Helper()
		if _, err := store.PutRoles(ctx, role.Record{ActorID: actor, Roles: roles}); err != nil {
			t.Fatalf("seed roles: %v", err)
		}
	}
	seed("olivia", role.Owner)
	seed("adam", role.Admin)
	seed("carol", role.Curator)

	cases := []struct {
		name    string
		actor   string
		grant   role.Role
		allowed bool
	}{
		{"root grants owner", "root_admin", role.Owner, true},
		{"owner grants admin", "olivia", role.Admin, true},
		{"owner grants curator", "olivia", role.Curator, true},
		{"admin grants curator", "adam", role.Curator, true},
		{"admin cannot grant admin", "adam", role.Admin, false},
		{"admin cannot grant owner", "adam", role.Owner, false},
		{"curator cannot grant curator", "carol", role.Curator, false},
		{"stranger cannot grant", "nobody", role.Curator, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Assign(ctx, tc.actor, "target_"+tc.actor, tc.grant)
			if tc.allowed && err != nil {
				t.Fatalf("assign: %v", err)
			}
			if !tc.allowed {
				if !errors.Is(err, permissions.ErrForbidden) {
					t.Fatalf("expected ErrForbidden, got %v", err)
				}
				rec, recErr := store.GetRoles(ctx, "target_"+tc.actor)
				if recErr == nil && rec.Has(tc.grant) {
					t.Fatalf("denied grant must not mutate the store")
				}
			}
		})
	}
}

func TestAssignIdempotent(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	if err := svc.Assign(ctx, "root_admin", "@bob", role.Curator); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if err := svc.Assign(ctx, "root_admin", "bob", role.Curator); err != nil {
		t.Fatalf("repeat grant should be a no-op: %v", err)
	}

	rec, err := store.GetRoles(ctx, "bob")
	if err != nil {
		t.Fatalf("get roles: %v", err)
	}
	if len(rec.Roles) != 1 {
		t.Fatalf("expected a single curator role, got %v", rec.Roles)
	}
}

func TestAssignRequiresTarget(t *testing.T) {
	svc, _ := newService(t)

	if err := svc.Assign(context.Background(), "root_admin", "  @ ", role.Curator); err == nil {
		t.Fatalf("expected error for empty target")
	}
}
