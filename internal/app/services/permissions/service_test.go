package permissions

import (
	"context"
	"errors"
	"testing"

	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/storage/memory"
)

type failingRoleStore struct{}

func (failingRoleStore) GetRoles(context.Context, string) (role.Record, error) {
	return role.Record{}, errors.New("store down")
}

func (failingRoleStore) PutRoles(context.Context, role.Record) (role.Record, error) {
	return role.Record{}, errors.New("store down")
}

func (failingRoleStore) ListRoles(context.Context) ([]role.Record, error) {
	return nil, errors.New("store down")
}

func TestCapabilityLadder(t *testing.T) {
	store := memory.New()
	svc := New(store, "root_admin", nil)
	ctx := context.Background()

	seed := func(actor string, roles ...role.Role) {
		t.Helper()
		if _, err := store.PutRoles(ctx, role.Record{ActorID: actor, Roles: roles}); err != nil {
			t.Fatalf("seed roles: %v", err)
		}
	}
	seed("carol", role.Curator)
	seed("adam", role.Admin)
	seed("olivia", role.Owner)

	cases := []struct {
		actor string
		want  Capabilities
	}{
		{"root_admin", Capabilities{IsRoot: true, IsOwner: true, IsAdmin: true, IsCurator: true}},
		{"olivia", Capabilities{IsOwner: true, IsAdmin: true, IsCurator: true}},
		{"adam", Capabilities{IsAdmin: true, IsCurator: true}},
		{"carol", Capabilities{IsCurator: true}},
		{"nobody", Capabilities{}},
	}
	for _, tc := range cases {
		t.Run(tc.actor, func(t *testing.T) {
			caps, err := svc.Capabilities(ctx, tc.actor)
			if err != nil {
				t.Fatalf("capabilities: %v", err)
			}
			if caps != tc.want {
				t.Fatalf("capabilities for %s = %+v, want %+v", tc.actor, caps, tc.want)
			}
		})
	}
}

func TestRootIndependentOfStore(t *testing.T) {
	svc := New(failingRoleStore{}, "@root_admin", nil)

	caps, err := svc.Capabilities(context.Background(), "root_admin")
	if err != nil {
		t.Fatalf("root lookup should not touch the store: %v", err)
	}
	if !caps.IsRoot || !caps.IsCurator {
		t.Fatalf("root should hold every capability, got %+v", caps)
	}

	if _, err := svc.Capabilities(context.Background(), "someone"); err == nil {
		t.Fatalf("expected store error for non-root actor")
	}
}

func TestHandleNormalization(t *testing.T) {
	store := memory.New()
	svc := New(store, "Root", nil)
	ctx := context.Background()

	if _, err := store.PutRoles(ctx, role.Record{ActorID: "olivia", Roles: []role.Role{role.Owner}}); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	caps, err := svc.Capabilities(ctx, "@olivia ")
	if err != nil {
		t.Fatalf("capabilities: %v", err)
	}
	if !caps.IsOwner {
		t.Fatalf("leading @ and whitespace should be stripped before lookup")
	}

	caps, err = svc.Capabilities(ctx, "@Root")
	if err != nil {
		t.Fatalf("capabilities: %v", err)
	}
	if !caps.IsRoot {
		t.Fatalf("root handle should match with leading @, got %+v", caps)
	}
}
