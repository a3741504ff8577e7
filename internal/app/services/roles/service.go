// Package roles applies role grants under the escalation rules: owner and
// admin may only be granted by an owner (or root), curator by an admin or
// above.
package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/metrics"
	"github.com/jessiesmp/intake/internal/app/services/permissions"
	"github.com/jessiesmp/intake/internal/app/storage"
	"github.com/jessiesmp/intake/pkg/logger"
)

// Service grants roles to actors.
type Service struct {
	store storage.RoleStore
	perms *permissions.Service
	log   *logger.Logger
}

// New constructs a role service.
func New(store storage.RoleStore, perms *permissions.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("roles")
	}
	return &Service{store: store, perms: perms, log: log}
}

// CanGrant reports whether an actor with the given capabilities may grant r.
func CanGrant(caps permissions.Capabilities, r role.Role) bool {
	switch r {
	case role.Owner, role.Admin:
		return caps.IsOwner
	case role.Curator:
		return caps.IsAdmin
	}
	return false
}

// Assign grants r to targetID on behalf of actorID. Granting an already-held
// role is a no-op success. The permission check precedes any store mutation.
func (s *Service) Assign(ctx context.Context, actorID, targetID string, r role.Role) error {
	caps, err := s.perms.Capabilities(ctx, actorID)
	if err != nil {
		return fmt.Errorf("evaluate actor capabilities: %w", err)
	}
	if !CanGrant(caps, r) {
		return permissions.ErrForbidden
	}

	target := role.Normalize(targetID)
	if target == "" {
		return fmt.Errorf("target identity is required")
	}

	rec, err := s.store.GetRoles(ctx, target)
	if errors.Is(err, storage.ErrNotFound) {
		rec = role.Record{ActorID: target}
	} else if err != nil {
		return err
	}

	if rec.Has(r) {
		return nil
	}

	rec.Roles = append(rec.Roles, r)
	if _, err := s.store.PutRoles(ctx, rec); err != nil {
		return err
	}

	metrics.RecordRoleGrant(string(r))
	s.log.WithField("actor", role.Normalize(actorID)).
		WithField("target", target).
		WithField("role", r).
		Info("role granted")
	return nil
}
