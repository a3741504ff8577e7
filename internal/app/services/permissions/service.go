// Package permissions centralizes capability evaluation for every
// permission-gated operation. All mutating entry points must consult it
// before touching state.
package permissions

import (
	"context"
	"errors"

	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/storage"
	"github.com/jessiesmp/intake/pkg/logger"
)

// ErrForbidden marks an attempt by an actor without the required capability.
var ErrForbidden = errors.New("insufficient permissions")

// Capabilities is the derived permission set of an actor. The booleans are
// monotonic: IsRoot implies IsOwner implies IsAdmin implies IsCurator.
type Capabilities struct {
	IsRoot    bool
	IsOwner   bool
	IsAdmin   bool
	IsCurator bool
}

// Service evaluates actor capabilities from the role store and the configured
// root identity.
type Service struct {
	roles storage.RoleStore
	root  string
	log   *logger.Logger
}

// New constructs an evaluator. rootActor is the out-of-band configured
// identity that holds every role; a leading @ is tolerated.
func New(roles storage.RoleStore, rootActor string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("permissions")
	}
	return &Service{roles: roles, root: role.Normalize(rootActor), log: log}
}

// Capabilities resolves the capability set for actorID. The root check never
// touches the store, so the root actor keeps full capabilities even when the
// store is unavailable or empty.
func (s *Service) Capabilities(ctx context.Context, actorID string) (Capabilities, error) {
	actor := role.Normalize(actorID)

	isRoot := s.root != "" && actor == s.root
	if isRoot {
		return Capabilities{IsRoot: true, IsOwner: true, IsAdmin: true, IsCurator: true}, nil
	}

	rec, err := s.roles.GetRoles(ctx, actor)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Capabilities{}, err
	}

	caps := Capabilities{}
	caps.IsOwner = rec.Has(role.Owner)
	caps.IsAdmin = caps.IsOwner || rec.Has(role.Admin)
	caps.IsCurator = caps.IsAdmin || rec.Has(role.Curator)
	return caps, nil
}
