// Package app ties the intake services together and manages their lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/jessiesmp/intake/internal/app/review"
	applicationsvc "github.com/jessiesmp/intake/internal/app/services/applications"
	notificationsvc "github.com/jessiesmp/intake/internal/app/services/notifications"
	permissionsvc "github.com/jessiesmp/intake/internal/app/services/permissions"
	rolesvc "github.com/jessiesmp/intake/internal/app/services/roles"
	"github.com/jessiesmp/intake/internal/app/storage"
	"github.com/jessiesmp/intake/internal/app/storage/memory"
	"github.com/jessiesmp/intake/internal/app/system"
	"github.com/jessiesmp/intake/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Applications  storage.ApplicationStore
	Roles         storage.RoleStore
	Notifications storage.NotificationStore
}

// Options carries optional wiring beyond the stores.
type Options struct {
	// RootActor is the handle that always holds every capability,
	// independent of the role store.
	RootActor string
	// Transport, when set, connects the review-channel bridge. Transports
	// that also implement system.Service are lifecycle-managed.
	Transport review.Transport
	// DigestSchedule is a cron expression for the pending-application
	// digest. Empty disables the digest. Ignored without a transport.
	DigestSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Permissions   *permissionsvc.Service
	Notifications *notificationsvc.Service
	Roles         *rolesvc.Service
	Applications  *applicationsvc.Service
	Bridge        *review.Bridge
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Applications == nil {
		stores.Applications = mem
	}
	if stores.Roles == nil {
		stores.Roles = mem
	}
	if stores.Notifications == nil {
		stores.Notifications = mem
	}

	manager := system.NewManager()

	permService := permissionsvc.New(stores.Roles, opts.RootActor, log)
	notifService := notificationsvc.New(stores.Notifications, log)
	roleService := rolesvc.New(stores.Roles, permService, log)
	appService := applicationsvc.New(stores.Applications, permService, notifService, log)

	for _, name := range []string{"permissions", "notifications", "roles", "applications"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	var bridge *review.Bridge
	if opts.Transport != nil {
		bridge = review.New(appService, permService, roleService, opts.Transport, log)
		appService.AttachSink(bridge)

		if handled, ok := opts.Transport.(interface{ SetHandler(review.InboundHandler) }); ok {
			handled.SetHandler(bridge)
		}
		if svc, ok := opts.Transport.(system.Service); ok {
			if err := manager.Register(svc); err != nil {
				return nil, fmt.Errorf("register transport: %w", err)
			}
		}
		if opts.DigestSchedule != "" {
			digest := review.NewDigest(appService, opts.Transport, opts.DigestSchedule, log)
			if err := manager.Register(digest); err != nil {
				return nil, fmt.Errorf("register digest: %w", err)
			}
		}
	} else {
		log.Warn("no review transport configured; applications will not reach reviewers")
	}

	return &Application{
		manager:       manager,
		log:           log,
		Permissions:   permService,
		Notifications: notifService,
		Roles:         roleService,
		Applications:  appService,
		Bridge:        bridge,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
