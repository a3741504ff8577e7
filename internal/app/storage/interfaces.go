package storage

import (
	"context"
	"errors"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/notification"
	"github.com/jessiesmp/intake/internal/app/domain/role"
)

// ErrNotFound is returned by stores when no record matches.
var ErrNotFound = errors.New("record not found")

// ApplicationStore persists membership applications.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app application.Application) (application.Application, error)
	UpdateApplication(ctx context.Context, app application.Application) (application.Application, error)
	GetApplication(ctx context.Context, id string) (application.Application, error)
	// FindActiveBySubmitter returns the submitter's non-deleted application,
	// or ErrNotFound. Terminal status alone does not make a record inactive;
	// only the deleted flag does.
	FindActiveBySubmitter(ctx context.Context, submitterID string) (application.Application, error)
	ListApplications(ctx context.Context) ([]application.Application, error)
}

// RoleStore persists per-actor role sets.
type RoleStore interface {
	GetRoles(ctx context.Context, actorID string) (role.Record, error)
	PutRoles(ctx context.Context, rec role.Record) (role.Record, error)
	ListRoles(ctx context.Context) ([]role.Record, error)
}

// NotificationStore persists the append-only notification feed.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	UpdateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	GetNotification(ctx context.Context, id string) (notification.Notification, error)
	// ListNotificationsFor returns the reader's entries plus broadcasts.
	ListNotificationsFor(ctx context.Context, userID string) ([]notification.Notification, error)
}
