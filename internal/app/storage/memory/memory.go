// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It is intended for tests and local development and
// deliberately keeps the implementation simple.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/notification"
	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/storage"
)

// Store holds all three collections behind one lock.
type Store struct {
	mu            sync.RWMutex
	applications  map[string]application.Application
	roles         map[string]role.Record
	notifications map[string]notification.Notification
	feedOrder     []string
}

var (
	_ storage.ApplicationStore  = (*Store)(nil)
	_ storage.RoleStore         = (*Store)(nil)
	_ storage.NotificationStore = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		applications:  make(map[string]application.Application),
		roles:         make(map[string]role.Record),
		notifications: make(map[string]notification.Notification),
	}
}

// ApplicationStore implementation --------------------------------------------

func (s *Store) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = application.NewID()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	s.applications[app.ID] = app
	return app, nil
}

func (s *Store) UpdateApplication(_ context.Context, app application.Application) (application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.applications[app.ID]
	if !ok {
		return application.Application{}, storage.ErrNotFound
	}
	app.CreatedAt = original.CreatedAt
	s.applications[app.ID] = app
	return app, nil
}

func (s *Store) GetApplication(_ context.Context, id string) (application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return application.Application{}, storage.ErrNotFound
	}
	return app, nil
}

func (s *Store) FindActiveBySubmitter(_ context.Context, submitterID string) (application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, app := range s.applications {
		if app.SubmitterID == submitterID && !app.Deleted {
			return app, nil
		}
	}
	return application.Application{}, storage.ErrNotFound
}

func (s *Store) ListApplications(_ context.Context) ([]application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]application.Application, 0, len(s.applications))
	for _, app := range s.applications {
		result = append(result, app)
	}
	return result, nil
}

// RoleStore implementation ----------------------------------------------------

func (s *Store) GetRoles(_ context.Context, actorID string) (role.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.roles[actorID]
	if !ok {
		return role.Record{}, storage.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *Store) PutRoles(_ context.Context, rec role.Record) (role.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles[rec.ActorID] = cloneRecord(rec)
	return rec, nil
}

func (s *Store) ListRoles(_ context.Context) ([]role.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]role.Record, 0, len(s.roles))
	for _, rec := range s.roles {
		result = append(result, cloneRecord(rec))
	}
	return result, nil
}

// NotificationStore implementation --------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = notification.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications[n.ID] = n
	s.feedOrder = append(s.feedOrder, n.ID)
	return n, nil
}

func (s *Store) UpdateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.notifications[n.ID]
	if !ok {
		return notification.Notification{}, storage.ErrNotFound
	}
	n.CreatedAt = original.CreatedAt
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, storage.ErrNotFound
	}
	return n, nil
}

func (s *Store) ListNotificationsFor(_ context.Context, userID string) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []notification.Notification
	for _, id := range s.feedOrder {
		n := s.notifications[id]
		if n.UserID == "" || n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, nil
}

func cloneRecord(rec role.Record) role.Record {
	out := rec
	out.Roles = append([]role.Role(nil), rec.Roles...)
	return out
}
