// Package jsonfile implements the storage interfaces on flat JSON files under
// a data directory, one file per collection. Every mutation is a
// read-modify-write of the whole collection, written via a temp file and
// rename so a crash never leaves a half-written collection behind. Writers to
// the same collection are serialized within the process; concurrent writers
// in separate processes can still lose updates, which the storage contract
// accepts.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/notification"
	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/storage"
)

const (
	applicationsFile  = "applications.json"
	usersFile         = "users.json"
	notificationsFile = "notifications.json"
)

// Store persists the three collections under dir.
type Store struct {
	dir string

	appMu   sync.Mutex
	roleMu  sync.Mutex
	notifMu sync.Mutex
}

var (
	_ storage.ApplicationStore  = (*Store)(nil)
	_ storage.RoleStore         = (*Store)(nil)
	_ storage.NotificationStore = (*Store)(nil)
)

// New creates the data directory if needed and returns a store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func readCollection[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func writeFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ApplicationStore implementation --------------------------------------------

func (s *Store) appPath() string { return filepath.Join(s.dir, applicationsFile) }

func (s *Store) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	s.appMu.Lock()
	defer s.appMu.Unlock()

	apps, err := readCollection[application.Application](s.appPath())
	if err != nil {
		return application.Application{}, err
	}
	if app.ID == "" {
		app.ID = application.NewID()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	apps = append(apps, app)
	if err := writeFile(s.appPath(), apps); err != nil {
		return application.Application{}, err
	}
	return app, nil
}

func (s *Store) UpdateApplication(_ context.Context, app application.Application) (application.Application, error) {
	s.appMu.Lock()
	defer s.appMu.Unlock()

	apps, err := readCollection[application.Application](s.appPath())
	if err != nil {
		return application.Application{}, err
	}
	for i := range apps {
		if apps[i].ID == app.ID {
			app.CreatedAt = apps[i].CreatedAt
			apps[i] = app
			if err := writeFile(s.appPath(), apps); err != nil {
				return application.Application{}, err
			}
			return app, nil
		}
	}
	return application.Application{}, storage.ErrNotFound
}

func (s *Store) GetApplication(_ context.Context, id string) (application.Application, error) {
	apps, err := readCollection[application.Application](s.appPath())
	if err != nil {
		return application.Application{}, err
	}
	for _, app := range apps {
		if app.ID == id {
			return app, nil
		}
	}
	return application.Application{}, storage.ErrNotFound
}

func (s *Store) FindActiveBySubmitter(_ context.Context, submitterID string) (application.Application, error) {
	apps, err := readCollection[application.Application](s.appPath())
	if err != nil {
		return application.Application{}, err
	}
	for _, app := range apps {
		if app.SubmitterID == submitterID && !app.Deleted {
			return app, nil
		}
	}
	return application.Application{}, storage.ErrNotFound
}

func (s *Store) ListApplications(_ context.Context) ([]application.Application, error) {
	return readCollection[application.Application](s.appPath())
}

// RoleStore implementation ----------------------------------------------------

// Roles are stored in users.json as a map of actor handle to the list of
// role tags.
func (s *Store) rolePath() string { return filepath.Join(s.dir, usersFile) }

func (s *Store) readRoles() (map[string][]role.Role, error) {
	data, err := os.ReadFile(s.rolePath())
	if os.IsNotExist(err) {
		return map[string][]role.Role{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", usersFile, err)
	}
	var users map[string][]role.Role
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", usersFile, err)
	}
	if users == nil {
		users = map[string][]role.Role{}
	}
	return users, nil
}

func (s *Store) GetRoles(_ context.Context, actorID string) (role.Record, error) {
	users, err := s.readRoles()
	if err != nil {
		return role.Record{}, err
	}
	roles, ok := users[actorID]
	if !ok {
		return role.Record{}, storage.ErrNotFound
	}
	return role.Record{ActorID: actorID, Roles: roles}, nil
}

func (s *Store) PutRoles(_ context.Context, rec role.Record) (role.Record, error) {
	s.roleMu.Lock()
	defer s.roleMu.Unlock()

	users, err := s.readRoles()
	if err != nil {
		return role.Record{}, err
	}
	users[rec.ActorID] = rec.Roles
	if err := writeFile(s.rolePath(), users); err != nil {
		return role.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListRoles(_ context.Context) ([]role.Record, error) {
	users, err := s.readRoles()
	if err != nil {
		return nil, err
	}
	result := make([]role.Record, 0, len(users))
	for actor, roles := range users {
		result = append(result, role.Record{ActorID: actor, Roles: roles})
	}
	return result, nil
}

// NotificationStore implementation --------------------------------------------

func (s *Store) notifPath() string { return filepath.Join(s.dir, notificationsFile) }

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.notifMu.Lock()
	defer s.notifMu.Unlock()

	feed, err := readCollection[notification.Notification](s.notifPath())
	if err != nil {
		return notification.Notification{}, err
	}
	if n.ID == "" {
		n.ID = notification.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	feed = append(feed, n)
	if err := writeFile(s.notifPath(), feed); err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *Store) UpdateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.notifMu.Lock()
	defer s.notifMu.Unlock()

	feed, err := readCollection[notification.Notification](s.notifPath())
	if err != nil {
		return notification.Notification{}, err
	}
	for i := range feed {
		if feed[i].ID == n.ID {
			n.CreatedAt = feed[i].CreatedAt
			feed[i] = n
			if err := writeFile(s.notifPath(), feed); err != nil {
				return notification.Notification{}, err
			}
			return n, nil
		}
	}
	return notification.Notification{}, storage.ErrNotFound
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	feed, err := readCollection[notification.Notification](s.notifPath())
	if err != nil {
		return notification.Notification{}, err
	}
	for _, n := range feed {
		if n.ID == id {
			return n, nil
		}
	}
	return notification.Notification{}, storage.ErrNotFound
}

func (s *Store) ListNotificationsFor(_ context.Context, userID string) ([]notification.Notification, error) {
	feed, err := readCollection[notification.Notification](s.notifPath())
	if err != nil {
		return nil, err
	}
	var result []notification.Notification
	for _, n := range feed {
		if n.UserID == "" || n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, nil
}
