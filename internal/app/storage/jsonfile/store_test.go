package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/notification"
	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/storage"
)

func TestApplicationsPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	created, err := store.CreateApplication(ctx, application.Application{
		SubmitterID: "u1",
		Payload:     application.Payload{Nickname: "player"},
		Status:      application.StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("id and timestamp should be filled in: %+v", created)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetApplication(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.SubmitterID != "u1" || got.Payload.Nickname != "player" {
		t.Fatalf("record lost on reopen: %+v", got)
	}
}

func TestFindActiveExcludesDeleted(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	created, err := store.CreateApplication(ctx, application.Application{
		SubmitterID: "u1",
		Payload:     application.Payload{Nickname: "player"},
		Status:      application.StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.FindActiveBySubmitter(ctx, "u1"); err != nil {
		t.Fatalf("find active: %v", err)
	}

	created.Deleted = true
	if _, err := store.UpdateApplication(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.FindActiveBySubmitter(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("deleted application should be invisible, got %v", err)
	}
}

func TestUpdateUnknownApplication(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = store.UpdateApplication(context.Background(), application.Application{ID: "app_missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRolesFileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := store.PutRoles(ctx, role.Record{ActorID: "alice", Roles: []role.Role{role.Owner, role.Curator}}); err != nil {
		t.Fatalf("put roles: %v", err)
	}

	// The file keeps the handle-to-roles map layout.
	data, err := os.ReadFile(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatalf("read users.json: %v", err)
	}
	var users map[string][]string
	if err := json.Unmarshal(data, &users); err != nil {
		t.Fatalf("users.json should hold a map: %v", err)
	}
	if len(users["alice"]) != 2 {
		t.Fatalf("unexpected layout: %v", users)
	}

	rec, err := store.GetRoles(ctx, "alice")
	if err != nil {
		t.Fatalf("get roles: %v", err)
	}
	if !rec.Has(role.Owner) || !rec.Has(role.Curator) {
		t.Fatalf("roles lost: %+v", rec)
	}

	if _, err := store.GetRoles(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationFeed(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	own, err := store.CreateNotification(ctx, notification.Notification{UserID: "u1", Title: "own"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateNotification(ctx, notification.Notification{UserID: "", Title: "broadcast"}); err != nil {
		t.Fatalf("create broadcast: %v", err)
	}
	if _, err := store.CreateNotification(ctx, notification.Notification{UserID: "u2", Title: "other"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	feed, err := store.ListNotificationsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected own entry plus broadcast, got %d", len(feed))
	}

	own.Read = true
	if _, err := store.UpdateNotification(ctx, own); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.GetNotification(ctx, own.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Read {
		t.Fatalf("read flag not persisted")
	}
}
