package applications

import (
	"context"
	"errors"
	"testing"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/services/notifications"
	"github.com/jessiesmp/intake/internal/app/services/permissions"
	"github.com/jessiesmp/intake/internal/app/storage"
	"github.com/jessiesmp/intake/internal/app/storage/memory"
)

type recordingSink struct {
	submitted []application.Application
	decided   []application.Application
}

func (s *recordingSink) ApplicationSubmitted(_ context.Context, app application.Application) {
	s.submitted = append(s.submitted, app)
}

func (s *recordingSink) ApplicationDecided(_ context.Context, app application.Application) {
	s.decided = append(s.decided, app)
}

type failingCreateStore struct {
	*memory.Store
}

func (failingCreateStore) CreateApplication(context.Context, application.Application) (application.Application, error) {
	return application.Application{}, errors.New("disk full")
}

func newFixture(t *testing.T) (*Service, *memory.Store, *notifications.Service) {
	t.Helper()
	store := memory.New()
	perms := permissions.New(store, "root_admin", nil)
	notify := notifications.New(store, nil)
	return New(store, perms, notify, nil), store, notify
}

func payload(nickname string) application.Payload {
	return application.Payload{Nickname: nickname, Age: "25", Contact: "@" + nickname}
}

func TestSubmitRejectsDuplicates(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "u1", payload("player")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", payload("player2")); !errors.Is(err, ErrDuplicateApplication) {
		t.Fatalf("expected ErrDuplicateApplication, got %v", err)
	}

	all, err := store.ListApplications(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rejected duplicate must not create a record, got %d", len(all))
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "  ", payload("player")); err == nil {
		t.Fatalf("expected error for empty submitter id")
	}
	if _, err := svc.Submit(ctx, "u1", application.Payload{}); err == nil {
		t.Fatalf("expected error for empty nickname")
	}
}

func TestReviewEscalationScenario(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()

	seed := func(actor string, roles ...role.Role) {
		t.Helper()
		if _, err := store.PutRoles(ctx, role.Record{ActorID: actor, Roles: roles}); err != nil {
			t.Fatalf("seed roles: %v", err)
		}
	}
	seed("bob", role.Curator)
	seed("alice", role.Owner)

	app1, err := svc.Submit(ctx, "applicant1", payload("one"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	app2, err := svc.Submit(ctx, "applicant2", payload("two"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	decided, err := svc.Decide(ctx, app1.ID, "bob", application.StatusApproved)
	if err != nil {
		t.Fatalf("curator approve: %v", err)
	}
	if decided.Status != application.StatusApproved || decided.Reviewer != "bob" || decided.DecidedAt == nil {
		t.Fatalf("decision not recorded: %+v", decided)
	}

	if _, err := svc.Decide(ctx, app2.ID, "alice", application.StatusRejected); err != nil {
		t.Fatalf("owner reject: %v", err)
	}

	status, err := svc.StatusOf(ctx, "applicant1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != application.StatusApproved {
		t.Fatalf("expected approved status, got %s", status.Status)
	}
}

func TestDecideIdempotentAndGated(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()

	if _, err := store.PutRoles(ctx, role.Record{ActorID: "bob", Roles: []role.Role{role.Curator}}); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	app, err := svc.Submit(ctx, "u1", payload("player"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Decide(ctx, app.ID, "mallory", application.StatusApproved); !errors.Is(err, permissions.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	current, _ := store.GetApplication(ctx, app.ID)
	if current.Status != application.StatusPending {
		t.Fatalf("denied decision must not mutate the application")
	}

	if _, err := svc.Decide(ctx, app.ID, "bob", application.StatusPending); err == nil {
		t.Fatalf("expected error for non-terminal outcome")
	}

	if _, err := svc.Decide(ctx, app.ID, "bob", application.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	repeat, err := svc.Decide(ctx, app.ID, "bob", application.StatusRejected)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if repeat.Status != application.StatusApproved || repeat.Reviewer != "bob" {
		t.Fatalf("repeat decision must not change the original: %+v", repeat)
	}

	if _, err := svc.Decide(ctx, "app_missing", "bob", application.StatusApproved); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventsGatedOnPersistence(t *testing.T) {
	store := memory.New()
	perms := permissions.New(store, "root_admin", nil)
	notify := notifications.New(store, nil)

	sink := &recordingSink{}
	svc := New(failingCreateStore{store}, perms, notify, nil)
	svc.AttachSink(sink)

	if _, err := svc.Submit(context.Background(), "u1", payload("player")); err == nil {
		t.Fatalf("expected storage error")
	}
	if len(sink.submitted) != 0 {
		t.Fatalf("no event may fire when persistence fails")
	}
}

func TestSinkAndNotificationsOnLifecycle(t *testing.T) {
	svc, store, notify := newFixture(t)
	ctx := context.Background()

	sink := &recordingSink{}
	svc.AttachSink(sink)

	if _, err := store.PutRoles(ctx, role.Record{ActorID: "bob", Roles: []role.Role{role.Curator}}); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	app, err := svc.Submit(ctx, "u1", payload("player"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(sink.submitted) != 1 || sink.submitted[0].ID != app.ID {
		t.Fatalf("submission event missing")
	}

	if _, err := svc.Decide(ctx, app.ID, "bob", application.StatusRejected); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if len(sink.decided) != 1 {
		t.Fatalf("decision event missing")
	}

	feed, err := notify.ListFor(ctx, "u1")
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected submission and decision notifications, got %d", len(feed))
	}
}

func TestDiscardFreesSubmitter(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, "u1", payload("player"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Discard(ctx, app.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if err := svc.Discard(ctx, app.ID); err != nil {
		t.Fatalf("repeat discard should be a no-op: %v", err)
	}

	if _, err := svc.StatusOf(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("discarded application must not be visible, got %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", payload("again")); err != nil {
		t.Fatalf("resubmission after discard should succeed: %v", err)
	}
}
