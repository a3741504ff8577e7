// Package applications owns the membership-application lifecycle: one open
// application per submitter, a single terminal decision, and event fan-out
// once a record is durably persisted.
package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/metrics"
	"github.com/jessiesmp/intake/internal/app/services/notifications"
	"github.com/jessiesmp/intake/internal/app/services/permissions"
	"github.com/jessiesmp/intake/internal/app/storage"
	"github.com/jessiesmp/intake/pkg/logger"
)

var (
	// ErrDuplicateApplication is returned when the submitter already has an
	// open application.
	ErrDuplicateApplication = errors.New("an active application already exists")

	// ErrAlreadyDecided is returned when a decision targets an application
	// that is already in a terminal state. Safe to retry; nothing changes.
	ErrAlreadyDecided = errors.New("application already decided")
)

// EventSink receives lifecycle events. Events fire only after the record has
// been persisted; sink failures must not affect the lifecycle outcome, so
// sinks handle and log their own errors.
type EventSink interface {
	ApplicationSubmitted(ctx context.Context, app application.Application)
	ApplicationDecided(ctx context.Context, app application.Application)
}

// Service is the application lifecycle manager.
type Service struct {
	store  storage.ApplicationStore
	perms  *permissions.Service
	notify *notifications.Service
	sinks  []EventSink
	log    *logger.Logger
}

// New constructs the lifecycle manager.
func New(store storage.ApplicationStore, perms *permissions.Service, notify *notifications.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("applications")
	}
	return &Service{store: store, perms: perms, notify: notify, log: log}
}

// AttachSink registers an event sink. Call before serving traffic.
func (s *Service) AttachSink(sink EventSink) {
	s.sinks = append(s.sinks, sink)
}

// Submit validates and persists a new pending application, then fans out the
// submission event. Persistence success gates the fan-out: on a storage
// failure the caller sees the error and no event fires.
func (s *Service) Submit(ctx context.Context, submitterID string, payload application.Payload) (application.Application, error) {
	submitterID = strings.TrimSpace(submitterID)
	if submitterID == "" {
		return application.Application{}, fmt.Errorf("submitter id is required")
	}
	if strings.TrimSpace(payload.Nickname) == "" {
		return application.Application{}, fmt.Errorf("nickname is required")
	}

	_, err := s.store.FindActiveBySubmitter(ctx, submitterID)
	if err == nil {
		return application.Application{}, ErrDuplicateApplication
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return application.Application{}, fmt.Errorf("check existing application: %w", err)
	}

	app := application.Application{
		ID:          application.NewID(),
		SubmitterID: submitterID,
		Payload:     payload,
		Status:      application.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := s.store.CreateApplication(ctx, app)
	if err != nil {
		return application.Application{}, fmt.Errorf("persist application: %w", err)
	}

	if _, err := s.notify.Append(ctx, submitterID,
		"Application received",
		"Your membership application is pending review.",
		"application"); err != nil {
		return application.Application{}, fmt.Errorf("record submission notification: %w", err)
	}

	metrics.RecordSubmission()
	s.log.WithField("application_id", created.ID).
		WithField("submitter_id", submitterID).
		Info("application submitted")

	for _, sink := range s.sinks {
		sink.ApplicationSubmitted(ctx, created)
	}
	return created, nil
}

// StatusOf returns the submitter's open application, excluding soft-deleted
// records. Read-only.
func (s *Service) StatusOf(ctx context.Context, submitterID string) (application.Application, error) {
	return s.store.FindActiveBySubmitter(ctx, strings.TrimSpace(submitterID))
}

// Decide applies a terminal decision. The actor must hold at least the
// curator capability; the permission check precedes every lookup and
// mutation. Deciding an already-terminal application returns
// ErrAlreadyDecided and has no side effects.
func (s *Service) Decide(ctx context.Context, applicationID, actorID string, outcome application.Status) (application.Application, error) {
	if !outcome.Terminal() {
		return application.Application{}, fmt.Errorf("outcome must be %s or %s", application.StatusApproved, application.StatusRejected)
	}

	caps, err := s.perms.Capabilities(ctx, actorID)
	if err != nil {
		return application.Application{}, fmt.Errorf("evaluate actor capabilities: %w", err)
	}
	if !caps.IsCurator {
		return application.Application{}, permissions.ErrForbidden
	}

	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return application.Application{}, err
	}
	if app.Status.Terminal() {
		return app, ErrAlreadyDecided
	}

	now := time.Now().UTC()
	app.Status = outcome
	app.Reviewer = actorID
	app.DecidedAt = &now

	updated, err := s.store.UpdateApplication(ctx, app)
	if err != nil {
		return application.Application{}, fmt.Errorf("persist decision: %w", err)
	}

	title := "Application approved"
	message := "Welcome aboard! Your membership application was approved."
	if outcome == application.StatusRejected {
		title = "Application rejected"
		message = "Unfortunately your membership application was rejected."
	}
	if _, err := s.notify.Append(ctx, updated.SubmitterID, title, message, "application"); err != nil {
		return application.Application{}, fmt.Errorf("record decision notification: %w", err)
	}

	metrics.RecordDecision(string(outcome))
	s.log.WithField("application_id", updated.ID).
		WithField("reviewer", actorID).
		WithField("outcome", outcome).
		Info("application decided")

	for _, sink := range s.sinks {
		sink.ApplicationDecided(ctx, updated)
	}
	return updated, nil
}

// Discard soft-deletes an application after a decision, keeping it for audit
// while freeing the submitter to apply again.
func (s *Service) Discard(ctx context.Context, applicationID string) error {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Deleted {
		return nil
	}
	app.Deleted = true
	if _, err := s.store.UpdateApplication(ctx, app); err != nil {
		return fmt.Errorf("persist discard: %w", err)
	}
	s.log.WithField("application_id", applicationID).Info("application discarded")
	return nil
}

// ListPending returns applications still awaiting a decision.
func (s *Service) ListPending(ctx context.Context) ([]application.Application, error) {
	all, err := s.store.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	var pending []application.Application
	for _, app := range all {
		if app.Status == application.StatusPending && !app.Deleted {
			pending = append(pending, app)
		}
	}
	return pending, nil
}
