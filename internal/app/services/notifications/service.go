// Package notifications maintains the append-only status feed shown to
// applicants by the web client.
package notifications

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jessiesmp/intake/internal/app/domain/notification"
	"github.com/jessiesmp/intake/internal/app/metrics"
	"github.com/jessiesmp/intake/internal/app/storage"
	"github.com/jessiesmp/intake/pkg/logger"
)

// Service manages the notification feed.
type Service struct {
	store storage.NotificationStore
	log   *logger.Logger
}

// New constructs a notification service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, log: log}
}

// Append adds an entry to the feed. An empty userID broadcasts to all readers.
func (s *Service) Append(ctx context.Context, userID, title, message, category string) (notification.Notification, error) {
	n := notification.Notification{
		ID:        notification.NewID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return notification.Notification{}, err
	}
	s.log.WithField("notification_id", created.ID).
		WithField("user_id", userID).
		WithField("category", category).
		Debug("notification appended")
	return created, nil
}

// ListFor returns the reader's entries plus broadcasts, newest first.
func (s *Service) ListFor(ctx context.Context, userID string) ([]notification.Notification, error) {
	feed, err := s.store.ListNotificationsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	return feed, nil
}

// MarkRead flags an entry as read. Unknown ids and repeated calls are silent
// no-ops; the first read timestamp is kept.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	n, err := s.store.GetNotification(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}

	now := time.Now().UTC()
	n.Read = true
	n.ReadAt = &now
	if _, err := s.store.UpdateNotification(ctx, n); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	metrics.RecordNotificationRead()
	return nil
}
