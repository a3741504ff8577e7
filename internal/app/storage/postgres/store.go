// Package postgres implements the storage interfaces backed by PostgreSQL
// for deployments that outgrow the flat-file store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/jessiesmp/intake/internal/app/domain/application"
	"github.com/jessiesmp/intake/internal/app/domain/notification"
	"github.com/jessiesmp/intake/internal/app/domain/role"
	"github.com/jessiesmp/intake/internal/app/storage"
)

// Store implements the storage interfaces over a database handle.
type Store struct {
	db *sql.DB
}

var (
	_ storage.ApplicationStore  = (*Store)(nil)
	_ storage.RoleStore         = (*Store)(nil)
	_ storage.NotificationStore = (*Store)(nil)
)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS intake_applications (
			id           TEXT PRIMARY KEY,
			submitter_id TEXT NOT NULL,
			payload      JSONB NOT NULL,
			status       TEXT NOT NULL,
			reviewer     TEXT NOT NULL DEFAULT '',
			decided_at   TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL,
			deleted      BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS intake_roles (
			actor_id TEXT PRIMARY KEY,
			roles    JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS intake_notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			category   TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			read       BOOLEAN NOT NULL DEFAULT FALSE,
			read_at    TIMESTAMPTZ
		);
	`)
	return err
}

// --- ApplicationStore --------------------------------------------------------

func (s *Store) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if app.ID == "" {
		app.ID = application.NewID()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}

	payloadJSON, err := json.Marshal(app.Payload)
	if err != nil {
		return application.Application{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intake_applications (id, submitter_id, payload, status, reviewer, decided_at, created_at, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, app.ID, app.SubmitterID, payloadJSON, app.Status, app.Reviewer, app.DecidedAt, app.CreatedAt, app.Deleted)
	if err != nil {
		return application.Application{}, err
	}
	return app, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	payloadJSON, err := json.Marshal(app.Payload)
	if err != nil {
		return application.Application{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE intake_applications
		SET submitter_id = $2, payload = $3, status = $4, reviewer = $5, decided_at = $6, deleted = $7
		WHERE id = $1
	`, app.ID, app.SubmitterID, payloadJSON, app.Status, app.Reviewer, app.DecidedAt, app.Deleted)
	if err != nil {
		return application.Application{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return application.Application{}, storage.ErrNotFound
	}
	return app, nil
}

const applicationColumns = `id, submitter_id, payload, status, reviewer, decided_at, created_at, deleted`

func scanApplication(row interface{ Scan(...any) error }) (application.Application, error) {
	var (
		app        application.Application
		payloadRaw []byte
		decidedAt  sql.NullTime
	)
	if err := row.Scan(&app.ID, &app.SubmitterID, &payloadRaw, &app.Status, &app.Reviewer, &decidedAt, &app.CreatedAt, &app.Deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return application.Application{}, storage.ErrNotFound
		}
		return application.Application{}, err
	}
	if len(payloadRaw) > 0 {
		_ = json.Unmarshal(payloadRaw, &app.Payload)
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		app.DecidedAt = &t
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (application.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM intake_applications
		WHERE id = $1
	`, id)
	return scanApplication(row)
}

func (s *Store) FindActiveBySubmitter(ctx context.Context, submitterID string) (application.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM intake_applications
		WHERE submitter_id = $1 AND NOT deleted
		ORDER BY created_at DESC
		LIMIT 1
	`, submitterID)
	return scanApplication(row)
}

func (s *Store) ListApplications(ctx context.Context) ([]application.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM intake_applications
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []application.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}

// --- RoleStore ---------------------------------------------------------------

func (s *Store) GetRoles(ctx context.Context, actorID string) (role.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT roles FROM intake_roles WHERE actor_id = $1
	`, actorID)

	var rolesRaw []byte
	if err := row.Scan(&rolesRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return role.Record{}, storage.ErrNotFound
		}
		return role.Record{}, err
	}

	rec := role.Record{ActorID: actorID}
	if len(rolesRaw) > 0 {
		_ = json.Unmarshal(rolesRaw, &rec.Roles)
	}
	return rec, nil
}

func (s *Store) PutRoles(ctx context.Context, rec role.Record) (role.Record, error) {
	rolesJSON, err := json.Marshal(rec.Roles)
	if err != nil {
		return role.Record{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intake_roles (actor_id, roles)
		VALUES ($1, $2)
		ON CONFLICT (actor_id) DO UPDATE SET roles = EXCLUDED.roles
	`, rec.ActorID, rolesJSON)
	if err != nil {
		return role.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]role.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_id, roles FROM intake_roles ORDER BY actor_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []role.Record
	for rows.Next() {
		var (
			rec      role.Record
			rolesRaw []byte
		)
		if err := rows.Scan(&rec.ActorID, &rolesRaw); err != nil {
			return nil, err
		}
		if len(rolesRaw) > 0 {
			_ = json.Unmarshal(rolesRaw, &rec.Roles)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// --- NotificationStore -------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = notification.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intake_notifications (id, user_id, title, message, category, created_at, read, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.UserID, n.Title, n.Message, n.Category, n.CreatedAt, n.Read, n.ReadAt)
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *Store) UpdateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE intake_notifications
		SET read = $2, read_at = $3
		WHERE id = $1
	`, n.ID, n.Read, n.ReadAt)
	if err != nil {
		return notification.Notification{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notification.Notification{}, storage.ErrNotFound
	}
	return n, nil
}

func scanNotification(row interface{ Scan(...any) error }) (notification.Notification, error) {
	var (
		n      notification.Notification
		readAt sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Category, &n.CreatedAt, &n.Read, &readAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notification.Notification{}, storage.ErrNotFound
		}
		return notification.Notification{}, err
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, message, category, created_at, read, read_at
		FROM intake_notifications
		WHERE id = $1
	`, id)
	return scanNotification(row)
}

func (s *Store) ListNotificationsFor(ctx context.Context, userID string) ([]notification.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, category, created_at, read, read_at
		FROM intake_notifications
		WHERE user_id = $1 OR user_id = ''
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
