package pgstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/PaulFidika/authcore/roles"
	"github.com/PaulFidika/authcore/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.up.sql
var Migrations embed.FS

// DB is the subset of pgxpool.Pool the event log needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// EventLog is an append-only Postgres sink for session lifecycle events.
type EventLog struct {
	db DB
}

func NewEventLog(db DB) *EventLog { return &EventLog{db: db} }

// Migrate applies the embedded migrations in name order. Every statement is
// idempotent.
func (l *EventLog) Migrate(ctx context.Context) error {
	files, err := fs.Glob(Migrations, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := Migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		if _, err := l.db.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (l *EventLog) LogSessionEvent(ctx context.Context, e session.Event) error {
	var roleID *uuid.UUID
	if e.Role != "" {
		id := e.Role.ID()
		roleID = &id
	}
	_, err := l.db.Exec(ctx, `INSERT INTO auth_session_events (id, occurred_at, event, session_id, user_id, role, role_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.OccurredAt, string(e.Type), e.SessionID, nullable(e.UserID), nullable(string(e.Role)), roleID)
	return err
}

// ListSessionEvents returns the newest events for userID, newest first.
func (l *EventLog) ListSessionEvents(ctx context.Context, userID string, limit int) ([]session.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.Query(ctx, `SELECT id, occurred_at, event, session_id, COALESCE(user_id, ''), COALESCE(role, '')
		FROM auth_session_events WHERE user_id = $1 ORDER BY occurred_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListSessionEventsByRole returns the newest events recorded for role.
func (l *EventLog) ListSessionEventsByRole(ctx context.Context, role roles.Role, limit int) ([]session.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.Query(ctx, `SELECT id, occurred_at, event, session_id, COALESCE(user_id, ''), COALESCE(role, '')
		FROM auth_session_events WHERE role_id = $1 ORDER BY occurred_at DESC LIMIT $2`, role.ID(), limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]session.Event, error) {
	defer rows.Close()
	var out []session.Event
	for rows.Next() {
		var e session.Event
		var typ, role string
		if err := rows.Scan(&e.ID, &e.OccurredAt, &typ, &e.SessionID, &e.UserID, &role); err != nil {
			return nil, err
		}
		e.Type = session.EventType(typ)
		e.Role = roles.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeSessionEventsBefore deletes up to limit events older than cutoff and
// reports how many rows went.
func (l *EventLog) PurgeSessionEventsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 1000
	}
	tag, err := l.db.Exec(ctx, `DELETE FROM auth_session_events WHERE id IN (
			SELECT id FROM auth_session_events WHERE occurred_at < $1 ORDER BY occurred_at LIMIT $2
		)`, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

var _ session.EventLogger = (*EventLog)(nil)
