package pgstore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PaulFidika/authcore/roles"
	"github.com/PaulFidika/authcore/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []execCall
	queries []execCall
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	return nil, pgx.ErrNoRows
}

func TestMigrateAppliesEmbeddedFiles(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewEventLog(db).Migrate(context.Background()))
	require.Len(t, db.execs, 2)
	require.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS auth_session_events")
	require.Contains(t, db.execs[1].sql, "ADD COLUMN IF NOT EXISTS role_id")
}

func TestLogSessionEventArgs(t *testing.T) {
	db := &fakeDB{}
	e := session.Event{
		ID:         uuid.New(),
		OccurredAt: time.Now().UTC(),
		Type:       session.EventCreated,
		SessionID:  session.SessionID("tok"),
		UserID:     "u1",
		Role:       roles.Chef,
	}
	require.NoError(t, NewEventLog(db).LogSessionEvent(context.Background(), e))
	require.Len(t, db.execs, 1)
	args := db.execs[0].args
	require.Equal(t, e.ID, args[0])
	require.Equal(t, "session_created", args[2])
	require.Equal(t, "u1", *(args[4].(*string)))
	require.Equal(t, "chef", *(args[5].(*string)))
	require.Equal(t, roles.Chef.ID(), *(args[6].(*uuid.UUID)))
}

func TestLogSessionEventWithoutUser(t *testing.T) {
	db := &fakeDB{}
	e := session.Event{ID: uuid.New(), Type: session.EventRevoked, SessionID: "abc"}
	require.NoError(t, NewEventLog(db).LogSessionEvent(context.Background(), e))
	require.Nil(t, db.execs[0].args[4].(*string))
	require.Nil(t, db.execs[0].args[6].(*uuid.UUID))
}

func TestListSessionEventsByRoleKeysOnRoleID(t *testing.T) {
	db := &fakeDB{}
	_, err := NewEventLog(db).ListSessionEventsByRole(context.Background(), roles.Staff, 0)
	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.Len(t, db.queries, 1)
	require.Contains(t, db.queries[0].sql, "WHERE role_id = $1")
	require.Equal(t, roles.Staff.ID(), db.queries[0].args[0])
	require.Equal(t, 100, db.queries[0].args[1])
}

func TestPurgeReportsRowsAffected(t *testing.T) {
	db := &fakeDB{}
	n, err := NewEventLog(db).PurgeSessionEventsBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.True(t, strings.HasPrefix(strings.TrimSpace(db.execs[0].sql), "DELETE"))
	require.Equal(t, 1000, db.execs[0].args[1])
}

func TestEventLogPostgres(t *testing.T) {
	dsn := os.Getenv("AUTHCORE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AUTHCORE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	log := NewEventLog(pool)
	require.NoError(t, log.Migrate(ctx))

	user := "u-" + uuid.NewString()
	old := session.Event{ID: uuid.New(), OccurredAt: time.Now().Add(-48 * time.Hour).UTC(), Type: session.EventCreated, SessionID: "s1", UserID: user, Role: roles.Staff}
	recent := session.Event{ID: uuid.New(), OccurredAt: time.Now().UTC(), Type: session.EventRevoked, SessionID: "s1", UserID: user, Role: roles.Staff}
	require.NoError(t, log.LogSessionEvent(ctx, old))
	require.NoError(t, log.LogSessionEvent(ctx, recent))

	events, err := log.ListSessionEvents(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, session.EventRevoked, events[0].Type)

	byRole, err := log.ListSessionEventsByRole(ctx, roles.Staff, 500)
	require.NoError(t, err)
	require.NotEmpty(t, byRole)
	for _, e := range byRole {
		require.Equal(t, roles.Staff, e.Role)
	}

	_, err = log.PurgeSessionEventsBefore(ctx, time.Now().Add(-24*time.Hour), 100)
	require.NoError(t, err)
	events, err = log.ListSessionEvents(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, recent.ID, events[0].ID)
}
