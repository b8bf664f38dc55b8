package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PaulFidika/authcore/cookie"
	"github.com/PaulFidika/authcore/roles"
	memorystore "github.com/PaulFidika/authcore/storage/memory"
	"github.com/stretchr/testify/require"
)

type setCall struct {
	key string
	ttl time.Duration
}

// spyStore records writes on top of the in-memory KV.
type spyStore struct {
	*memorystore.KV
	mu   sync.Mutex
	sets []setCall
	dels []string
	err  error
}

func (s *spyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return s.KV.Get(ctx, key)
}

func (s *spyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.sets = append(s.sets, setCall{key: key, ttl: ttl})
	s.mu.Unlock()
	return s.KV.Set(ctx, key, value, ttl)
}

func (s *spyStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	s.dels = append(s.dels, key)
	s.mu.Unlock()
	return s.KV.Del(ctx, key)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingEvents) LogSessionEvent(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

type fixture struct {
	now   time.Time
	store *spyStore
	jar   *cookie.MemoryJar
	mgr   *Manager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.store = &spyStore{KV: memorystore.NewKV().WithClock(clock)}
	f.jar = cookie.NewMemoryJar().WithClock(clock)
	f.mgr = NewManager(f.store, append([]Option{WithClock(clock)}, opts...)...)
	return f
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	tok, ok := f.jar.Get(CookieName)
	require.True(t, ok)
	return tok
}

func TestCreateThenGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := UserSession{ID: "u1", Role: roles.Chef}

	require.NoError(t, f.mgr.CreateUserSession(ctx, user, f.jar))

	got, err := f.mgr.GetUserFromSession(ctx, f.jar)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, user, *got)
}

func TestCreateWritesRecordAndCookie(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.CreateUserSession(context.Background(), UserSession{ID: "u1", Role: roles.Admin}, f.jar))

	tok := f.token(t)
	require.Len(t, tok, 2*DefaultTokenBytes)
	require.NotContains(t, tok, "u1")

	require.Len(t, f.store.sets, 1)
	require.Equal(t, KeyPrefix+tok, f.store.sets[0].key)
	require.Equal(t, 604800*time.Second, f.store.sets[0].ttl)

	opts, ok := f.jar.Options(CookieName)
	require.True(t, ok)
	require.True(t, opts.HTTPOnly)
	require.True(t, opts.Secure)
	require.Equal(t, http.SameSiteLaxMode, opts.SameSite)
	require.Equal(t, f.now.Add(TTL), opts.Expires)
}

func TestTokensAreUnique(t *testing.T) {
	f := newFixture(t, WithTokenBytes(32))
	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		jar := cookie.NewMemoryJar().WithClock(func() time.Time { return f.now })
		require.NoError(t, f.mgr.CreateUserSession(ctx, UserSession{ID: "u1", Role: roles.Staff}, jar))
		tok, _ := jar.Get(CookieName)
		require.Len(t, tok, 64)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	err := f.mgr.CreateUserSession(context.Background(), UserSession{ID: "u1", Role: "SUPERADMIN"}, f.jar)
	require.ErrorIs(t, err, ErrInvalidSession)
	require.True(t, IsInvalid(err))

	require.Empty(t, f.store.sets)
	require.Zero(t, f.store.Len())
	_, ok := f.jar.Get(CookieName)
	require.False(t, ok)
}

func TestCreateRejectsEmptyID(t *testing.T) {
	f := newFixture(t)
	err := f.mgr.CreateUserSession(context.Background(), UserSession{Role: roles.Customer}, f.jar)
	require.ErrorIs(t, err, ErrInvalidSession)
	require.Empty(t, f.store.sets)
}

func TestGetWithoutCookie(t *testing.T) {
	f := newFixture(t)
	got, err := f.mgr.GetUserFromSession(context.Background(), f.jar)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestGetUserSessionByIDMissing(t *testing.T) {
	f := newFixture(t)
	got, err := f.mgr.GetUserSessionByID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCorruptRecordsReadAsNoSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for name, raw := range map[string]string{
		"bad_role":  `{"id":"u1","role":"SUPERADMIN"}`,
		"no_id":     `{"role":"chef"}`,
		"not_json":  `{{{`,
		"wrong_typ": `{"id":7,"role":"chef"}`,
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, f.store.KV.Set(ctx, KeyPrefix+name, []byte(raw), time.Hour))
			got, err := f.mgr.GetUserSessionByID(ctx, name)
			require.NoError(t, err)
			require.Nil(t, got)
		})
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection refused")
	f.store.err = boom
	_, err := f.mgr.GetUserSessionByID(context.Background(), "x")
	require.ErrorIs(t, err, boom)
}

func TestRemoveThenGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.CreateUserSession(ctx, UserSession{ID: "u1", Role: roles.Manager}, f.jar))
	tok := f.token(t)

	require.NoError(t, f.mgr.RemoveUserFromSession(ctx, f.jar))

	got, err := f.mgr.GetUserFromSession(ctx, f.jar)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, []string{KeyPrefix + tok}, f.store.dels)

	got, err = f.mgr.GetUserSessionByID(ctx, tok)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRemoveWithoutCookieIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RemoveUserFromSession(context.Background(), f.jar))
	require.Empty(t, f.store.dels)
}

func TestUpdateUserSessionData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.CreateUserSession(ctx, UserSession{ID: "u1", Role: roles.Customer}, f.jar))

	f.now = f.now.Add(3 * 24 * time.Hour)
	require.NoError(t, f.mgr.UpdateUserSessionData(ctx, UserSession{ID: "u1", Role: roles.Staff}, f.jar))

	got, err := f.mgr.GetUserFromSession(ctx, f.jar)
	require.NoError(t, err)
	require.Equal(t, roles.Staff, got.Role)

	ttl, ok := f.store.TTL(KeyPrefix + f.token(t))
	require.True(t, ok)
	require.Equal(t, TTL, ttl)
	require.Equal(t, 604800*time.Second, f.store.sets[1].ttl)
}

func TestUpdateUserSessionDataRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.CreateUserSession(ctx, UserSession{ID: "u1", Role: roles.Customer}, f.jar))

	err := f.mgr.UpdateUserSessionData(ctx, UserSession{ID: "u1", Role: "SUPERADMIN"}, f.jar)
	require.ErrorIs(t, err, ErrInvalidSession)
	require.Len(t, f.store.sets, 1)

	got, err := f.mgr.GetUserFromSession(ctx, f.jar)
	require.NoError(t, err)
	require.Equal(t, roles.Customer, got.Role)
}

func TestUpdateUserSessionDataWithoutCookieIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.UpdateUserSessionData(context.Background(), UserSession{ID: "u1", Role: roles.Chef}, f.jar))
	require.Empty(t, f.store.sets)
}

func TestSlidingExpiration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := UserSession{ID: "u1", Role: roles.Owner}
	require.NoError(t, f.mgr.CreateUserSession(ctx, user, f.jar))
	tok := f.token(t)

	// six days in, the session is still live and gets a fresh week
	f.now = f.now.Add(6 * 24 * time.Hour)
	require.NoError(t, f.mgr.UpdateUserSessionExpiration(ctx, f.jar))

	ttl, ok := f.store.TTL(KeyPrefix + tok)
	require.True(t, ok)
	require.Equal(t, TTL, ttl)

	opts, ok := f.jar.Options(CookieName)
	require.True(t, ok)
	require.Equal(t, f.now.Add(TTL), opts.Expires)
	require.Equal(t, tok, f.token(t))

	got, err := f.mgr.GetUserFromSession(ctx, f.jar)
	require.NoError(t, err)
	require.Equal(t, user, *got)

	for _, c := range f.store.sets {
		require.Equal(t, 604800*time.Second, c.ttl)
	}

	// without another touch it lapses a week later
	f.now = f.now.Add(TTL)
	got, err = f.mgr.GetUserSessionByID(ctx, tok)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTouchWithoutSessionIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.UpdateUserSessionExpiration(context.Background(), f.jar))

	require.NoError(t, f.jar.Set(CookieName, "stale", cookie.Secure(f.now.Add(time.Hour))))
	require.NoError(t, f.mgr.UpdateUserSessionExpiration(context.Background(), f.jar))
	require.Empty(t, f.store.sets)
}

func TestEventsAreRecordedWithoutToken(t *testing.T) {
	rec := &recordingEvents{err: errors.New("sink down")}
	f := newFixture(t, WithEventLogger(rec))
	ctx := context.Background()

	require.NoError(t, f.mgr.CreateUserSession(ctx, UserSession{ID: "u1", Role: roles.Chef}, f.jar))
	tok := f.token(t)
	require.NoError(t, f.mgr.UpdateUserSessionData(ctx, UserSession{ID: "u1", Role: roles.Manager}, f.jar))
	require.NoError(t, f.mgr.RemoveUserFromSession(ctx, f.jar))

	require.Len(t, rec.events, 3)
	require.Equal(t, EventCreated, rec.events[0].Type)
	require.Equal(t, EventUpdated, rec.events[1].Type)
	require.Equal(t, EventRevoked, rec.events[2].Type)
	for _, e := range rec.events {
		require.Equal(t, SessionID(tok), e.SessionID)
		require.False(t, strings.Contains(e.SessionID, tok))
		require.Equal(t, "u1", e.UserID)
	}
	require.Equal(t, roles.Manager, rec.events[2].Role)
}
