package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PaulFidika/authcore/cookie"
)

const (
	// CookieName holds the opaque session token on the client.
	CookieName = "session-id"
	// KeyPrefix namespaces session records in the store.
	KeyPrefix = "session:"
	// TTL is the sliding session lifetime, for both record and cookie.
	TTL = 7 * 24 * time.Hour

	DefaultTokenBytes = 512
)

// Option configures a Manager.
type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithEventLogger(l EventLogger) Option {
	return func(m *Manager) { m.events = l }
}

// WithTokenBytes sets how many random bytes back each token (hex-encoded).
func WithTokenBytes(n int) Option {
	return func(m *Manager) {
		if n >= 32 {
			m.tokenBytes = n
		}
	}
}

// Manager owns the session lifecycle: create, read, renew, update, remove.
// It keeps no per-session state in process.
type Manager struct {
	store      Store
	now        func() time.Time
	logger     *slog.Logger
	events     EventLogger
	tokenBytes int
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, now: time.Now, logger: slog.Default(), tokenBytes: DefaultTokenBytes}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateUserSession persists user under a fresh token and writes the token
// cookie. An invalid user yields ErrInvalidSession and writes nothing.
func (m *Manager) CreateUserSession(ctx context.Context, user UserSession, jar cookie.Jar) error {
	payload, err := encode(user)
	if err != nil {
		return err
	}
	token, err := m.newToken()
	if err != nil {
		return fmt.Errorf("session: generate token: %w", err)
	}
	if err := m.store.Set(ctx, KeyPrefix+token, payload, TTL); err != nil {
		return fmt.Errorf("session: store: %w", err)
	}
	if err := m.setCookie(jar, token); err != nil {
		return err
	}
	m.emit(ctx, EventCreated, token, &user)
	return nil
}

// GetUserFromSession returns the session named by the jar's cookie, or nil.
func (m *Manager) GetUserFromSession(ctx context.Context, jar cookie.Jar) (*UserSession, error) {
	token, ok := jar.Get(CookieName)
	if !ok || token == "" {
		return nil, nil
	}
	return m.GetUserSessionByID(ctx, token)
}

// GetUserSessionByID loads the record for token. Missing records and records
// that fail validation both return nil without error.
func (m *Manager) GetUserSessionByID(ctx context.Context, token string) (*UserSession, error) {
	b, ok, err := m.store.Get(ctx, KeyPrefix+token)
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	if !ok {
		return nil, nil
	}
	u, err := decode(b)
	if err != nil {
		m.logger.Warn("discarding corrupt session record", "session", SessionID(token)[:12], "err", err)
		return nil, nil
	}
	return &u, nil
}

// RemoveUserFromSession deletes the record and the cookie. It is a no-op
// without a session cookie.
func (m *Manager) RemoveUserFromSession(ctx context.Context, jar cookie.Jar) error {
	token, ok := jar.Get(CookieName)
	if !ok || token == "" {
		return nil
	}
	var user *UserSession
	if m.events != nil {
		user, _ = m.GetUserSessionByID(ctx, token)
	}
	if err := m.store.Del(ctx, KeyPrefix+token); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	jar.Delete(CookieName)
	m.emit(ctx, EventRevoked, token, user)
	return nil
}

// UpdateUserSessionData overwrites the current session's payload with user
// and renews its TTL. It is a no-op without a session cookie.
func (m *Manager) UpdateUserSessionData(ctx context.Context, user UserSession, jar cookie.Jar) error {
	payload, err := encode(user)
	if err != nil {
		return err
	}
	token, ok := jar.Get(CookieName)
	if !ok || token == "" {
		return nil
	}
	if err := m.store.Set(ctx, KeyPrefix+token, payload, TTL); err != nil {
		return fmt.Errorf("session: store: %w", err)
	}
	m.emit(ctx, EventUpdated, token, &user)
	return nil
}

// UpdateUserSessionExpiration slides the session: the same payload is stored
// again with a full TTL and the cookie is reissued with a matching expiry.
func (m *Manager) UpdateUserSessionExpiration(ctx context.Context, jar cookie.Jar) error {
	token, ok := jar.Get(CookieName)
	if !ok || token == "" {
		return nil
	}
	user, err := m.GetUserSessionByID(ctx, token)
	if err != nil || user == nil {
		return err
	}
	payload, err := encode(*user)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, KeyPrefix+token, payload, TTL); err != nil {
		return fmt.Errorf("session: store: %w", err)
	}
	return m.setCookie(jar, token)
}

func (m *Manager) setCookie(jar cookie.Jar, token string) error {
	if err := jar.Set(CookieName, token, cookie.Secure(m.now().Add(TTL))); err != nil {
		return fmt.Errorf("session: set cookie: %w", err)
	}
	return nil
}

func (m *Manager) newToken() (string, error) {
	b := make([]byte, m.tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsInvalid reports whether err is a rejected session payload.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalidSession) }
