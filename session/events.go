package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/PaulFidika/authcore/roles"
	"github.com/google/uuid"
)

// EventType identifies a session lifecycle event.
type EventType string

const (
	EventCreated EventType = "session_created"
	EventUpdated EventType = "session_updated"
	EventRevoked EventType = "session_revoked"
)

// Event is a best-effort, append-only session lifecycle record. SessionID is
// a digest of the token; the token itself never leaves the manager.
type Event struct {
	ID         uuid.UUID
	OccurredAt time.Time
	Type       EventType
	SessionID  string
	UserID     string
	Role       roles.Role
}

// EventLogger records session lifecycle events to an external sink.
// Failures are logged and never fail the session operation.
type EventLogger interface {
	LogSessionEvent(ctx context.Context, e Event) error
}

// SessionID returns the hex SHA-256 of token.
func SessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) emit(ctx context.Context, typ EventType, token string, u *UserSession) {
	if m.events == nil {
		return
	}
	e := Event{
		ID:         uuid.New(),
		OccurredAt: m.now().UTC(),
		Type:       typ,
		SessionID:  SessionID(token),
	}
	if u != nil {
		e.UserID = u.ID
		e.Role = u.Role
	}
	if err := m.events.LogSessionEvent(ctx, e); err != nil {
		m.logger.Warn("session event not recorded", "event", string(typ), "err", err)
	}
}
