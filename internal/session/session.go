// Package session tracks authenticated owners for the lifetime of a client
// connection. Authentication itself happens upstream; this package only maps
// opaque session tokens to owner identifiers with an explicit create/destroy
// lifecycle.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a token does not resolve to a live session.
var ErrNotFound = errors.New("session not found")

type ctxKey struct{}

// Session represents one logged-in client.
type Session struct {
	Token     string
	Owner     string
	CreatedAt time.Time
}

// Manager holds live sessions. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]Session)}
}

// Create opens a session for an owner and returns its token.
func (m *Manager) Create(owner string) Session {
	sess := Session{
		Token:     uuid.NewString(),
		Owner:     owner,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	m.mu.Unlock()

	return sess
}

// Resolve returns the session for a token.
func (m *Manager) Resolve(token string) (Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Destroy closes a session. Destroying an unknown token is a no-op.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// WithOwner returns a context carrying the owner identifier.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFromContext extracts the owner identifier set by the session middleware.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ctxKey{}).(string)
	return owner, ok && owner != ""
}
