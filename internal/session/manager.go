// Package session keeps gallery viewer sessions: a cookie-held id mapped
// to view preferences in Redis with TTL-based expiration.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSession is returned when session data is invalid
	ErrInvalidSession = errors.New("invalid session")
)

// Manager defines the interface for session management operations
type Manager interface {
	Create(ctx context.Context, admin bool) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
	Validate(ctx context.Context, sessionID string) (bool, error)
}

type manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a session manager whose sessions live for ttl after
// their last save.
func NewManager(store Store, ttl time.Duration) Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func key(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Create stores a new session and returns it
func (m *manager) Create(ctx context.Context, admin bool) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.New().String(),
		Admin:     admin,
		CreatedAt: now,
	}
	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a session by ID
func (m *manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrInvalidSession
	}

	data, err := m.store.Get(ctx, key(sessionID))
	if err != nil {
		if errors.Is(err, errMissing) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, ErrInvalidSession
	}

	if m.now().After(s.ExpiresAt) {
		_ = m.store.Delete(ctx, key(sessionID))
		return nil, ErrSessionExpired
	}

	return &s, nil
}

// Save writes the session back and extends its lifetime
func (m *manager) Save(ctx context.Context, s *Session) error {
	s.ExpiresAt = m.now().Add(m.ttl)

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := m.store.Set(ctx, key(s.ID), string(data), m.ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete removes a session
func (m *manager) Delete(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, key(sessionID))
}

// Validate checks if a session exists and is valid
func (m *manager) Validate(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}
