package auth

import (
	"context"
	"sync"
	"time"
)

// NewInMemorySessionStore returns a SessionStore backed by in-memory maps.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]Session),
		access:   make(map[string]string),
	}
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	// access maps access tokens to their refresh token.
	access map[string]string
}

// Save persists the provided session record.
func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	if prev, ok := s.sessions[session.RefreshToken]; ok {
		delete(s.access, prev.AccessToken)
	}
	s.sessions[session.RefreshToken] = session
	s.access[session.AccessToken] = session.RefreshToken
	s.mu.Unlock()
	return nil
}

// Find retrieves a session by refresh token.
func (s *InMemorySessionStore) Find(_ context.Context, refreshToken string) (Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[refreshToken]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// FindByAccessToken retrieves a session by access token.
func (s *InMemorySessionStore) FindByAccessToken(_ context.Context, accessToken string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refresh, ok := s.access[accessToken]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	session, ok := s.sessions[refresh]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes the session associated with the refresh token.
func (s *InMemorySessionStore) Delete(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	s.deleteLocked(refreshToken)
	s.mu.Unlock()
	return nil
}

// DeleteExpired removes sessions whose refresh token expired before now.
func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			s.deleteLocked(token)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemorySessionStore) deleteLocked(refreshToken string) {
	if session, ok := s.sessions[refreshToken]; ok {
		delete(s.access, session.AccessToken)
	}
	delete(s.sessions, refreshToken)
}

// Has reports whether a refresh token exists. Useful for tests.
func (s *InMemorySessionStore) Has(refreshToken string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[refreshToken]
	return ok
}
