package prefs

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	values    map[string][]byte
	updatedAt time.Time
}

// MemoryStore keeps session state in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// MemoryOption customises MemoryStore behaviour.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL overrides the idle session TTL.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMemoryClock injects a custom clock (useful for tests).
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewMemoryStore constructs an empty memory-backed preference store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get implements the Store interface.
func (s *MemoryStore) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(session.updatedAt) {
		delete(s.sessions, sessionID)
		return nil, ErrNotFound
	}

	value, ok := session.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set implements the Store interface.
func (s *MemoryStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || s.expired(session.updatedAt) {
		session = &memorySession{values: make(map[string][]byte)}
		s.sessions[sessionID] = session
	}

	session.values[key] = append([]byte(nil), value...)
	session.updatedAt = s.now().UTC()
	return nil
}

// Delete implements the Store interface.
func (s *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		delete(session.values, key)
	}
	return nil
}

// DeleteSession implements the Store interface.
func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// CleanupExpired removes idle sessions and reports how many were dropped.
func (s *MemoryStore) CleanupExpired(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.expired(session.updatedAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(updatedAt time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().UTC().Sub(updatedAt) > s.ttl
}
