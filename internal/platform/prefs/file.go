package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileDocument struct {
	UpdatedAt time.Time                  `json:"updated_at"`
	Values    map[string]json.RawMessage `json:"values"`
}

// FileStore persists one JSON document per session under a directory. Writes
// go through a temp file and rename so readers never observe partial content.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time

	mu sync.Mutex
}

// FileOption customises FileStore behaviour.
type FileOption func(*FileStore)

// WithFileTTL overrides the idle session TTL.
func WithFileTTL(ttl time.Duration) FileOption {
	return func(s *FileStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFileClock injects a custom clock (useful for tests).
func WithFileClock(clock func() time.Time) FileOption {
	return func(s *FileStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewFileStore constructs a file-backed preference store rooted at dir.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("prefs: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("prefs: create directory: %w", err)
	}

	s := &FileStore{
		dir: dir,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Get implements the Store interface.
func (s *FileStore) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(sessionID)
	if err != nil {
		return nil, err
	}
	value, ok := doc.Values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set implements the Store interface.
func (s *FileStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		doc = fileDocument{Values: make(map[string]json.RawMessage)}
	}

	doc.Values[key] = append(json.RawMessage(nil), value...)
	doc.UpdatedAt = s.now().UTC()
	return s.write(sessionID, doc)
}

// Delete implements the Store interface.
func (s *FileStore) Delete(_ context.Context, sessionID, key string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if _, ok := doc.Values[key]; !ok {
		return nil
	}

	delete(doc.Values, key)
	return s.write(sessionID, doc)
}

// DeleteSession implements the Store interface.
func (s *FileStore) DeleteSession(_ context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("prefs: remove session: %w", err)
	}
	return nil
}

// CleanupExpired removes idle session files and reports how many were dropped.
func (s *FileStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("prefs: read directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sessionID := entry.Name()[:len(entry.Name())-len(".json")]
		// Decode the raw file rather than going through read(), which
		// reports expired documents as ErrNotFound.
		raw, err := os.ReadFile(s.path(sessionID))
		if err != nil {
			continue
		}
		var doc fileDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if !s.expired(doc.UpdatedAt) {
			continue
		}
		if err := os.Remove(s.path(sessionID)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *FileStore) read(sessionID string) (fileDocument, error) {
	raw, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileDocument{}, ErrNotFound
		}
		return fileDocument{}, fmt.Errorf("prefs: read session: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("prefs: decode session: %w", err)
	}
	if doc.Values == nil {
		doc.Values = make(map[string]json.RawMessage)
	}
	if s.expired(doc.UpdatedAt) {
		return fileDocument{}, ErrNotFound
	}
	return doc, nil
}

func (s *FileStore) write(sessionID string, doc fileDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("prefs: encode session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("prefs: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("prefs: write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("prefs: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(sessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("prefs: replace session: %w", err)
	}
	return nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *FileStore) expired(updatedAt time.Time) bool {
	if s.ttl <= 0 || updatedAt.IsZero() {
		return false
	}
	return s.now().UTC().Sub(updatedAt) > s.ttl
}
