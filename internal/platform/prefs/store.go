// Package prefs persists anonymous shopper state (cart contents, currency
// choice, locally hidden categories) keyed by the cart session cookie. The
// memory store backs tests and local development; the file store survives
// restarts of a single instance.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Well-known value keys stored per session.
const (
	KeyCart             = "cart"
	KeyCurrency         = "currency"
	KeyHiddenCategories = "hidden_categories"
)

// DefaultTTL bounds how long idle session state is retained.
const DefaultTTL = 30 * 24 * time.Hour

var (
	// ErrNotFound indicates the session or key has no stored value.
	ErrNotFound = errors.New("prefs: not found")
	// ErrInvalidSession indicates a malformed session identifier.
	ErrInvalidSession = errors.New("prefs: invalid session id")
)

// Store persists per-session preference values.
type Store interface {
	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	// Set stores value under key and refreshes the session's idle timer.
	Set(ctx context.Context, sessionID, key string, value []byte) error
	// Delete removes a single key. Missing keys are not an error.
	Delete(ctx context.Context, sessionID, key string) error
	// DeleteSession removes all state for the session.
	DeleteSession(ctx context.Context, sessionID string) error
}

// GetJSON loads and unmarshals the value stored under key.
func GetJSON[T any](ctx context.Context, store Store, sessionID, key string) (T, error) {
	var out T
	raw, err := store.Get(ctx, sessionID, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("prefs: decode %s: %w", key, err)
	}
	return out, nil
}

// SetJSON marshals value and stores it under key.
func SetJSON(ctx context.Context, store Store, sessionID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("prefs: encode %s: %w", key, err)
	}
	return store.Set(ctx, sessionID, key, raw)
}

// Session IDs come from a client cookie, so they are validated before use as
// map keys or file names.
func validateSessionID(sessionID string) error {
	if sessionID == "" || len(sessionID) > 64 {
		return ErrInvalidSession
	}
	for _, r := range sessionID {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '-' || r == '_':
		default:
			return ErrInvalidSession
		}
	}
	return nil
}
