package handlers

import (
	"strings"
	"sync"
	"time"
)

// submitLimiter throttles checkout submissions per storefront session.
// Proof uploads are expensive to review by hand, so a session gets a small
// fixed allowance per window.
type submitLimiter interface {
	Allow(sessionID string) bool
}

type sessionWindowLimiter struct {
	allowance int
	window    time.Duration
	clock     func() time.Time

	mu      sync.Mutex
	windows map[string]sessionWindow
}

type sessionWindow struct {
	used     int
	resetsAt time.Time
}

func newSessionWindowLimiter(allowance int, window time.Duration, clock func() time.Time) submitLimiter {
	if allowance <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &sessionWindowLimiter{
		allowance: allowance,
		window:    window,
		clock:     clock,
		windows:   make(map[string]sessionWindow),
	}
}

func (l *sessionWindowLimiter) Allow(sessionID string) bool {
	if l == nil {
		return true
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.windows[sessionID]
	if !ok || now.After(win.resetsAt) {
		l.windows[sessionID] = sessionWindow{used: 1, resetsAt: now.Add(l.window)}
		l.dropExpiredLocked(now)
		return true
	}

	if win.used >= l.allowance {
		return false
	}
	win.used++
	l.windows[sessionID] = win
	return true
}

// dropExpiredLocked keeps the map from accumulating one entry per session
// ever seen. Called on the new-window path so it stays off the hot path.
func (l *sessionWindowLimiter) dropExpiredLocked(now time.Time) {
	for sessionID, win := range l.windows {
		if now.After(win.resetsAt) {
			delete(l.windows, sessionID)
		}
	}
}
