package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"regexp"
	"time"

	"github.com/a2h-store/api/internal/platform/config"
	"github.com/a2h-store/api/internal/platform/requestctx"
)

// Cookie values feed the preference store, so only its identifier alphabet
// is accepted; anything else gets a fresh session.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SessionMiddleware reads the storefront session cookie, minting one for
// first-time visitors, and exposes the identifier through the request context.
func SessionMiddleware(cfg config.SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && sessionIDPattern.MatchString(cookie.Value) {
				sessionID = cookie.Value
			}
			if sessionID == "" {
				sessionID = newSessionID()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sessionID,
					Path:     "/",
					Expires:  time.Now().Add(cfg.TTL),
					MaxAge:   int(cfg.TTL / time.Second),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithSession(r.Context(), sessionID)))
		})
	}
}

func newSessionID() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure leaves no safe identifier to hand out.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
