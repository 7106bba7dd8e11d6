// Package auth implements signed-cookie sessions and the request-scoped
// identity handlers read instead of any ambient global state.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"os"
	"strings"
	"time"
)

type ctxKey string

const (
	sessionCookieName = "session"
	identityCtxKey    = ctxKey("identity")

	// LoginPath is where unauthenticated profile requests are redirected.
	LoginPath = "/auth/login"
)

// Identity is the pair of session-scoped values required for profile access.
// Both must be present for a request to count as authenticated.
type Identity struct {
	Token string
	Email string
}

// Valid reports whether both session values are present.
func (id Identity) Valid() bool { return id.Token != "" && id.Email != "" }

// Secret returns SESSION_SECRET or a default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

func sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie carrying the access token and email.
func CreateSession(w http.ResponseWriter, id Identity) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(id.Token + "|" + id.Email))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    payload + "." + sign(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(14 * 24 * time.Hour),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie signature and returns the identity.
func ParseSession(r *http.Request) (Identity, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return Identity{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return Identity{}, false
	}
	payload, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(sign(payload))) {
		return Identity{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Identity{}, false
	}
	tokenEmail := strings.SplitN(string(raw), "|", 2)
	if len(tokenEmail) != 2 {
		return Identity{}, false
	}
	id := Identity{Token: tokenEmail[0], Email: tokenEmail[1]}
	if !id.Valid() {
		return Identity{}, false
	}
	return id, true
}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext extracts the identity injected by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	if !ok || !id.Valid() {
		return Identity{}, false
	}
	return id, true
}

// Middleware attaches the parsed session identity to the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := ParseSession(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth redirects to the login page (303) when no identity is present.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
