// internal/auth/middleware.go
//
// Cookie handling and HTTP middleware.
// Responsibilities:
//   - Auth cookie set/clear and bearer-or-cookie token lookup.
//   - Optional auth (decorates the request when a valid token is present).
//   - Require auth (401 otherwise).
//   - Anonymous player cookie so guests get a stable owner id.
//
// Notes:
//   - Secure cookies use SameSite=None so a separately hosted client can send them.

package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Options configures cookies.
type Options struct {
	CookieName string
	AnonCookie string
	Secure     bool
}

// Auth bundles token handling, users and cookie settings.
type Auth struct {
	Tokens *Tokens
	Users  *Users
	opt    Options
}

func New(tokens *Tokens, users *Users, opt Options) *Auth {
	if opt.CookieName == "" {
		opt.CookieName = "gamecentr_token"
	}
	if opt.AnonCookie == "" {
		opt.AnonCookie = "gamecentr_anon"
	}
	return &Auth{Tokens: tokens, Users: users, opt: opt}
}

type ctxUserKey struct{}

// FromContext returns the authenticated identity, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxUserKey{}).(*Identity)
	return id, ok && id != nil
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, id)
}

func (a *Auth) sameSite() http.SameSite {
	if a.opt.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetCookie writes the auth token cookie.
func (a *Auth) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.opt.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.opt.Secure,
		SameSite: a.sameSite(),
		Expires:  exp,
	})
}

// ClearCookie deletes the auth token cookie.
func (a *Auth) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.opt.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.opt.Secure,
		SameSite: a.sameSite(),
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from the Authorization header or the auth cookie.
func (a *Auth) bearerOrCookie(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(a.opt.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// identify resolves the request's token to a still existing user.
func (a *Auth) identify(r *http.Request) (*Identity, bool) {
	tok := a.bearerOrCookie(r)
	if tok == "" {
		return nil, false
	}
	id, err := a.Tokens.Parse(tok)
	if err != nil {
		return nil, false
	}
	if _, err := a.Users.ByID(r.Context(), id.ID); err != nil {
		return nil, false
	}
	return &id, true
}

// Optional decorates requests with the identity if a valid token is present.
// It never rejects a request.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := a.identify(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Require enforces a valid token for an existing user.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.identify(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// AnonID returns the anonymous player id from the cookie, or "".
func (a *Auth) AnonID(r *http.Request) string {
	if c, err := r.Cookie(a.opt.AnonCookie); err == nil {
		return c.Value
	}
	return ""
}

// EnsureAnonID returns the anonymous player id, setting the cookie if missing.
func (a *Auth) EnsureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(a.opt.AnonCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := "anon-" + uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     a.opt.AnonCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.opt.Secure,
		SameSite: a.sameSite(),
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// Owner is the id scores are recorded under: the user if logged in,
// the anonymous cookie otherwise.
func (a *Auth) Owner(w http.ResponseWriter, r *http.Request) string {
	if id, ok := FromContext(r.Context()); ok {
		return id.ID
	}
	return a.EnsureAnonID(w, r)
}
