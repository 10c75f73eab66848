// internal/app/system/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// SessionUser is injected into r.Context() by LoadSessionUser.
type SessionUser struct {
	ID        string
	Name      string
	Email     string
	Title     string
	Role      string
	SessionID string
}

// IsAdmin reports whether the user holds the admin role.
func (u *SessionUser) IsAdmin() bool {
	return u != nil && strings.EqualFold(u.Role, "admin")
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// LoadSessionUser puts the signed-in user into the request context. When a
// UserFetcher is installed the user is re-read from the store so role
// changes and deletions apply on the next request.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.GetSession(r)
		if err != nil {
			sm.logger.Warn("session load failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		id := getString(sess, userIDKey)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		sid := getString(sess, sessionIDKey)

		if sm.fetcher == nil {
			next.ServeHTTP(w, withUser(r, &SessionUser{
				ID:        id,
				Role:      getString(sess, userRoleKey),
				SessionID: sid,
			}))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		u, err := sm.fetcher.FetchUser(ctx, id)
		cancel()
		if err != nil {
			sm.logger.Error("fetch session user", zap.String("user_id", id), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if u == nil {
			next.ServeHTTP(w, r)
			return
		}
		u.SessionID = sid
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn sends anonymous callers to the login page.
//   - HTMX: HX-Redirect header with 401
//   - HTML: 303 to /login?return=...
//   - API:  plain 401
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		redirectToLogin(w, r)
	})
}

// RequireRole admits only users holding one of the allowed roles. Signed-in
// users with another role get a 403.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				redirectToLogin(w, r)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				sm.logger.Info("role denied",
					zap.String("user_id", u.ID),
					zap.String("role", u.Role),
					zap.String("path", r.URL.Path))
				sm.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (sm *SessionManager) deny(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/forbidden")
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if sm.forbidden != nil && wantsHTML(r) {
		sm.forbidden.ServeHTTP(w, r)
		return
	}
	http.Error(w, "forbidden", http.StatusForbidden)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(r.URL.RequestURI())

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// wantsHTML treats HTMX, browsers and requests with no Accept header as HTML.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html")
}
