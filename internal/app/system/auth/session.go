// internal/app/system/auth/session.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	userIDKey    = "user_id"
	userRoleKey  = "user_role"
	sessionIDKey = "sid"
)

// UserFetcher loads the current state of a signed-in user. It returns
// (nil, nil) when the user no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

// SessionManager owns the cookie store. The cookie carries only the user id,
// role and a random session id; everything else is fetched per request.
type SessionManager struct {
	store     *sessions.CookieStore
	name      string
	logger    *zap.Logger
	fetcher   UserFetcher
	forbidden http.Handler
}

// NewSessionManager builds a cookie-backed session manager.
// In production (secure=true) cookies are Secure and SameSite=None; over
// plain http in development they are SameSite=Lax.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "softmanager-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// Name is the cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// SetUserFetcher installs the per-request user loader.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// SetForbiddenHandler installs the page rendered when RequireRole rejects a
// signed-in user. Without one a plain 403 is written.
func (sm *SessionManager) SetForbiddenHandler(h http.Handler) { sm.forbidden = h }

// GetSession returns the session for r. A cookie that no longer decodes
// (rotated key, tampering) yields a fresh empty session and no error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			return sess, nil
		}
		return sess, err
	}
	return sess, nil
}

// SignIn stores the user's id and role in a new session cookie and returns
// the generated session id.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID, role string) (string, error) {
	sess, err := sm.GetSession(r)
	if err != nil {
		return "", err
	}
	sid := uuid.NewString()
	sess.Values = map[interface{}]interface{}{
		userIDKey:    userID,
		userRoleKey:  role,
		sessionIDKey: sid,
	}
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return sid, nil
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
