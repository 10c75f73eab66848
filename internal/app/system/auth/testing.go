package auth

import "net/http"

// WithTestUser injects u into the request context the same way
// LoadSessionUser does. Intended for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}
