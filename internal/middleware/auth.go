package middleware

import (
	"net/http"

	"github.com/s/lmsPortal/internal/guard"
	"github.com/s/lmsPortal/internal/models"
	"github.com/s/lmsPortal/internal/session"
)

// Sessions opens the session of the browser behind a request.
// *session.Manager is the production implementation.
type Sessions interface {
	Open(w http.ResponseWriter, r *http.Request) *session.Store
}

// RequiredRole guards a page: no session or the wrong role both redirect
// to the login page. No roles means any signed-in user. The check runs on
// every request, nothing is cached between navigations.
func RequiredRole(sessions Sessions, roles ...models.Role) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			// 1. Hydrate the browser's session
			store := sessions.Open(w, r)

			// 2. Decide
			decision := guard.Check(store.Session(), roles...)
			if !decision.Allowed() {
				http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
				return
			}

			// 3. Hand the store to the page
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), store)))
		}
	}
}

// WithSession opens the session for public pages that still want to know
// who is looking.
func WithSession(sessions Sessions) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			store := sessions.Open(w, r)
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), store)))
		}
	}
}
