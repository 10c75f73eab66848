// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/softmanager/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the dashboard at the site root. Every role sees the same view.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
	})
	return r
}
