// internal/app/features/clients/routes.go
package clients

import (
	"github.com/dalemusser/softmanager/internal/app/system/auth"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the client routes under "/clientes".
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleAdmin))
		pr.Post("/add", h.HandleCreate)
		pr.Get("/delete/{id}", h.HandleDelete)
	})

	return r
}
