// internal/app/features/errors/routes.go
package errors

import "github.com/go-chi/chi/v5"

// Routes mounts the error pages.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Forbidden)
	return r
}
