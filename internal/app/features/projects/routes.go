// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/softmanager/internal/app/system/auth"
	"github.com/dalemusser/softmanager/internal/app/system/authz"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes mounts project routes under "/projetos".
//
// File routes (download, delete, edit, save) carry a file id, not a project
// id, so they are not behind the membership guard; the file repository
// checks the caller against the file's own project.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	memberByURL := h.Guard.RequireProjectMember(authz.ProjectFromURLParam("id"))
	memberByForm := h.Guard.RequireProjectMember(authz.ProjectFromForm("projeto_id"))

	// Any signed-in user
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)

		pr.With(memberByURL).Get("/ver/{id}", h.ServeView)
		pr.With(memberByURL).Get("/download-all/{id}", h.ServeDownloadAll)
		pr.With(middleware.RequestSize(h.MaxUploadBytes), memberByForm).Post("/upload", h.HandleUpload)

		pr.Get("/arquivo/download/{id}", h.ServeDownload)
		pr.Get("/arquivo/delete/{id}", h.HandleFileDelete)
		pr.Get("/arquivo/edit/{id}", h.ServeEdit)
		pr.Post("/arquivo/save", h.HandleSave)
	})

	// Admin only
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Post("/add", h.HandleCreate)
		pr.Get("/delete/{id}", h.HandleDelete)
		pr.Post("/status/{id}", h.HandleStatus)

		pr.Post("/equipe/add", h.HandleTeamAdd)
		pr.Get("/equipe/remove/{id}/{proj_id}", h.HandleTeamRemove)
		pr.Post("/equipe/edit/{id}", h.HandleTeamEdit)
	})

	return r
}
