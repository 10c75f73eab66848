// internal/app/features/projects/delete.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dalemusser/softmanager/internal/app/system/lifecycle"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const folderLeftNotice = "Project deleted, but its folder could not be removed from disk."

// HandleDelete handles GET /projetos/delete/{id}: the folder and every
// dependent row go with the project.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Lifecycle.DeleteProject(ctx, oid)
	switch {
	case errors.Is(err, lifecycle.ErrProjectNotFound):
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "delete project failed", err, "Unable to delete project.", "/projetos")
		return
	}

	if res.FolderErr != nil {
		http.Redirect(w, r, "/projetos?aviso="+url.QueryEscape(folderLeftNotice), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/projetos", http.StatusSeeOther)
}
