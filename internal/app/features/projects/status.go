// internal/app/features/projects/status.go
package projects

import (
	"context"
	"errors"
	"net/http"

	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	"github.com/dalemusser/softmanager/internal/app/system/authz"
	"github.com/dalemusser/softmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/normalize"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleStatus handles POST /projetos/status/{id}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	idHex := chi.URLParam(r, "id")
	oid, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxSimpleFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", viewURL(idHex))
		return
	}
	status := normalize.Status(htmlsanitize.PlainText(r.FormValue("status")))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Projects.UpdateStatus(ctx, oid, status); err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			http.Redirect(w, r, "/projetos", http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "update status failed", err, "Unable to update status.", viewURL(idHex))
		return
	}

	_, _, uid, _ := authz.UserCtx(r)
	h.Audit.StatusChanged(ctx, oid, uid, status)
	http.Redirect(w, r, viewURL(idHex), http.StatusSeeOther)
}
