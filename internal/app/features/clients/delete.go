// internal/app/features/clients/delete.go
package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dalemusser/softmanager/internal/app/system/lifecycle"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const hasProjectsNotice = "Cannot delete a client that still has linked projects."

// HandleDelete handles GET /clientes/delete/{id}. A client referenced by
// any project is kept and the list shows a notice instead.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	idHex := chi.URLParam(r, "id")
	oid, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		http.Redirect(w, r, "/clientes", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err = h.Lifecycle.DeleteClient(ctx, oid)
	switch {
	case errors.Is(err, lifecycle.ErrClientHasProjects):
		http.Redirect(w, r, "/clientes?erro="+url.QueryEscape(hasProjectsNotice), http.StatusSeeOther)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "delete client failed", err, "Unable to delete client.", "/clientes")
		return
	}

	h.Log.Info("client deleted", zap.String("client_id", idHex))
	http.Redirect(w, r, "/clientes", http.StatusSeeOther)
}
