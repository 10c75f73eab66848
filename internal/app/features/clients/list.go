// internal/app/features/clients/list.go
package clients

import (
	"context"
	"net/http"

	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/app/system/viewdata"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

type listData struct {
	viewdata.BaseVM
	Clients []models.Client
	Error   string
}

// ServeList handles GET /clientes. Any signed-in user may view; the add form
// and delete links only render for admins.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Clients.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list clients failed", err, "Unable to load clients.", "/")
		return
	}

	templates.Render(w, r, "clients_list", listData{
		BaseVM:  viewdata.NewBaseVM(r, "Clients", "/"),
		Clients: list,
		Error:   query.Get(r, "erro"),
	})
}
