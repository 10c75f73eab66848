// internal/app/features/clients/new.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dalemusser/softmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/softmanager/internal/app/system/inputval"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/normalize"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"go.uber.org/zap"
)

type createClientInput struct {
	Name    string `validate:"required,max=120" label:"Client name"`
	Email   string `validate:"omitempty,email,max=254" label:"Email"`
	Company string `validate:"max=120" label:"Company"`
}

// HandleCreate handles POST /clientes/add. Email and company are optional.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxSimpleFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/clientes")
		return
	}

	c := models.Client{
		Name:    normalize.Name(htmlsanitize.PlainText(r.FormValue("nome"))),
		Email:   normalize.Email(htmlsanitize.PlainText(r.FormValue("email"))),
		Company: normalize.Name(htmlsanitize.PlainText(r.FormValue("empresa"))),
	}
	input := createClientInput{Name: c.Name, Email: c.Email, Company: c.Company}
	if res := inputval.Validate(input); res.HasErrors() {
		http.Redirect(w, r, "/clientes?erro="+url.QueryEscape(res.First()), http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Clients.Create(ctx, c)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create client failed", err, "Unable to create client.", "/clientes")
		return
	}

	h.Log.Info("client created", zap.String("client_id", created.ID.Hex()), zap.String("name", created.Name))
	http.Redirect(w, r, "/clientes", http.StatusSeeOther)
}
