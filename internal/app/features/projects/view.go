// internal/app/features/projects/view.go
package projects

import (
	"context"
	"errors"
	"net/http"

	clientstore "github.com/dalemusser/softmanager/internal/app/store/clients"
	filestore "github.com/dalemusser/softmanager/internal/app/store/files"
	logstore "github.com/dalemusser/softmanager/internal/app/store/logs"
	membershipstore "github.com/dalemusser/softmanager/internal/app/store/memberships"
	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/app/system/viewdata"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type viewData struct {
	viewdata.BaseVM
	Project    models.Project
	ProjectID  string
	Client     *models.Client
	Team       []membershipstore.TeamMember
	Files      []filestore.FileView
	Logs       []logstore.EntryView
	AllUsers   []models.User
	Error      string
	Notice     string
	MaxUploadB int64
}

// ServeView handles GET /projetos/ver/{id}. The route is guarded by project
// membership.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data, err := h.loadView(ctx, oid)
	if errors.Is(err, projectstore.ErrNotFound) {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project failed", err, "Unable to load project.", "/projetos")
		return
	}

	data.BaseVM = viewdata.NewBaseVM(r, data.Project.Name, "/projetos")
	data.Error = query.Get(r, "erro")
	data.Notice = query.Get(r, "aviso")
	templates.Render(w, r, "project_view", data)
}

func (h *Handler) loadView(ctx context.Context, oid primitive.ObjectID) (viewData, error) {
	p, err := h.Projects.GetByID(ctx, oid)
	if err != nil {
		return viewData{}, err
	}
	d := viewData{Project: p, ProjectID: p.ID.Hex(), MaxUploadB: h.MaxUploadBytes}

	if p.ClientID != nil {
		c, err := h.Clients.GetByID(ctx, *p.ClientID)
		switch {
		case err == nil:
			d.Client = &c
		case !errors.Is(err, clientstore.ErrNotFound):
			return d, err
		}
	}
	if d.Team, err = h.Members.ListByProject(ctx, p.ID); err != nil {
		return d, err
	}
	if d.Files, err = h.Files.ListByProject(ctx, p.ID); err != nil {
		return d, err
	}
	if d.Logs, err = h.Logs.Recent(ctx, p.ID, logstore.RecentLimit); err != nil {
		return d, err
	}
	if d.AllUsers, err = h.Users.List(ctx); err != nil {
		return d, err
	}
	return d, nil
}
