// internal/app/features/projects/list.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	clientstore "github.com/dalemusser/softmanager/internal/app/store/clients"
	"github.com/dalemusser/softmanager/internal/app/system/authz"
	"github.com/dalemusser/softmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/softmanager/internal/app/system/inputval"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/normalize"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/app/system/viewdata"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type projectRow struct {
	ID            string
	Name          string
	Status        string
	ClientContact string
	ClientCompany string
	CanOpen       bool // admin or on the team
	IsMine        bool
}

type clientOption struct {
	ID      string
	Label   string
	Company string
}

type listData struct {
	viewdata.BaseVM
	Projects []projectRow
	Clients  []clientOption
	Error    string
	Notice   string
}

// ServeList handles GET /projetos: every project newest first, marking the
// ones the caller belongs to.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	_, _, uid, _ := authz.UserCtx(r)
	isAdmin := authz.IsAdmin(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	projects, err := h.Projects.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list projects failed", err, "Unable to load projects.", "/")
		return
	}
	clients, err := h.Clients.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list clients failed", err, "Unable to load projects.", "/")
		return
	}
	mine, err := h.Members.ProjectIDsForUser(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load memberships failed", err, "Unable to load projects.", "/")
		return
	}

	byID := make(map[primitive.ObjectID]models.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	mineSet := make(map[primitive.ObjectID]bool, len(mine))
	for _, id := range mine {
		mineSet[id] = true
	}

	rows := make([]projectRow, 0, len(projects))
	for _, p := range projects {
		row := projectRow{
			ID:     p.ID.Hex(),
			Name:   p.Name,
			Status: p.Status,
			IsMine: mineSet[p.ID],
		}
		row.CanOpen = isAdmin || row.IsMine
		if p.ClientID != nil {
			if c, ok := byID[*p.ClientID]; ok {
				row.ClientContact = c.Name
				row.ClientCompany = c.Company
			}
		}
		rows = append(rows, row)
	}

	options := make([]clientOption, 0, len(clients))
	for _, c := range clients {
		label := c.Company
		if label == "" {
			label = c.Name
		} else if c.Name != "" {
			label += " (" + c.Name + ")"
		}
		options = append(options, clientOption{ID: c.ID.Hex(), Label: label, Company: c.Company})
	}
	slices.SortFunc(options, func(a, b clientOption) int {
		return strings.Compare(text.Fold(a.Label), text.Fold(b.Label))
	})

	templates.Render(w, r, "projects_list", listData{
		BaseVM:   viewdata.NewBaseVM(r, "Projects", "/"),
		Projects: rows,
		Clients:  options,
		Error:    query.Get(r, "erro"),
		Notice:   query.Get(r, "aviso"),
	})
}

type createProjectInput struct {
	Name     string `validate:"required,max=120" label:"Project name"`
	Status   string `validate:"max=60" label:"Status"`
	ClientID string `validate:"omitempty,objectid" label:"Client"`
}

// HandleCreate handles POST /projetos/add.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxSimpleFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/projetos")
		return
	}

	p := models.Project{
		Name:   normalize.Name(htmlsanitize.PlainText(r.FormValue("nome"))),
		Status: normalize.Status(htmlsanitize.PlainText(r.FormValue("status"))),
	}
	input := createProjectInput{
		Name:     p.Name,
		Status:   p.Status,
		ClientID: strings.TrimSpace(r.FormValue("cliente_id")),
	}
	if res := inputval.Validate(input); res.HasErrors() {
		http.Redirect(w, r, "/projetos?erro="+url.QueryEscape(res.First()), http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if input.ClientID != "" {
		cid, _ := primitive.ObjectIDFromHex(input.ClientID)
		if _, err := h.Clients.GetByID(ctx, cid); err != nil {
			if errors.Is(err, clientstore.ErrNotFound) {
				http.Redirect(w, r, "/projetos?erro="+url.QueryEscape("Unknown client."), http.StatusSeeOther)
				return
			}
			h.ErrLog.LogServerError(w, r, "load client failed", err, "Unable to create project.", "/projetos")
			return
		}
		p.ClientID = &cid
	}

	created, err := h.Projects.Create(ctx, p)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create project failed", err, "Unable to create project.", "/projetos")
		return
	}

	h.Log.Info("project created",
		zap.String("project_id", created.ID.Hex()),
		zap.String("name", created.Name),
		zap.String("status", created.Status))
	http.Redirect(w, r, "/projetos", http.StatusSeeOther)
}
