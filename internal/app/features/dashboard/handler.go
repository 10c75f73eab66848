// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/softmanager/internal/app/features/errors"
	clientstore "github.com/dalemusser/softmanager/internal/app/store/clients"
	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/app/system/viewdata"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// recentCount is how many projects the dashboard lists.
const recentCount = 5

type Handler struct {
	Clients  *clientstore.Store
	Projects *projectstore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Clients:  clientstore.New(db),
		Projects: projectstore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

type recentProject struct {
	ID         string
	Name       string
	Status     string
	ClientName string
}

type dashboardData struct {
	viewdata.BaseVM
	TotalClients   int64
	ActiveProjects int64
	Recent         []recentProject
}

// ServeDashboard handles GET /.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data, err := h.load(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load dashboard failed", err, "A database error occurred.", "")
		return
	}
	data.BaseVM = viewdata.NewBaseVM(r, "Dashboard", "/")

	templates.Render(w, r, "dashboard", data)
}

func (h *Handler) load(ctx context.Context) (dashboardData, error) {
	var d dashboardData
	var err error

	if d.TotalClients, err = h.Clients.Count(ctx); err != nil {
		return d, err
	}
	if d.ActiveProjects, err = h.Projects.CountActive(ctx); err != nil {
		return d, err
	}

	projects, err := h.Projects.Recent(ctx, recentCount)
	if err != nil {
		return d, err
	}
	clients, err := h.Clients.GetByIDs(ctx, clientIDs(projects))
	if err != nil {
		return d, err
	}

	for _, p := range projects {
		row := recentProject{ID: p.ID.Hex(), Name: p.Name, Status: p.Status}
		if p.ClientID != nil {
			row.ClientName = clients[*p.ClientID].Name
		}
		d.Recent = append(d.Recent, row)
	}
	return d, nil
}

func clientIDs(projects []models.Project) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, p := range projects {
		if p.ClientID == nil || seen[*p.ClientID] {
			continue
		}
		seen[*p.ClientID] = true
		ids = append(ids, *p.ClientID)
	}
	return ids
}
