// internal/app/features/projects/handler.go
package projects

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/softmanager/internal/app/features/errors"
	clientstore "github.com/dalemusser/softmanager/internal/app/store/clients"
	filestore "github.com/dalemusser/softmanager/internal/app/store/files"
	logstore "github.com/dalemusser/softmanager/internal/app/store/logs"
	membershipstore "github.com/dalemusser/softmanager/internal/app/store/memberships"
	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	userstore "github.com/dalemusser/softmanager/internal/app/store/users"
	"github.com/dalemusser/softmanager/internal/app/system/auditlog"
	"github.com/dalemusser/softmanager/internal/app/system/authz"
	"github.com/dalemusser/softmanager/internal/app/system/filerepo"
	"github.com/dalemusser/softmanager/internal/app/system/lifecycle"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Projects, their teams and
// their file repositories.
type Handler struct {
	Projects  *projectstore.Store
	Clients   *clientstore.Store
	Members   *membershipstore.Store
	Files     *filestore.Store
	Logs      *logstore.Store
	Users     *userstore.Store
	Repo      *filerepo.Service
	Lifecycle *lifecycle.Service
	Audit     *auditlog.Logger
	Guard     *authz.Guard

	Storage        *storage.Local
	MaxUploadBytes int64

	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler wires the project feature to db. File content lives in store;
// lc runs the project delete cascade.
func NewHandler(db *mongo.Database, store *storage.Local, lc *lifecycle.Service, maxUploadBytes int64, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	projects := projectstore.New(db)
	files := filestore.New(db)
	members := membershipstore.New(db)

	isNotFound := func(err error) bool {
		return errors.Is(err, projectstore.ErrNotFound) || errors.Is(err, filestore.ErrNotFound)
	}

	return &Handler{
		Projects:       projects,
		Clients:        clientstore.New(db),
		Members:        members,
		Files:          files,
		Logs:           logstore.New(db),
		Users:          userstore.New(db),
		Repo:           filerepo.New(store, projects, files, members, audit, isNotFound, logger),
		Lifecycle:      lc,
		Audit:          audit,
		Guard:          authz.NewGuard(members, forbidden, logger),
		Storage:        store,
		MaxUploadBytes: maxUploadBytes,
		ErrLog:         errLog,
		Log:            logger,
	}
}

func forbidden(w http.ResponseWriter, r *http.Request, msg string) {
	uierrors.RenderForbidden(w, r, msg, "/projetos")
}

// caller describes the signed-in user for the file repository.
func caller(r *http.Request) filerepo.Caller {
	role, _, uid, _ := authz.UserCtx(r)
	return filerepo.Caller{UserID: uid, Admin: role == models.RoleAdmin}
}

func viewURL(projectID string) string {
	return "/projetos/ver/" + projectID
}
