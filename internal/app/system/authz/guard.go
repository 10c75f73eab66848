// internal/app/system/authz/guard.go
package authz

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrNoProject is returned by a resolver when the request carries no usable
// project id.
var ErrNoProject = errors.New("authz: no project id in request")

// MembershipChecker answers "is user on project's team".
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID primitive.ObjectID) (bool, error)
}

// ProjectResolver extracts the project id a request targets.
type ProjectResolver func(r *http.Request) (primitive.ObjectID, error)

// ProjectFromURLParam reads the project id from a chi route parameter.
func ProjectFromURLParam(name string) ProjectResolver {
	return func(r *http.Request) (primitive.ObjectID, error) {
		raw := chi.URLParam(r, name)
		if raw == "" {
			return primitive.NilObjectID, ErrNoProject
		}
		return primitive.ObjectIDFromHex(raw)
	}
}

// ProjectFromForm reads the project id from a submitted form field. Multipart
// bodies are parsed first so the field is visible; the parsed form stays on
// the request for the handler.
func ProjectFromForm(field string) ProjectResolver {
	return func(r *http.Request) (primitive.ObjectID, error) {
		if err := parseForm(r); err != nil {
			return primitive.NilObjectID, err
		}
		raw := r.FormValue(field)
		if raw == "" {
			return primitive.NilObjectID, ErrNoProject
		}
		return primitive.ObjectIDFromHex(raw)
	}
}

func parseForm(r *http.Request) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if r.MultipartForm != nil {
			return nil
		}
		return r.ParseMultipartForm(limits.MultipartMemory)
	}
	return r.ParseForm()
}

// Guard composes the project-membership check. Admins always pass.
type Guard struct {
	Members   MembershipChecker
	Log       *zap.Logger
	Forbidden func(w http.ResponseWriter, r *http.Request, msg string)
}

// NewGuard constructs a Guard. forbidden renders the denial page; nil
// falls back to a plain 403.
func NewGuard(members MembershipChecker, forbidden func(http.ResponseWriter, *http.Request, string), logger *zap.Logger) *Guard {
	return &Guard{Members: members, Log: logger, Forbidden: forbidden}
}

// CanAccessProject reports whether the request's user may act on projectID.
func (g *Guard) CanAccessProject(ctx context.Context, r *http.Request, projectID primitive.ObjectID) (bool, error) {
	role, _, uid, ok := UserCtx(r)
	if !ok {
		return false, nil
	}
	if role == models.RoleAdmin {
		return true, nil
	}
	return g.Members.IsMember(ctx, projectID, uid)
}

// RequireProjectMember admits admins and members of the project resolve
// names. An unresolvable project id is treated as no membership.
func (g *Guard) RequireProjectMember(resolve ProjectResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _, uid, ok := UserCtx(r)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			pid, err := resolve(r)
			if err != nil {
				g.Log.Info("project id not resolvable",
					zap.String("user_id", uid.Hex()),
					zap.String("path", r.URL.Path),
					zap.Error(err))
				g.deny(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
			defer cancel()
			member, err := g.Members.IsMember(ctx, pid, uid)
			if err != nil {
				g.Log.Error("membership lookup failed",
					zap.String("project_id", pid.Hex()),
					zap.String("user_id", uid.Hex()),
					zap.Error(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !member {
				g.Log.Info("project access denied",
					zap.String("project_id", pid.Hex()),
					zap.String("user_id", uid.Hex()))
				g.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request) {
	const msg = "You are not part of this project's team."
	if g.Forbidden != nil {
		g.Forbidden(w, r, msg)
		return
	}
	http.Error(w, msg, http.StatusForbidden)
}
