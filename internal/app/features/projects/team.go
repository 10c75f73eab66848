// internal/app/features/projects/team.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	membershipstore "github.com/dalemusser/softmanager/internal/app/store/memberships"
	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	userstore "github.com/dalemusser/softmanager/internal/app/store/users"
	"github.com/dalemusser/softmanager/internal/app/system/authz"
	"github.com/dalemusser/softmanager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/normalize"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func roleLabel(r *http.Request, field string) string {
	return normalize.Name(htmlsanitize.PlainText(r.FormValue(field)))
}

func withError(target, msg string) string {
	return target + "?erro=" + url.QueryEscape(msg)
}

// HandleTeamAdd handles POST /projetos/equipe/add (projeto_id, usuario_id, funcao).
// Adding someone already on the team creates a second membership.
func (h *Handler) HandleTeamAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxSimpleFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/projetos")
		return
	}

	pidHex := strings.TrimSpace(r.FormValue("projeto_id"))
	pid, err := primitive.ObjectIDFromHex(pidHex)
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}
	back := viewURL(pidHex)
	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(r.FormValue("usuario_id")))
	if err != nil {
		http.Redirect(w, r, withError(back, "Choose a user to add."), http.StatusSeeOther)
		return
	}
	role := roleLabel(r, "funcao")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Projects.GetByID(ctx, pid); err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			http.Redirect(w, r, "/projetos", http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "load project failed", err, "Unable to add member.", back)
		return
	}
	if _, err := h.Users.GetByID(ctx, uid); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			http.Redirect(w, r, withError(back, "That user no longer exists."), http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "load user failed", err, "Unable to add member.", back)
		return
	}

	m, err := h.Members.Add(ctx, pid, uid, role)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "add member failed", err, "Unable to add member.", back)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.Log.Info("team member added",
		zap.String("membership_id", m.ID.Hex()),
		zap.String("project_id", pidHex),
		zap.String("user_id", uid.Hex()))
	h.Audit.MemberAdded(ctx, pid, actor)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleTeamRemove handles GET /projetos/equipe/remove/{id}/{proj_id}. The
// membership's own project is authoritative; proj_id only picks the page to
// return to when the membership is already gone.
func (h *Handler) HandleTeamRemove(w http.ResponseWriter, r *http.Request) {
	back := "/projetos"
	if pid := chi.URLParam(r, "proj_id"); primitive.IsValidObjectID(pid) {
		back = viewURL(pid)
	}
	mid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByID(ctx, mid)
	if err != nil {
		if errors.Is(err, membershipstore.ErrNotFound) {
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "load membership failed", err, "Unable to remove member.", back)
		return
	}
	if _, err := h.Members.Remove(ctx, mid); err != nil {
		h.ErrLog.LogServerError(w, r, "remove member failed", err, "Unable to remove member.", back)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.Log.Info("team member removed",
		zap.String("membership_id", mid.Hex()),
		zap.String("project_id", m.ProjectID.Hex()))
	h.Audit.MemberRemoved(ctx, m.ProjectID, actor)
	http.Redirect(w, r, viewURL(m.ProjectID.Hex()), http.StatusSeeOther)
}

// HandleTeamEdit handles POST /projetos/equipe/edit/{id} (nova_funcao, projeto_id).
func (h *Handler) HandleTeamEdit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxSimpleFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/projetos")
		return
	}

	back := "/projetos"
	if pid := strings.TrimSpace(r.FormValue("projeto_id")); primitive.IsValidObjectID(pid) {
		back = viewURL(pid)
	}
	mid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByID(ctx, mid)
	if err != nil {
		if errors.Is(err, membershipstore.ErrNotFound) {
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "load membership failed", err, "Unable to change role.", back)
		return
	}
	if err := h.Members.UpdateRole(ctx, mid, roleLabel(r, "nova_funcao")); err != nil {
		h.ErrLog.LogServerError(w, r, "update member role failed", err, "Unable to change role.", back)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.Audit.MemberRoleChanged(ctx, m.ProjectID, actor)
	http.Redirect(w, r, viewURL(m.ProjectID.Hex()), http.StatusSeeOther)
}
