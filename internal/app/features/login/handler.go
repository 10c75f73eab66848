// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/softmanager/internal/app/features/errors"
	userstore "github.com/dalemusser/softmanager/internal/app/store/users"
	"github.com/dalemusser/softmanager/internal/app/system/auth"
	"github.com/dalemusser/softmanager/internal/app/system/normalize"
	"github.com/dalemusser/softmanager/internal/app/system/ratelimit"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const badCredentials = "Invalid email or password."

type Handler struct {
	Users      *userstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Limiter    *ratelimit.Limiter // nil disables throttling
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error     string
	Email     string
	ReturnURL string
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Limiter:    limiter,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		ReturnURL: query.Get(r, "return"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := normalize.Email(r.FormValue("email"))
	password := r.FormValue("senha")
	ret := strings.TrimSpace(r.FormValue("return"))

	if h.Limiter != nil && !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		h.Log.Warn("login throttled", zap.String("ip", ratelimit.ClientIP(r)))
		w.WriteHeader(http.StatusTooManyRequests)
		h.renderFormWithError(w, r, "Too many sign-in attempts. Please wait a minute and try again.", email, ret)
		return
	}

	if email == "" || password == "" {
		h.renderFormWithError(w, r, "Please enter your email and password.", email, ret)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.Log.Info("login failed: unknown email", zap.String("email", email))
		h.renderFormWithError(w, r, badCredentials, email, ret)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "DB find user", err, "A server error occurred.", "/login")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		h.Log.Info("login failed: bad password", zap.String("user_id", u.ID.Hex()))
		h.renderFormWithError(w, r, badCredentials, email, ret)
		return
	}

	sid, err := h.SessionMgr.SignIn(w, r, u.ID.Hex(), u.Role)
	if err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.renderFormWithError(w, r, "Unable to create session. Please try again.", email, ret)
		return
	}

	h.Log.Info("user signed in",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.String("session_id", sid))

	dest := urlutil.SafeReturn(ret, "", "/")
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, email, ret string) {
	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:     msg,
		Email:     email,
		ReturnURL: ret,
	})
}
