// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	clientsfeature "github.com/dalemusser/softmanager/internal/app/features/clients"
	dashboardfeature "github.com/dalemusser/softmanager/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/softmanager/internal/app/features/errors"
	healthfeature "github.com/dalemusser/softmanager/internal/app/features/health"
	loginfeature "github.com/dalemusser/softmanager/internal/app/features/login"
	logoutfeature "github.com/dalemusser/softmanager/internal/app/features/logout"
	projectsfeature "github.com/dalemusser/softmanager/internal/app/features/projects"
	logstore "github.com/dalemusser/softmanager/internal/app/store/logs"
	userstore "github.com/dalemusser/softmanager/internal/app/store/users"
	"github.com/dalemusser/softmanager/internal/app/system/auditlog"
	"github.com/dalemusser/softmanager/internal/app/system/auth"
	"github.com/dalemusser/softmanager/internal/app/system/lifecycle"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// It builds the session manager, boots the template engine, installs CSRF
// and session middleware, and mounts the feature routers: login/logout,
// dashboard, clients and projects (including the project file repository).
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-fetches the user on every request so role changes
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))
	sessionMgr.SetForbiddenHandler(errorsfeature.ForbiddenHandler())

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	audit := auditlog.New(logstore.New(deps.MongoDatabase), logger, auditlog.Config{Mode: appCfg.AuditLogMode})
	lc := lifecycle.New(deps.MongoDatabase, appCfg.UploadsDir, logger)

	// Project files live under uploads_dir, one folder per project.
	uploads, err := storage.NewLocal(storage.LocalConfig{BasePath: appCfg.UploadsDir})
	if err != nil {
		logger.Error("uploads storage init failed", zap.String("dir", appCfg.UploadsDir), zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Health check sits outside CSRF and session handling.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.UploadsDir, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	r.Group(func(app chi.Router) {
		// csrf reads the token from the body, so the size cap has to come first.
		app.Use(middleware.RequestSize(limits.UploadBytes(appCfg.MaxUploadMB)))
		if !secure {
			app.Use(plaintextCSRF)
		}
		app.Use(csrf.Protect(
			[]byte(appCfg.CSRFKey),
			csrf.Secure(secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(errorsfeature.ForbiddenHandler()),
		))

		// Loads SessionUser into context if logged in.
		app.Use(sessionMgr.LoadSessionUser)

		errorsHandler := errorsfeature.NewHandler()
		app.Mount("/forbidden", errorsfeature.Routes(errorsHandler))

		limiter := ratelimit.PerMinute(appCfg.LoginRatePerMinute)
		loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, errLog, limiter, logger)
		app.Mount("/login", loginfeature.Routes(loginHandler))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
		app.Mount("/logout", logoutfeature.Routes(logoutHandler))

		clientsHandler := clientsfeature.NewHandler(deps.MongoDatabase, lc, errLog, logger)
		app.Mount("/clientes", clientsfeature.Routes(clientsHandler, sessionMgr))

		projectsHandler := projectsfeature.NewHandler(deps.MongoDatabase, uploads, lc, limits.UploadBytes(appCfg.MaxUploadMB), audit, errLog, logger)
		app.Mount("/projetos", projectsfeature.Routes(projectsHandler, sessionMgr))

		dashboardHandler := dashboardfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		app.Mount("/", dashboardfeature.Routes(dashboardHandler, sessionMgr))
	})

	return r, nil
}

// plaintextCSRF marks requests as plain HTTP so the CSRF origin check does
// not demand https outside production.
func plaintextCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
