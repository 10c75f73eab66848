// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	minSessionKeyLen = 32
	csrfKeyLen       = 32
)

// appConfigKeys defines the configuration keys for SoftManager.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SOFTMANAGER_MONGO_URI, SOFTMANAGER_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "softmanager", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "softmanager-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 8h, 24h)"},
	{Name: "csrf_key", Default: "dev-only-csrf-key-32-bytes-long!", Desc: "CSRF token key (exactly 32 bytes)"},

	// Project files
	{Name: "uploads_dir", Default: "uploads", Desc: "Root folder for project files"},
	{Name: "max_upload_mb", Default: 100, Desc: "Maximum size of one upload request in MB"},

	{Name: "login_rate_per_minute", Default: 10, Desc: "Login attempts allowed per IP per minute"},
	{Name: "seed_demo_data", Default: true, Desc: "Create demo users and a sample project when the database is empty"},

	// Store timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document store calls"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list and multi-collection calls"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for cascades and archive builds"},

	// Audit logging
	{Name: "audit_log_mode", Default: "all", Desc: "Project audit logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// SOFTMANAGER_* environment variables and command-line flags with
// precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SOFTMANAGER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),
		CSRFKey:          appValues.String("csrf_key"),

		UploadsDir:  appValues.String("uploads_dir"),
		MaxUploadMB: appValues.Int("max_upload_mb"),

		LoginRatePerMinute: appValues.Int("login_rate_per_minute"),
		SeedDemoData:       appValues.Bool("seed_demo_data"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		AuditLogMode: appValues.String("audit_log_mode"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked before attempting to connect, and the
// cookie and CSRF keys are checked for length.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if len(appCfg.SessionKey) < minSessionKeyLen {
		return fmt.Errorf("session_key must be at least %d characters", minSessionKeyLen)
	}
	if len(appCfg.CSRFKey) != csrfKeyLen {
		return fmt.Errorf("csrf_key must be exactly %d bytes, got %d", csrfKeyLen, len(appCfg.CSRFKey))
	}
	if appCfg.UploadsDir == "" {
		return fmt.Errorf("uploads_dir is required")
	}
	switch appCfg.AuditLogMode {
	case "", "all", "db", "log", "off":
	default:
		return fmt.Errorf("audit_log_mode must be one of all, db, log, off; got %q", appCfg.AuditLogMode)
	}

	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == "dev-only-change-me-please-0123456789ABCDEF" {
		logger.Warn("running in prod with the default session key")
	}
	return nil
}
