// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, env); everything below is
// specific to SoftManager.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: softmanager-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// CSRF protection; the key must be exactly 32 bytes.
	CSRFKey string

	// Project file repository
	UploadsDir  string // Root folder; each project gets uploads/<sanitized name>/
	MaxUploadMB int    // Cap for one multipart upload request

	LoginRatePerMinute int  // Login attempts allowed per client IP per minute
	SeedDemoData       bool // Create demo users, client and project on an empty database

	// Store call timeouts (zero keeps the built-in defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit log destination: 'all' (db+log), 'db', 'log', or 'off'
	AuditLogMode string
}
