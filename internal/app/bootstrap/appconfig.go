// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends accepted by store_backend.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig carries what is specific to CourseDesk: which record store to
// use and how to reach it, and the knobs of the integrity layer.
type AppConfig struct {
	// Record store selection
	StoreBackend string // "mongo", "postgres" or "memory"

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// PostgreSQL connection configuration
	PostgresDSN string // e.g., postgres://coursedesk@localhost:5432/coursedesk?sslmode=disable

	// Deadlines and caching
	StoreTimeout    time.Duration // per store round-trip
	TeacherCacheTTL time.Duration // teacher list used for name dedupe

	// Integrity
	SweepInterval       time.Duration // background orphan sweep; 0 disables it
	MergeJoinDatePolicy string        // "primary" or "secondary"

	// Audit logging: 'all' (db+log), 'db', 'log', or 'off'
	AuditLog string

	// Imports
	ImportMaxUpload int64 // bytes
	ImportRateLimit int   // uploads per client per minute; 0 disables the limit

	// Comma-separated proxy IPs/CIDRs whose X-Forwarded-For is believed
	TrustedProxies string
}
