// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/system/auditlog"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CourseDesk.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: store_backend, mongo_uri, etc.
//   - Environment variables: COURSEDESK_STORE_BACKEND, COURSEDESK_MONGO_URI, etc.
//   - Command-line flags: --store_backend, --mongo_uri, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Record store: 'mongo', 'postgres' or 'memory'"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "coursedesk", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "postgres_dsn", Default: "", Desc: "PostgreSQL DSN (required when store_backend is 'postgres')"},

	{Name: "store_timeout", Default: "5s", Desc: "Deadline for each store round-trip (e.g., 5s, 500ms)"},
	{Name: "teacher_cache_ttl", Default: "5m", Desc: "How long the teacher list is cached (0 disables caching)"},

	{Name: "sweep_interval", Default: "1h", Desc: "Background orphan sweep interval (0 disables the sweeper)"},
	{Name: "merge_join_date_policy", Default: "primary", Desc: "Whose join date wins when both merged students have one: 'primary' or 'secondary'"},

	{Name: "audit_log", Default: auditlog.ModeAll, Desc: "Integrity event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "import_max_upload", Default: 10 << 20, Desc: "Maximum workbook upload size in bytes"},
	{Name: "import_rate_limit", Default: 10, Desc: "Workbook uploads allowed per client per minute (0 disables the limit)"},
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated reverse proxy IPs or CIDRs whose X-Forwarded-For header is trusted"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, COURSEDESK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COURSEDESK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend: appValues.String("store_backend"),

		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		PostgresDSN: appValues.String("postgres_dsn"),

		StoreTimeout:    appValues.Duration("store_timeout", 5*time.Second),
		TeacherCacheTTL: appValues.Duration("teacher_cache_ttl", 5*time.Minute),

		SweepInterval:       appValues.Duration("sweep_interval", time.Hour),
		MergeJoinDatePolicy: appValues.String("merge_join_date_policy"),

		AuditLog: appValues.String("audit_log"),

		ImportMaxUpload: int64(appValues.Int("import_max_upload")),
		ImportRateLimit: appValues.Int("import_rate_limit"),

		TrustedProxies: appValues.String("trusted_proxies"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The backend-specific connection settings are checked here so a typo fails
// before any connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required")
		}
	case BackendPostgres:
		if appCfg.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required when store_backend is %q", BackendPostgres)
		}
	case BackendMemory:
		logger.Warn("using the in-memory store; records are lost on restart")
	default:
		return fmt.Errorf("unknown store_backend %q (want mongo, postgres or memory)", appCfg.StoreBackend)
	}

	if _, err := integrity.ParseJoinDatePolicy(appCfg.MergeJoinDatePolicy); err != nil {
		return err
	}

	switch appCfg.AuditLog {
	case "", auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
	default:
		return fmt.Errorf("unknown audit_log mode %q (want all, db, log or off)", appCfg.AuditLog)
	}

	if appCfg.StoreTimeout < 0 || appCfg.TeacherCacheTTL < 0 || appCfg.SweepInterval < 0 {
		return fmt.Errorf("store_timeout, teacher_cache_ttl and sweep_interval must not be negative")
	}
	if appCfg.ImportMaxUpload <= 0 {
		return fmt.Errorf("import_max_upload must be positive")
	}
	if appCfg.ImportRateLimit < 0 {
		return fmt.Errorf("import_rate_limit must not be negative")
	}
	if _, err := ratelimit.ParseProxies(appCfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}

	return nil
}
