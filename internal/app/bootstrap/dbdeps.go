// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/store/records/pgstore"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/ratelimit"
	"github.com/dalemusser/coursedesk/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. Exactly one of
// the backend handles is set, matching Backend.
type DBDeps struct {
	Backend string

	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Postgres *pgstore.Store

	// Store is the selected backend with the per-round-trip deadline applied.
	Store records.Store

	// Runtime is allocated by ConnectDB and filled in by Startup, so the
	// services it builds reach BuildHandler and Shutdown.
	Runtime *Runtime
}

// Runtime holds the long-lived services shared by the HTTP handlers and the
// background worker.
type Runtime struct {
	Integrity *integrity.Service
	Audit     *audit.Store
	Sweeper   *workers.Runner

	// ImportLimiter throttles workbook uploads per client; nil when disabled.
	ImportLimiter  *ratelimit.Limiter
	TrustedProxies ratelimit.Proxies
}
