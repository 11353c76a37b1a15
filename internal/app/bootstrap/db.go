// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/store/records/memstore"
	"github.com/dalemusser/coursedesk/internal/app/store/records/mongostore"
	"github.com/dalemusser/coursedesk/internal/app/store/records/pgstore"
	"github.com/dalemusser/coursedesk/internal/app/system/indexes"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// connectTimeout bounds the initial connect and ping.
const connectTimeout = 10 * time.Second

// ConnectDB opens the configured record store and verifies it is reachable.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps := DBDeps{Backend: appCfg.StoreBackend, Runtime: &Runtime{}}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var raw records.Store
	switch appCfg.StoreBackend {
	case BackendMongo:
		opts := options.Client().
			ApplyURI(appCfg.MongoURI).
			SetMaxPoolSize(appCfg.MongoMaxPoolSize).
			SetMinPoolSize(appCfg.MongoMinPoolSize)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		raw = mongostore.New(deps.MongoDatabase)
		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	case BackendPostgres:
		pg, err := pgstore.Open(appCfg.PostgresDSN)
		if err != nil {
			return DBDeps{}, err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return DBDeps{}, fmt.Errorf("ping postgres: %w", err)
		}
		deps.Postgres = pg
		raw = pg
		logger.Info("connected to PostgreSQL")

	case BackendMemory:
		raw = memstore.New()

	default:
		return DBDeps{}, fmt.Errorf("unknown store_backend %q", appCfg.StoreBackend)
	}

	deps.Store = records.WithTimeout(raw, timeouts.Store)
	return deps, nil
}

// EnsureSchema creates MongoDB indexes or applies PostgreSQL migrations.
// The in-memory store needs neither.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	switch {
	case deps.MongoDatabase != nil:
		if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
			logger.Error("index setup failed", zap.Error(err))
			return fmt.Errorf("ensure indexes: %w", err)
		}
	case deps.Postgres != nil:
		if err := deps.Postgres.Migrate(logger); err != nil {
			logger.Error("postgres migration failed", zap.Error(err))
			return err
		}
	}
	return nil
}
