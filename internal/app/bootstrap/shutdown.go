// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the background sweeper and the upload limiter, then tears down DB connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Runtime != nil && deps.Runtime.Sweeper != nil {
		deps.Runtime.Sweeper.Stop()
	}
	if deps.Runtime != nil && deps.Runtime.ImportLimiter != nil {
		deps.Runtime.ImportLimiter.Stop()
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	if deps.Postgres != nil {
		logger.Info("closing PostgreSQL pool")
		if err := deps.Postgres.Close(); err != nil {
			logger.Error("PostgreSQL close failed", zap.Error(err))
			return err
		}
	}
	return nil
}
