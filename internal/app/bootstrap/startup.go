// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/system/auditlog"
	"github.com/dalemusser/coursedesk/internal/app/system/cache"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/ratelimit"
	"github.com/dalemusser/coursedesk/internal/app/system/tasks"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/dalemusser/coursedesk/internal/app/system/workers"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It
// applies the configured deadlines, builds the integrity service with its
// teacher cache and audit logger, sets up the upload limiter, and starts
// the orphan sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Runtime == nil || deps.Store == nil {
		return errors.New("startup: store not connected")
	}

	timeouts.Configure(timeouts.Config{Store: appCfg.StoreTimeout})

	policy, err := integrity.ParseJoinDatePolicy(appCfg.MergeJoinDatePolicy)
	if err != nil {
		return err
	}

	auditStore := audit.New(deps.Store)
	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{Mode: appCfg.AuditLog})

	teacherCache := cache.New[string, []models.Teacher](appCfg.TeacherCacheTTL)
	svc := integrity.New(deps.Store, teacherCache, logger, integrity.Options{
		JoinDatePolicy: policy,
		Audit:          auditLogger,
	})

	deps.Runtime.Integrity = svc
	deps.Runtime.Audit = auditStore

	proxies, err := ratelimit.ParseProxies(appCfg.TrustedProxies)
	if err != nil {
		return err
	}
	deps.Runtime.TrustedProxies = proxies
	if appCfg.ImportRateLimit > 0 {
		deps.Runtime.ImportLimiter = ratelimit.New(appCfg.ImportRateLimit, time.Minute)
	}

	if appCfg.SweepInterval > 0 {
		job := tasks.OrphanSweepJob(svc, logger, appCfg.SweepInterval)
		deps.Runtime.Sweeper = workers.NewRunner(job, logger)
		deps.Runtime.Sweeper.Start()
	} else {
		logger.Info("orphan sweeper disabled")
	}
	return nil
}
