// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	coursesfeature "github.com/dalemusser/coursedesk/internal/app/features/courses"
	groupsfeature "github.com/dalemusser/coursedesk/internal/app/features/groups"
	healthfeature "github.com/dalemusser/coursedesk/internal/app/features/health"
	importsfeature "github.com/dalemusser/coursedesk/internal/app/features/imports"
	maintenancefeature "github.com/dalemusser/coursedesk/internal/app/features/maintenance"
	sessionsfeature "github.com/dalemusser/coursedesk/internal/app/features/sessions"
	studentsfeature "github.com/dalemusser/coursedesk/internal/app/features/students"
	teachersfeature "github.com/dalemusser/coursedesk/internal/app/features/teachers"
	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: the record store and the services Startup built
//   - logger: the fully configured zap.Logger for this app
//
// Every /api route writes through the integrity service; reads go to the
// store directly.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.Runtime == nil || deps.Runtime.Integrity == nil {
		return nil, errors.New("build handler: Startup has not run")
	}
	svc := deps.Runtime.Integrity

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Store, deps.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		api.Mount("/courses", coursesfeature.Routes(coursesfeature.NewHandler(svc, logger)))
		api.Mount("/students", studentsfeature.Routes(studentsfeature.NewHandler(svc, logger)))
		api.Mount("/teachers", teachersfeature.Routes(teachersfeature.NewHandler(svc, logger)))
		api.Mount("/groups", groupsfeature.Routes(groupsfeature.NewHandler(svc, logger)))
		api.Mount("/sessions", sessionsfeature.Routes(sessionsfeature.NewHandler(svc, logger)))

		// Maintenance: orphan sweep and audit trail
		maintHandler := maintenancefeature.NewHandler(svc, deps.Runtime.Audit, logger)
		api.Mount("/maintenance", maintenancefeature.Routes(maintHandler))

		// Spreadsheet imports
		importsHandler := importsfeature.NewHandler(svc, appCfg.ImportMaxUpload, logger)
		api.With(ratelimit.Middleware(deps.Runtime.ImportLimiter, deps.Runtime.TrustedProxies, logger)).
			Mount("/imports", importsfeature.Routes(importsHandler))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierr.NotFound(w, "no such route")
	})

	return r, nil
}
