// internal/app/features/maintenance/handler.go
package maintenance

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultAuditLimit = 100

// Handler serves the orphan sweep and the audit trail.
type Handler struct {
	Svc   *integrity.Service
	Audit *audit.Store
	Log   *zap.Logger
}

func NewHandler(svc *integrity.Service, auditStore *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:   svc,
		Audit: auditStore,
		Log:   logger,
	}
}

// Routes returns the router mounted at /api/maintenance.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/sweep", h.HandleSweep)
	r.Get("/audit", h.ServeAudit)
	return r
}

type sweepResponse struct {
	Results []integrity.SweepResult `json:"results"`
	Error   string                  `json:"error,omitempty"`
}

// HandleSweep handles POST /api/maintenance/sweep. Results are returned even
// when one collection failed to scan.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "orphan sweep")
	defer cancel()

	results, err := h.Svc.SweepAll(ctx)
	resp := sweepResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []integrity.SweepResult{}
	}
	status := http.StatusOK
	if err != nil {
		h.Log.Error("orphan sweep failed", zap.Error(err))
		status = apierr.Status(err)
		resp.Error = err.Error()
	}
	apierr.JSON(w, status, resp)
}

// ServeAudit handles GET /api/maintenance/audit. ?entity_id= narrows to one
// record; ?limit= caps the result (default 100).
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		apierr.NotFound(w, "audit trail is disabled")
		return
	}
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			apierr.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "read audit")
	defer cancel()

	var (
		events []audit.Event
		err    error
	)
	if id := r.URL.Query().Get("entity_id"); id != "" {
		events, err = h.Audit.ByEntity(ctx, id, limit)
	} else {
		events, err = h.Audit.Recent(ctx, limit)
	}
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	apierr.JSON(w, http.StatusOK, events)
}
