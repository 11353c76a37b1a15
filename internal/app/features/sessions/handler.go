// internal/app/features/sessions/handler.go
package sessions

import (
	"net/http"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Svc *integrity.Service
	Log *zap.Logger
}

func NewHandler(svc *integrity.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// Routes returns the router mounted at /api/sessions.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.ServeSession)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

// ServeSession handles GET /api/sessions/{id}.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get session")
	defer cancel()

	sess, err := records.MustGet[models.Session](ctx, h.Svc.Store(), models.CollSessions, chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, sess)
}

// HandleDelete handles DELETE /api/sessions/{id}. The course's session list
// and the month aggregate are updated with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete session")
	defer cancel()

	if err := h.Svc.DeleteSession(ctx, chi.URLParam(r, "id")); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
