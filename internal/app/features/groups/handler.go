// internal/app/features/groups/handler.go
package groups

import (
	"net/http"
	"sort"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups API.
type Handler struct {
	Svc *integrity.Service
	Log *zap.Logger
}

// NewHandler constructs a new groups Handler.
func NewHandler(svc *integrity.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}

// ServeList handles GET /api/groups. ?type= filters by group type.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list groups")
	defer cancel()

	list, err := records.All[models.CourseGroup](ctx, h.Svc.Store(), models.CollGroups)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		kept := list[:0]
		for _, g := range list {
			if g.Type == typ {
				kept = append(kept, g)
			}
		}
		list = kept
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].NameCI < list[j].NameCI })
	apierr.JSON(w, http.StatusOK, list)
}

// HandleDelete handles DELETE /api/groups/{id}. Its courses stay; they just
// lose their group.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete group")
	defer cancel()

	if err := h.Svc.DeleteGroup(ctx, chi.URLParam(r, "id")); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
