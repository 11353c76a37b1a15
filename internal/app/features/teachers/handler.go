// internal/app/features/teachers/handler.go
package teachers

import (
	"net/http"
	"sort"

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

// Routes returns the router mounted at /api/teachers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/merge", h.HandleMerge)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

// ServeList handles GET /api/teachers. The list comes from the teacher
// cache, which every teacher write invalidates.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list teachers")
	defer cancel()

	cached, err := h.Svc.Teachers(ctx)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	list := make([]models.Teacher, len(cached))
	copy(list, cached)
	sort.SliceStable(list, func(i, j int) bool { return list[i].NameCI < list[j].NameCI })
	apierr.JSON(w, http.StatusOK, list)
}

type createRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// HandleCreate handles POST /api/teachers. A name that matches an existing
// teacher returns that teacher with 200 instead of creating a duplicate.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create teacher")
	defer cancel()

	t, created, err := h.Svc.CreateTeacherRecord(ctx, in.Name, in.Country)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	apierr.JSON(w, status, t)
}

// HandleDelete handles DELETE /api/teachers/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete teacher")
	defer cancel()

	if err := h.Svc.DeleteTeacher(ctx, chi.URLParam(r, "id")); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mergeRequest struct {
	PrimaryID   string `json:"primary_id"`
	SecondaryID string `json:"secondary_id"`
}

// HandleMerge handles POST /api/teachers/merge.
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	var in mergeRequest
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	if in.PrimaryID == "" || in.SecondaryID == "" {
		apierr.BadRequest(w, "primary_id and secondary_id are required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "merge teachers")
	defer cancel()

	merged, err := h.Svc.MergeTeachers(ctx, in.PrimaryID, in.SecondaryID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, merged)
}
