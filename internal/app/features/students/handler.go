// internal/app/features/students/handler.go
package students

import (
	"net/http"
	"sort"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/normalize"
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

// Routes returns the router mounted at /api/students.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/merge", h.HandleMerge)
	r.Get("/{id}", h.ServeStudent)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

// ServeList handles GET /api/students. ?name= matches case- and
// whitespace-insensitively.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list students")
	defer cancel()

	var (
		list []models.Student
		err  error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		list, err = records.Find[models.Student](ctx, h.Svc.Store(), models.CollStudents, "name_ci", normalize.Key(name))
	} else {
		list, err = records.All[models.Student](ctx, h.Svc.Store(), models.CollStudents)
	}
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].NameCI < list[j].NameCI })
	apierr.JSON(w, http.StatusOK, list)
}

// ServeStudent handles GET /api/students/{id}.
func (h *Handler) ServeStudent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get student")
	defer cancel()

	s, err := records.MustGet[models.Student](ctx, h.Svc.Store(), models.CollStudents, chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, s)
}

// HandleUpdate handles PATCH /api/students/{id} with {"info", "notes"}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in integrity.StudentDetails
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update student")
	defer cancel()

	st, err := h.Svc.UpdateStudentDetails(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, st)
}

// HandleDelete handles DELETE /api/students/{id}. The student is removed from
// every roster and attendance map first.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete student")
	defer cancel()

	if err := h.Svc.DeleteStudent(ctx, chi.URLParam(r, "id")); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mergeRequest names the record that survives and the one folded into it.
type mergeRequest struct {
	PrimaryID   string `json:"primary_id"`
	SecondaryID string `json:"secondary_id"`
}

// HandleMerge handles POST /api/students/merge.
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	var in mergeRequest
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	if in.PrimaryID == "" || in.SecondaryID == "" {
		apierr.BadRequest(w, "primary_id and secondary_id are required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "merge students")
	defer cancel()

	merged, err := h.Svc.MergeStudents(ctx, in.PrimaryID, in.SecondaryID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, merged)
}
