// internal/app/features/courses/actions.go
package courses

import (
	"net/http"

	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleCreate handles POST /api/courses.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in integrity.NewCourse
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create course")
	defer cancel()

	c, err := h.Svc.CreateCourse(ctx, in)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, c)
}

// HandleDelete handles DELETE /api/courses/{id}. Deleting a missing course
// succeeds, so a client may retry after a partial failure.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete course")
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.Svc.DeleteCourse(ctx, id); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("course deleted", zap.String("course_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddSession handles POST /api/courses/{id}/sessions.
func (h *Handler) HandleAddSession(w http.ResponseWriter, r *http.Request) {
	var in integrity.NewSession
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "add session")
	defer cancel()

	sess, err := h.Svc.AddSession(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, sess)
}

type enrollRequest struct {
	StudentID string `json:"student_id"`
	JoinDate  string `json:"join_date"`
}

// HandleEnroll handles POST /api/courses/{id}/students.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	var in enrollRequest
	if !apierr.DecodeJSON(w, r, &in) {
		return
	}
	if in.StudentID == "" {
		apierr.BadRequest(w, "student_id is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "enroll student")
	defer cancel()

	if err := h.Svc.EnrollStudent(ctx, chi.URLParam(r, "id"), in.StudentID, in.JoinDate); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWithdraw handles DELETE /api/courses/{id}/students/{studentID}.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "withdraw student")
	defer cancel()

	if err := h.Svc.WithdrawStudent(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "studentID")); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
