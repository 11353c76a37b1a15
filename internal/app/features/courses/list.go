// internal/app/features/courses/list.go
package courses

import (
	"net/http"
	"sort"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// courseView is a course with its sessions resolved.
type courseView struct {
	models.Course
	Sessions []models.Session `json:"sessions"`
}

// ServeList handles GET /api/courses. Optional filters: group_id, student_id,
// teacher_id (only the first one given is applied).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list courses")
	defer cancel()

	q := r.URL.Query()
	var (
		list []models.Course
		err  error
	)
	switch {
	case q.Get("group_id") != "":
		list, err = records.Find[models.Course](ctx, h.Svc.Store(), models.CollCourses, "group_id", q.Get("group_id"))
	case q.Get("student_id") != "":
		list, err = records.Find[models.Course](ctx, h.Svc.Store(), models.CollCourses, "student_ids", q.Get("student_id"))
	case q.Get("teacher_id") != "":
		list, err = records.Find[models.Course](ctx, h.Svc.Store(), models.CollCourses, "teacher_ids", q.Get("teacher_id"))
	default:
		list, err = records.All[models.Course](ctx, h.Svc.Store(), models.CollCourses)
	}
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	apierr.JSON(w, http.StatusOK, list)
}

// ServeCourse handles GET /api/courses/{id}.
func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get course")
	defer cancel()

	id := chi.URLParam(r, "id")
	c, err := records.MustGet[models.Course](ctx, h.Svc.Store(), models.CollCourses, id)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	sessions, err := records.Find[models.Session](ctx, h.Svc.Store(), models.CollSessions, "course_id", id)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		di, _ := models.ParseDate(sessions[i].Date)
		dj, _ := models.ParseDate(sessions[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return sessions[i].StartTime < sessions[j].StartTime
	})
	apierr.JSON(w, http.StatusOK, courseView{Course: *c, Sessions: sessions})
}
