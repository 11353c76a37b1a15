package students_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/coursedesk/internal/app/features/students"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/dalemusser/coursedesk/internal/testutil"
	"go.uber.org/zap"
)

func TestStudentsAPI(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := testutil.NewMemStore()
	fx := testutil.NewFixtures(t, store)
	router := students.Routes(students.NewHandler(testutil.NewService(store), zap.NewNop()))

	fx.Course(ctx, models.Course{ID: "c1", StudentIDs: []string{"s1", "s2"}, SessionIDs: []string{"x1"}})
	fx.Course(ctx, models.Course{ID: "c2", StudentIDs: []string{"s2"}, SessionIDs: []string{}})
	fx.Student(ctx, models.Student{ID: "s1", Name: "Maria  Lopez", CourseIDs: []string{"c1"}})
	fx.Student(ctx, models.Student{ID: "s2", Name: "maria lopez", CourseIDs: []string{"c1", "c2"}})
	fx.Session(ctx, models.Session{ID: "x1", CourseID: "c1", Date: "03.06.2024", Attendance: map[string]models.AttendanceEntry{
		"s2": {Status: "present"},
	}})

	t.Run("list by name", func(t *testing.T) {
		rec := testutil.Serve(router, testutil.NewRequest(http.MethodGet, "/?name=MARIA%20LOPEZ"))
		var list []models.Student
		testutil.DecodeJSON(t, rec, &list)
		if len(list) != 2 {
			t.Fatalf("got %d students, want 2", len(list))
		}
	})

	t.Run("merge requires both ids", func(t *testing.T) {
		rec := testutil.Serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/merge", map[string]string{"primary_id": "s1"}))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("merge into itself", func(t *testing.T) {
		rec := testutil.Serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/merge", map[string]string{
			"primary_id": "s1", "secondary_id": "s1",
		}))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("merge", func(t *testing.T) {
		rec := testutil.Serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/merge", map[string]string{
			"primary_id": "s1", "secondary_id": "s2",
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var merged models.Student
		testutil.DecodeJSON(t, rec, &merged)
		if len(merged.CourseIDs) != 2 {
			t.Errorf("merged course_ids = %v", merged.CourseIDs)
		}
		if fx.Exists(ctx, models.CollStudents, "s2") {
			t.Error("secondary should be deleted")
		}
		sess := testutil.Load[models.Session](t, ctx, store, models.CollSessions, "x1")
		if _, ok := sess.Attendance["s1"]; !ok {
			t.Error("attendance should move to the primary")
		}
	})

	t.Run("update details", func(t *testing.T) {
		rec := testutil.Serve(router, testutil.NewJSONRequest(t, http.MethodPatch, "/s1", map[string]string{
			"info":  `<p>Prefers <b>evenings</b><script>alert(1)</script></p>`,
			"notes": "<i>paid</i> in full",
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var st models.Student
		testutil.DecodeJSON(t, rec, &st)
		if st.Info != "<p>Prefers <b>evenings</b></p>" {
			t.Errorf("info = %q, want formatting kept and script dropped", st.Info)
		}
		if st.Notes != "paid in full" {
			t.Errorf("notes = %q, want plain text", st.Notes)
		}
	})

	t.Run("update rejects empty body and missing student", func(t *testing.T) {
		rec := testutil.Serve(router, testutil.NewJSONRequest(t, http.MethodPatch, "/s1", map[string]string{}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("empty update status = %d, want 400", rec.Code)
		}
		rec = testutil.Serve(router, testutil.NewJSONRequest(t, http.MethodPatch, "/nobody", map[string]string{"notes": "x"}))
		if rec.Code != http.StatusNotFound {
			t.Errorf("missing student status = %d, want 404", rec.Code)
		}
	})

	t.Run("get and delete", func(t *testing.T) {
		rec := testutil.Serve(router, testutil.NewRequest(http.MethodGet, "/s1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("get status = %d", rec.Code)
		}
		rec = testutil.Serve(router, testutil.NewRequest(http.MethodDelete, "/s1"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
		c1 := testutil.Load[models.Course](t, ctx, store, models.CollCourses, "c1")
		if len(c1.StudentIDs) != 0 {
			t.Errorf("roster = %v, want empty", c1.StudentIDs)
		}
		rec = testutil.Serve(router, testutil.NewRequest(http.MethodGet, "/s1"))
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete status = %d, want 404", rec.Code)
		}
	})
}
