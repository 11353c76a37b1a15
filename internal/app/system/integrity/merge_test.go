package integrity_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/dalemusser/coursedesk/internal/testutil"
)

func seedStudentPair(t *testing.T, e *env) {
	t.Helper()
	ctx, fx := e.ctx, e.fx
	fx.Course(ctx, models.Course{ID: "c1", StudentIDs: []string{"a"}})
	fx.Course(ctx, models.Course{ID: "c2", StudentIDs: []string{"a", "b"}})
	fx.Course(ctx, models.Course{ID: "c3", StudentIDs: []string{"b"}})
	fx.Student(ctx, models.Student{
		ID: "a", Name: "Lena Roth", Notes: "prefers evenings",
		CourseIDs: []string{"c1", "c2"},
		JoinDates: map[string]string{"c1": "01.01.2024", "c2": "01.02.2024"},
	})
	fx.Student(ctx, models.Student{
		ID: "b", Name: "lena  roth", Notes: "<b>paid</b> in full", Info: "phone 123",
		CourseIDs: []string{"c2", "c3"},
		JoinDates: map[string]string{"c2": "15.02.2024", "c3": "01.03.2024"},
	})
	fx.Session(ctx, models.Session{ID: "s1", CourseID: "c3", MonthID: "2024-03", Date: "05.03.2024",
		Attendance: map[string]models.AttendanceEntry{"b": {Status: models.AttendanceExcused, Comment: "sick"}}})
	fx.Session(ctx, models.Session{ID: "s2", CourseID: "c2", MonthID: "2024-02", Date: "20.02.2024",
		Attendance: map[string]models.AttendanceEntry{
			"a": {Status: models.AttendanceAbsent},
			"b": {Status: models.AttendancePresent},
		}})
	fx.Session(ctx, models.Session{ID: "s3", CourseID: "c1", MonthID: "2024-01", Date: "10.01.2024",
		Attendance: map[string]models.AttendanceEntry{"a": {Status: models.AttendancePresent}}})
}

func TestMergeStudents(t *testing.T) {
	e := newEnv(t)
	seedStudentPair(t, e)

	merged, err := e.svc.MergeStudents(e.ctx, "a", "b")
	if err != nil {
		t.Fatalf("MergeStudents failed: %v", err)
	}

	if !sameSet(merged.CourseIDs, []string{"c1", "c2", "c3"}) {
		t.Errorf("CourseIDs = %v, want union c1 c2 c3", merged.CourseIDs)
	}
	if e.exists(t, models.CollStudents, "b") {
		t.Error("secondary should be deleted")
	}
	if merged.Info != "phone 123" {
		t.Errorf("Info = %q, want secondary's info to fill the blank", merged.Info)
	}
	wantNotes := "prefers evenings\n\n--- merged from lena  roth ---\npaid in full"
	if merged.Notes != wantNotes {
		t.Errorf("Notes = %q, want %q", merged.Notes, wantNotes)
	}
	if merged.JoinDates["c2"] != "01.02.2024" {
		t.Errorf("JoinDates[c2] = %q, primary should win by default", merged.JoinDates["c2"])
	}
	if merged.JoinDates["c3"] != "01.03.2024" {
		t.Errorf("JoinDates[c3] = %q, want secondary's entry", merged.JoinDates["c3"])
	}

	// Attendance moves over and the old key disappears.
	s1 := session(t, e, "s1")
	if got := s1.Attendance["a"]; got.Status != models.AttendanceExcused || got.Comment != "sick" {
		t.Errorf("s1 attendance[a] = %+v, want moved excused/sick", got)
	}
	s2 := session(t, e, "s2")
	if got := s2.Attendance["a"]; got.Status != models.AttendancePresent {
		t.Errorf("s2 attendance[a] = %+v, want secondary's present", got)
	}
	for _, s := range []models.Session{s1, s2} {
		if _, ok := s.Attendance["b"]; ok {
			t.Errorf("%s still has attendance for b", s.ID)
		}
	}
	if s3 := session(t, e, "s3"); s3.Attendance["a"].Status != models.AttendancePresent {
		t.Error("untouched session changed")
	}

	// Rosters point at the primary, once.
	for _, id := range []string{"c2", "c3"} {
		c := course(t, e, id)
		if !sameSet(c.StudentIDs, []string{"a"}) {
			t.Errorf("%s.StudentIDs = %v, want [a]", id, c.StudentIDs)
		}
	}
}

func TestMergeStudents_SecondaryJoinDatePolicy(t *testing.T) {
	e := newEnvWith(t, testutil.NewMemStore(), integrity.Options{JoinDatePolicy: integrity.JoinDateSecondary})
	seedStudentPair(t, e)

	merged, err := e.svc.MergeStudents(e.ctx, "a", "b")
	if err != nil {
		t.Fatalf("MergeStudents failed: %v", err)
	}
	if merged.JoinDates["c2"] != "15.02.2024" {
		t.Errorf("JoinDates[c2] = %q, want secondary's date", merged.JoinDates["c2"])
	}
	if merged.JoinDates["c1"] != "01.01.2024" {
		t.Errorf("JoinDates[c1] = %q, want primary-only entry kept", merged.JoinDates["c1"])
	}
}

func TestMergeStudents_SharedSingleCourse(t *testing.T) {
	e := newEnv(t)
	e.fx.Course(e.ctx, models.Course{ID: "course1", StudentIDs: []string{"primary", "student1"}})
	e.fx.Student(e.ctx, models.Student{ID: "primary", CourseIDs: []string{"course1"}})
	e.fx.Student(e.ctx, models.Student{ID: "student1", CourseIDs: []string{"course1"}})

	if _, err := e.svc.MergeStudents(e.ctx, "primary", "student1"); err != nil {
		t.Fatalf("MergeStudents failed: %v", err)
	}
	if e.exists(t, models.CollStudents, "student1") {
		t.Error("student1 should be deleted")
	}
	if c := course(t, e, "course1"); !sameSet(c.StudentIDs, []string{"primary"}) {
		t.Errorf("course1.StudentIDs = %v, want [primary]", c.StudentIDs)
	}
}

func TestMergeStudents_Errors(t *testing.T) {
	e := newEnv(t)
	seedStudentPair(t, e)

	if _, err := e.svc.MergeStudents(e.ctx, "a", "a"); !errors.Is(err, integrity.ErrSameRecord) {
		t.Errorf("self merge err = %v, want ErrSameRecord", err)
	}
	if _, err := e.svc.MergeStudents(e.ctx, "a", "ghost"); !records.IsNotFound(err) {
		t.Errorf("missing secondary err = %v, want not found", err)
	}
	if _, err := e.svc.MergeStudents(e.ctx, "ghost", "a"); !records.IsNotFound(err) {
		t.Errorf("missing primary err = %v, want not found", err)
	}
	if !e.exists(t, models.CollStudents, "a") || !e.exists(t, models.CollStudents, "b") {
		t.Error("failed merges must not delete anything")
	}
}

func TestMergeStudents_NotesSanitized(t *testing.T) {
	e := newEnv(t)
	e.fx.Student(e.ctx, models.Student{ID: "p", Name: "P", CourseIDs: []string{"c"}})
	e.fx.Student(e.ctx, models.Student{ID: "s", Name: "S", CourseIDs: []string{"c"},
		Notes: `<script>alert(1)</script>call back`})

	merged, err := e.svc.MergeStudents(e.ctx, "p", "s")
	if err != nil {
		t.Fatalf("MergeStudents failed: %v", err)
	}
	if strings.Contains(merged.Notes, "<script>") || !strings.Contains(merged.Notes, "call back") {
		t.Errorf("Notes = %q, want script stripped and text kept", merged.Notes)
	}
}

func TestMergeTeachers(t *testing.T) {
	e := newEnv(t)
	ctx, fx := e.ctx, e.fx
	fx.Teacher(ctx, models.Teacher{ID: "p", Name: "John Smith", CourseIDs: []string{"c1"}})
	fx.Teacher(ctx, models.Teacher{ID: "s", Name: "john SMITH", Country: "DE", CourseIDs: []string{"c2", "c3"}})
	fx.Course(ctx, models.Course{ID: "c1", TeacherID: "p", TeacherIDs: []string{"p", "s"}})
	fx.Course(ctx, models.Course{ID: "c2", TeacherID: "s", TeacherIDs: []string{"s"}})
	fx.Course(ctx, models.Course{ID: "c3", TeacherIDs: []string{"x", "s"}})
	fx.Session(ctx, models.Session{ID: "ses1", CourseID: "c2", TeacherID: "s", MonthID: "2024-02", Date: "01.02.2024"})
	fx.Session(ctx, models.Session{ID: "ses2", CourseID: "c1", TeacherID: "p", MonthID: "2024-02", Date: "02.02.2024"})
	fx.Month(ctx, models.Month{ID: "2024-02", SessionCount: 2, CourseIDs: []string{"c1", "c2"}, TeacherIDs: []string{"s", "p"}})

	if _, err := e.svc.Teachers(ctx); err != nil {
		t.Fatalf("Teachers: %v", err)
	}

	merged, err := e.svc.MergeTeachers(ctx, "p", "s")
	if err != nil {
		t.Fatalf("MergeTeachers failed: %v", err)
	}
	if !sameSet(merged.CourseIDs, []string{"c1", "c2", "c3"}) {
		t.Errorf("CourseIDs = %v", merged.CourseIDs)
	}
	if merged.Country != "DE" {
		t.Errorf("Country = %q, want DE filled from secondary", merged.Country)
	}
	if e.exists(t, models.CollTeachers, "s") {
		t.Error("secondary teacher should be deleted")
	}

	if c1 := course(t, e, "c1"); c1.TeacherID != "p" || !sameSet(c1.TeacherIDs, []string{"p"}) {
		t.Errorf("c1 = %q %v, want p [p]", c1.TeacherID, c1.TeacherIDs)
	}
	if c2 := course(t, e, "c2"); c2.TeacherID != "p" || !sameSet(c2.TeacherIDs, []string{"p"}) {
		t.Errorf("c2 = %q %v, want p [p]", c2.TeacherID, c2.TeacherIDs)
	}
	if c3 := course(t, e, "c3"); !sameSet(c3.TeacherIDs, []string{"x", "p"}) {
		t.Errorf("c3.TeacherIDs = %v, want [x p]", c3.TeacherIDs)
	}
	if ses := session(t, e, "ses1"); ses.TeacherID != "p" {
		t.Errorf("ses1.TeacherID = %q, want p", ses.TeacherID)
	}
	if m := month(t, e, "2024-02"); !sameSet(m.TeacherIDs, []string{"p"}) {
		t.Errorf("month teacher_ids = %v, want [p]", m.TeacherIDs)
	}
	if _, ok := e.cache.Get(integrity.TeachersKey); ok {
		t.Error("teacher cache should be invalidated after a merge")
	}
}

func TestMergeTeachers_Errors(t *testing.T) {
	e := newEnv(t)
	e.fx.Teacher(e.ctx, models.Teacher{ID: "p"})

	if _, err := e.svc.MergeTeachers(e.ctx, "p", "p"); !errors.Is(err, integrity.ErrSameRecord) {
		t.Errorf("self merge err = %v, want ErrSameRecord", err)
	}
	if _, err := e.svc.MergeTeachers(e.ctx, "p", "ghost"); !records.IsNotFound(err) {
		t.Errorf("missing secondary err = %v, want not found", err)
	}
}

// seedLegacySession writes a session whose attendance values are bare
// status strings, the shape older imports stored.
func seedLegacySession(t *testing.T, e *env, id, courseID string, attendance records.Doc) {
	t.Helper()
	_, err := e.store.Create(e.ctx, models.CollSessions, records.Doc{
		"_id": id, "course_id": courseID, "month_id": "2024-03", "date": "07.03.2024",
		"status": models.SessionCompleted, "attendance": attendance,
	})
	if err != nil {
		t.Fatalf("seed legacy session: %v", err)
	}
}

func TestMergeStudents_StringAttendance(t *testing.T) {
	e := newEnv(t)
	seedStudentPair(t, e)
	seedLegacySession(t, e, "s9", "c3", records.Doc{"b": "present", "x": "absent"})

	if _, err := e.svc.MergeStudents(e.ctx, "a", "b"); err != nil {
		t.Fatalf("MergeStudents failed: %v", err)
	}
	if e.exists(t, models.CollStudents, "b") {
		t.Error("secondary should be deleted")
	}
	s9 := session(t, e, "s9")
	if got := s9.Attendance["a"]; got.Status != models.AttendancePresent {
		t.Errorf("s9 attendance[a] = %+v, want present moved from b", got)
	}
	if got := s9.Attendance["x"]; got.Status != models.AttendanceAbsent {
		t.Errorf("s9 attendance[x] = %+v, want untouched absent", got)
	}
	if _, ok := s9.Attendance["b"]; ok {
		t.Error("s9 still has attendance for b")
	}
}

func TestMergeStudents_RetryAfterFailure(t *testing.T) {
	faulty := testutil.NewFaultyStore(testutil.NewMemStore())
	e := newEnvWith(t, faulty, integrity.Options{})
	seedStudentPair(t, e)

	faulty.FailDelete(models.CollStudents, "b")
	if _, err := e.svc.MergeStudents(e.ctx, "a", "b"); !errors.Is(err, testutil.ErrInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if !e.exists(t, models.CollStudents, "b") {
		t.Fatal("secondary must survive a failed merge so it can be retried")
	}

	faulty.Heal()
	merged, err := e.svc.MergeStudents(e.ctx, "a", "b")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	wantNotes := "prefers evenings\n\n--- merged from lena  roth ---\npaid in full"
	if merged.Notes != wantNotes {
		t.Errorf("Notes after retry = %q, want %q", merged.Notes, wantNotes)
	}
	if !sameSet(merged.CourseIDs, []string{"c1", "c2", "c3"}) {
		t.Errorf("CourseIDs = %v", merged.CourseIDs)
	}
	if e.exists(t, models.CollStudents, "b") {
		t.Error("retry did not delete the secondary")
	}
	if got := session(t, e, "s1").Attendance["a"]; got.Status != models.AttendanceExcused {
		t.Errorf("s1 attendance[a] = %+v, want excused", got)
	}
}

func TestMergeStudents_NotesOnlyOnSecondary(t *testing.T) {
	e := newEnv(t)
	e.fx.Student(e.ctx, models.Student{ID: "a", Name: "Lena Roth"})
	e.fx.Student(e.ctx, models.Student{ID: "b", Name: "Lena R.", Notes: "paid in full"})

	merged, err := e.svc.MergeStudents(e.ctx, "a", "b")
	if err != nil {
		t.Fatalf("MergeStudents failed: %v", err)
	}
	if merged.Notes != "paid in full" {
		t.Errorf("Notes = %q, want secondary's notes as is", merged.Notes)
	}
}
