// internal/app/system/integrity/cascade.go
package integrity

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/idset"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DeleteCourse removes a course and repairs everything that referenced it.
//
// Surviving records are updated before the course itself is deleted, so the
// teacher liveness check and month recount see a consistent picture. On
// failure the course may be partially cleaned; calling DeleteCourse again
// finishes the job. A missing course is a no-op.
func (s *Service) DeleteCourse(ctx context.Context, courseID string) error {
	details, err := s.deleteCourse(ctx, courseID)
	if err != nil {
		s.log.Error("course delete failed", zap.String("course_id", courseID), zap.Error(err))
	}
	s.opts.Audit.Integrity(ctx, audit.EventCourseDeleted, models.CollCourses, courseID, details, err)
	return err
}

func (s *Service) deleteCourse(ctx context.Context, courseID string) (map[string]string, error) {
	course, err := records.Get[models.Course](ctx, s.store, models.CollCourses, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return map[string]string{"noop": "true"}, nil
	}

	// Gather every reference before anything is removed. Sessions and
	// students that point at the course without being listed on it are
	// included so nothing is stranded.
	listedSessions, err := s.queryIDs(ctx, models.CollSessions, "course_id", courseID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	sessionIDs := idset.Union(course.SessionIDs, listedSessions)

	linkedStudents, err := s.queryIDs(ctx, models.CollStudents, "course_ids", courseID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	studentIDs := idset.Union(course.StudentIDs, linkedStudents)

	linkedMonths, err := s.queryIDs(ctx, models.CollMonths, "course_ids", courseID)
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}

	linkedGroups, err := s.queryIDs(ctx, models.CollGroups, "course_ids", courseID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	groupIDs := idset.Add(linkedGroups, course.GroupID)

	var sessions []models.Session
	for _, id := range sessionIDs {
		sess, err := records.Get[models.Session](ctx, s.store, models.CollSessions, id)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
		if sess != nil {
			sessions = append(sessions, *sess)
		}
	}
	teacherIDs := course.AllTeacherIDs()
	monthIDs := linkedMonths
	for _, sess := range sessions {
		teacherIDs = idset.Add(teacherIDs, sess.TeacherID)
		monthIDs = idset.Add(monthIDs, sess.MonthID)
	}

	// Sessions go first: the teacher and month steps query what remains.
	if err := s.each(ctx, sessionIDs, func(ctx context.Context, id string) error {
		return s.store.Delete(ctx, models.CollSessions, id)
	}); err != nil {
		return nil, fmt.Errorf("delete sessions: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.each(gctx, studentIDs, func(ctx context.Context, id string) error {
			return s.unlinkStudent(ctx, id, courseID)
		})
	})
	g.Go(func() error {
		return s.each(gctx, teacherIDs, func(ctx context.Context, id string) error {
			return s.releaseTeacher(ctx, id, courseID)
		})
	})
	g.Go(func() error {
		return s.each(gctx, monthIDs, func(ctx context.Context, id string) error {
			return s.stripMonth(ctx, id, courseID)
		})
	})
	g.Go(func() error {
		return s.each(gctx, groupIDs, func(ctx context.Context, id string) error {
			return s.unlinkGroup(ctx, id, courseID)
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.invalidateTeachers()

	if err := s.store.Delete(ctx, models.CollCourses, courseID); err != nil {
		return nil, fmt.Errorf("delete course: %w", err)
	}

	if _, err := s.CleanupEmptyGroups(ctx); err != nil {
		s.log.Warn("group sweep after course delete failed",
			zap.String("course_id", courseID), zap.Error(err))
	}

	return map[string]string{
		"sessions": strconv.Itoa(len(sessionIDs)),
		"students": strconv.Itoa(len(studentIDs)),
		"teachers": strconv.Itoa(len(teacherIDs)),
	}, nil
}

// unlinkStudent drops courseID from a student, deleting the student when no
// courses remain.
func (s *Service) unlinkStudent(ctx context.Context, studentID, courseID string) error {
	st, err := records.Get[models.Student](ctx, s.store, models.CollStudents, studentID)
	if err != nil {
		return fmt.Errorf("load student %s: %w", studentID, err)
	}
	if st == nil {
		return nil
	}
	remaining := idset.Remove(st.CourseIDs, courseID)
	if len(remaining) == 0 {
		if err := s.store.Delete(ctx, models.CollStudents, studentID); err != nil {
			return fmt.Errorf("delete student %s: %w", studentID, err)
		}
		return nil
	}
	joinDates := make(map[string]string, len(st.JoinDates))
	for k, v := range st.JoinDates {
		if k != courseID {
			joinDates[k] = v
		}
	}
	if err := s.patch(ctx, models.CollStudents, studentID, records.Doc{
		"course_ids": remaining,
		"join_dates": joinDates,
	}); err != nil {
		return fmt.Errorf("update student %s: %w", studentID, err)
	}
	return nil
}

// releaseTeacher deletes a teacher that neither a remaining session nor
// another course references, or otherwise drops courseID from their course
// list.
func (s *Service) releaseTeacher(ctx context.Context, teacherID, courseID string) error {
	t, err := records.Get[models.Teacher](ctx, s.store, models.CollTeachers, teacherID)
	if err != nil {
		return fmt.Errorf("load teacher %s: %w", teacherID, err)
	}
	if t == nil {
		return nil
	}
	live, err := s.queryIDs(ctx, models.CollSessions, "teacher_id", teacherID)
	if err != nil {
		return fmt.Errorf("query sessions for teacher %s: %w", teacherID, err)
	}
	if len(live) == 0 {
		live, err = s.otherCoursesOf(ctx, teacherID, courseID)
		if err != nil {
			return err
		}
	}
	if len(live) == 0 {
		if err := s.store.Delete(ctx, models.CollTeachers, teacherID); err != nil {
			return fmt.Errorf("delete teacher %s: %w", teacherID, err)
		}
		return nil
	}
	if !idset.Contains(t.CourseIDs, courseID) {
		return nil
	}
	if err := s.patch(ctx, models.CollTeachers, teacherID, records.Doc{
		"course_ids": idset.Remove(t.CourseIDs, courseID),
	}); err != nil {
		return fmt.Errorf("update teacher %s: %w", teacherID, err)
	}
	return nil
}

// otherCoursesOf lists the courses besides courseID that name teacherID in
// teacher_id or teacher_ids.
func (s *Service) otherCoursesOf(ctx context.Context, teacherID, courseID string) ([]string, error) {
	byScalar, err := s.queryIDs(ctx, models.CollCourses, "teacher_id", teacherID)
	if err != nil {
		return nil, fmt.Errorf("query courses for teacher %s: %w", teacherID, err)
	}
	byList, err := s.queryIDs(ctx, models.CollCourses, "teacher_ids", teacherID)
	if err != nil {
		return nil, fmt.Errorf("query courses for teacher %s: %w", teacherID, err)
	}
	return idset.Remove(idset.Union(byScalar, byList), courseID), nil
}

// stripMonth recounts a month's sessions and drops courseID from it. The
// month is deleted once it has neither sessions nor courses.
func (s *Service) stripMonth(ctx context.Context, monthID, courseID string) error {
	m, err := records.Get[models.Month](ctx, s.store, models.CollMonths, monthID)
	if err != nil {
		return fmt.Errorf("load month %s: %w", monthID, err)
	}
	if m == nil {
		return nil
	}
	remaining, err := records.Find[models.Session](ctx, s.store, models.CollSessions, "month_id", monthID)
	if err != nil {
		return fmt.Errorf("query sessions for month %s: %w", monthID, err)
	}
	courseIDs := idset.Remove(m.CourseIDs, courseID)
	if len(remaining) == 0 && len(courseIDs) == 0 {
		if err := s.store.Delete(ctx, models.CollMonths, monthID); err != nil {
			return fmt.Errorf("delete month %s: %w", monthID, err)
		}
		return nil
	}
	teacherIDs := []string{}
	for _, sess := range remaining {
		teacherIDs = idset.Add(teacherIDs, sess.TeacherID)
	}
	if err := s.patch(ctx, models.CollMonths, monthID, records.Doc{
		"session_count": len(remaining),
		"course_ids":    courseIDs,
		"teacher_ids":   teacherIDs,
	}); err != nil {
		return fmt.Errorf("update month %s: %w", monthID, err)
	}
	return nil
}

func (s *Service) unlinkGroup(ctx context.Context, groupID, courseID string) error {
	grp, err := records.Get[models.CourseGroup](ctx, s.store, models.CollGroups, groupID)
	if err != nil {
		return fmt.Errorf("load group %s: %w", groupID, err)
	}
	if grp == nil || !idset.Contains(grp.CourseIDs, courseID) {
		return nil
	}
	if err := s.patch(ctx, models.CollGroups, groupID, records.Doc{
		"course_ids": idset.Remove(grp.CourseIDs, courseID),
	}); err != nil {
		return fmt.Errorf("update group %s: %w", groupID, err)
	}
	return nil
}

// DeleteStudent removes a student from every course roster and session
// attendance map, then deletes the record. A missing student is a no-op.
func (s *Service) DeleteStudent(ctx context.Context, studentID string) error {
	err := s.deleteStudent(ctx, studentID)
	if err != nil {
		s.log.Error("student delete failed", zap.String("student_id", studentID), zap.Error(err))
	}
	s.opts.Audit.Integrity(ctx, audit.EventStudentDeleted, models.CollStudents, studentID, nil, err)
	return err
}

func (s *Service) deleteStudent(ctx context.Context, studentID string) error {
	st, err := records.Get[models.Student](ctx, s.store, models.CollStudents, studentID)
	if err != nil {
		return fmt.Errorf("load student: %w", err)
	}
	if st == nil {
		return nil
	}
	linked, err := s.queryIDs(ctx, models.CollCourses, "student_ids", studentID)
	if err != nil {
		return fmt.Errorf("query courses: %w", err)
	}
	courseIDs := idset.Union(st.CourseIDs, linked)

	if err := s.each(ctx, courseIDs, func(ctx context.Context, id string) error {
		return s.dropFromRoster(ctx, id, studentID)
	}); err != nil {
		return err
	}
	if err := s.dropAttendance(ctx, studentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, models.CollStudents, studentID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

func (s *Service) dropFromRoster(ctx context.Context, courseID, studentID string) error {
	c, err := records.Get[models.Course](ctx, s.store, models.CollCourses, courseID)
	if err != nil {
		return fmt.Errorf("load course %s: %w", courseID, err)
	}
	if c == nil || !idset.Contains(c.StudentIDs, studentID) {
		return nil
	}
	if err := s.patch(ctx, models.CollCourses, courseID, records.Doc{
		"student_ids": idset.Remove(c.StudentIDs, studentID),
	}); err != nil {
		return fmt.Errorf("update course %s: %w", courseID, err)
	}
	return nil
}

// dropAttendance removes studentID's entry from every session.
func (s *Service) dropAttendance(ctx context.Context, studentID string) error {
	touched, err := s.sessionsAttendedBy(ctx, studentID)
	if err != nil {
		return err
	}
	return s.eachSession(ctx, touched, func(ctx context.Context, sess models.Session) error {
		att := make(map[string]models.AttendanceEntry, len(sess.Attendance))
		for k, v := range sess.Attendance {
			if k != studentID {
				att[k] = v
			}
		}
		if err := s.patch(ctx, models.CollSessions, sess.ID, records.Doc{"attendance": att}); err != nil {
			return fmt.Errorf("update session %s: %w", sess.ID, err)
		}
		return nil
	})
}

func (s *Service) eachSession(ctx context.Context, sessions []models.Session, fn func(ctx context.Context, sess models.Session) error) error {
	byID := make(map[string]models.Session, len(sessions))
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		byID[sess.ID] = sess
		ids = append(ids, sess.ID)
	}
	return s.each(ctx, ids, func(ctx context.Context, id string) error {
		return fn(ctx, byID[id])
	})
}

// DeleteTeacher removes a teacher from every course, session and month that
// references them, then deletes the record. A missing teacher is a no-op.
func (s *Service) DeleteTeacher(ctx context.Context, teacherID string) error {
	err := s.deleteTeacher(ctx, teacherID)
	if err != nil {
		s.log.Error("teacher delete failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
	s.opts.Audit.Integrity(ctx, audit.EventTeacherDeleted, models.CollTeachers, teacherID, nil, err)
	return err
}

func (s *Service) deleteTeacher(ctx context.Context, teacherID string) error {
	t, err := records.Get[models.Teacher](ctx, s.store, models.CollTeachers, teacherID)
	if err != nil {
		return fmt.Errorf("load teacher: %w", err)
	}
	if t == nil {
		return nil
	}
	defer s.invalidateTeachers()

	byScalar, err := s.queryIDs(ctx, models.CollCourses, "teacher_id", teacherID)
	if err != nil {
		return fmt.Errorf("query courses: %w", err)
	}
	byList, err := s.queryIDs(ctx, models.CollCourses, "teacher_ids", teacherID)
	if err != nil {
		return fmt.Errorf("query courses: %w", err)
	}
	sessionIDs, err := s.queryIDs(ctx, models.CollSessions, "teacher_id", teacherID)
	if err != nil {
		return fmt.Errorf("query sessions: %w", err)
	}
	monthIDs, err := s.queryIDs(ctx, models.CollMonths, "teacher_ids", teacherID)
	if err != nil {
		return fmt.Errorf("query months: %w", err)
	}

	if err := s.each(ctx, idset.Union(t.CourseIDs, byScalar, byList), func(ctx context.Context, id string) error {
		return s.replaceCourseTeacher(ctx, id, teacherID, "")
	}); err != nil {
		return err
	}
	if err := s.each(ctx, sessionIDs, func(ctx context.Context, id string) error {
		if err := s.patch(ctx, models.CollSessions, id, records.Doc{"teacher_id": ""}); err != nil {
			return fmt.Errorf("update session %s: %w", id, err)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := s.each(ctx, monthIDs, func(ctx context.Context, id string) error {
		return s.replaceMonthTeacher(ctx, id, teacherID, "")
	}); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, models.CollTeachers, teacherID); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

// replaceCourseTeacher swaps oldID for newID in a course's teacher_id and
// teacher_ids. An empty newID removes oldID.
func (s *Service) replaceCourseTeacher(ctx context.Context, courseID, oldID, newID string) error {
	c, err := records.Get[models.Course](ctx, s.store, models.CollCourses, courseID)
	if err != nil {
		return fmt.Errorf("load course %s: %w", courseID, err)
	}
	if c == nil {
		return nil
	}
	primary := c.TeacherID
	if primary == oldID {
		primary = newID
	}
	list := idset.Replace(c.TeacherIDs, oldID, newID)
	if primary == "" && len(list) > 0 {
		primary = list[0]
	}
	if primary == c.TeacherID && idset.Equal(list, idset.Compact(c.TeacherIDs)) {
		return nil
	}
	if err := s.patch(ctx, models.CollCourses, courseID, records.Doc{
		"teacher_id":  primary,
		"teacher_ids": list,
	}); err != nil {
		return fmt.Errorf("update course %s: %w", courseID, err)
	}
	return nil
}

func (s *Service) replaceMonthTeacher(ctx context.Context, monthID, oldID, newID string) error {
	m, err := records.Get[models.Month](ctx, s.store, models.CollMonths, monthID)
	if err != nil {
		return fmt.Errorf("load month %s: %w", monthID, err)
	}
	if m == nil {
		return nil
	}
	if err := s.patch(ctx, models.CollMonths, monthID, records.Doc{
		"teacher_ids": idset.Replace(m.TeacherIDs, oldID, newID),
	}); err != nil {
		return fmt.Errorf("update month %s: %w", monthID, err)
	}
	return nil
}

// DeleteSession removes a session from its course and recounts its month.
// A missing session is a no-op.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	err := s.deleteSession(ctx, sessionID)
	if err != nil {
		s.log.Error("session delete failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.opts.Audit.Integrity(ctx, audit.EventSessionDeleted, models.CollSessions, sessionID, nil, err)
	return err
}

func (s *Service) deleteSession(ctx context.Context, sessionID string) error {
	sess, err := records.Get[models.Session](ctx, s.store, models.CollSessions, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil
	}
	c, err := records.Get[models.Course](ctx, s.store, models.CollCourses, sess.CourseID)
	if err != nil {
		return fmt.Errorf("load course %s: %w", sess.CourseID, err)
	}
	if c != nil && idset.Contains(c.SessionIDs, sessionID) {
		if err := s.patch(ctx, models.CollCourses, c.ID, records.Doc{
			"session_ids": idset.Remove(c.SessionIDs, sessionID),
		}); err != nil {
			return fmt.Errorf("update course %s: %w", c.ID, err)
		}
	}
	if err := s.store.Delete(ctx, models.CollSessions, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if sess.MonthID != "" {
		if _, err := s.RecountMonth(ctx, sess.MonthID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteGroup detaches a group from its courses and deletes it. A missing
// group is a no-op.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) error {
	err := s.deleteGroup(ctx, groupID)
	if err != nil {
		s.log.Error("group delete failed", zap.String("group_id", groupID), zap.Error(err))
	}
	s.opts.Audit.Integrity(ctx, audit.EventGroupDeleted, models.CollGroups, groupID, nil, err)
	return err
}

func (s *Service) deleteGroup(ctx context.Context, groupID string) error {
	grp, err := records.Get[models.CourseGroup](ctx, s.store, models.CollGroups, groupID)
	if err != nil {
		return fmt.Errorf("load group: %w", err)
	}
	if grp == nil {
		return nil
	}
	linked, err := s.queryIDs(ctx, models.CollCourses, "group_id", groupID)
	if err != nil {
		return fmt.Errorf("query courses: %w", err)
	}
	if err := s.each(ctx, idset.Union(grp.CourseIDs, linked), func(ctx context.Context, id string) error {
		c, err := records.Get[models.Course](ctx, s.store, models.CollCourses, id)
		if err != nil {
			return fmt.Errorf("load course %s: %w", id, err)
		}
		if c == nil || c.GroupID != groupID {
			return nil
		}
		if err := s.patch(ctx, models.CollCourses, id, records.Doc{"group_id": ""}); err != nil {
			return fmt.Errorf("update course %s: %w", id, err)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, models.CollGroups, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
