// internal/app/system/integrity/merge.go
package integrity

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/coursedesk/internal/app/system/idset"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.uber.org/zap"
)

// MergeStudents folds the secondary student into the primary: courses,
// join dates, notes and session attendance move over, every course roster
// is rewritten, and the secondary record is deleted.
//
// Writes are not transactional. If a step fails the earlier writes remain
// and the merge can be re-run.
func (s *Service) MergeStudents(ctx context.Context, primaryID, secondaryID string) (*models.Student, error) {
	merged, err := s.mergeStudents(ctx, primaryID, secondaryID)
	if err != nil {
		s.log.Error("student merge failed",
			zap.String("primary_id", primaryID),
			zap.String("secondary_id", secondaryID),
			zap.Error(err))
	}
	s.opts.Audit.Integrity(ctx, audit.EventStudentsMerged, models.CollStudents, primaryID,
		map[string]string{"secondary_id": secondaryID}, err)
	return merged, err
}

func (s *Service) mergeStudents(ctx context.Context, primaryID, secondaryID string) (*models.Student, error) {
	if primaryID == secondaryID {
		return nil, ErrSameRecord
	}
	primary, err := records.MustGet[models.Student](ctx, s.store, models.CollStudents, primaryID)
	if err != nil {
		return nil, err
	}
	secondary, err := records.MustGet[models.Student](ctx, s.store, models.CollStudents, secondaryID)
	if err != nil {
		return nil, err
	}

	// Sessions are read before any write so an unreadable session cannot
	// leave the primary half-merged.
	attended, err := s.sessionsAttendedBy(ctx, secondaryID)
	if err != nil {
		return nil, err
	}

	info := primary.Info
	if info == "" {
		info = secondary.Info
	}
	info = htmlsanitize.Sanitize(info)
	if err := s.patch(ctx, models.CollStudents, primaryID, records.Doc{
		"course_ids": idset.Union(primary.CourseIDs, secondary.CourseIDs),
		"join_dates": mergeJoinDates(primary.JoinDates, secondary.JoinDates, s.opts.JoinDatePolicy),
		"notes":      mergeNotes(primary.Notes, secondary.Notes, secondary.Name),
		"info":       info,
	}); err != nil {
		return nil, fmt.Errorf("update primary student: %w", err)
	}

	if err := s.moveAttendance(ctx, attended, secondaryID, primaryID); err != nil {
		return nil, err
	}

	rostered, err := s.queryIDs(ctx, models.CollCourses, "student_ids", secondaryID)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	if err := s.each(ctx, idset.Union(secondary.CourseIDs, rostered), func(ctx context.Context, id string) error {
		c, err := records.Get[models.Course](ctx, s.store, models.CollCourses, id)
		if err != nil {
			return fmt.Errorf("load course %s: %w", id, err)
		}
		if c == nil {
			return nil
		}
		roster := idset.Replace(idset.Add(c.StudentIDs, primaryID), secondaryID, primaryID)
		if err := s.patch(ctx, models.CollCourses, id, records.Doc{"student_ids": roster}); err != nil {
			return fmt.Errorf("update course %s: %w", id, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, models.CollStudents, secondaryID); err != nil {
		return nil, fmt.Errorf("delete secondary student: %w", err)
	}
	return records.MustGet[models.Student](ctx, s.store, models.CollStudents, primaryID)
}

// sessionsAttendedBy returns the sessions with an attendance entry for
// studentID.
func (s *Service) sessionsAttendedBy(ctx context.Context, studentID string) ([]models.Session, error) {
	sessions, err := records.All[models.Session](ctx, s.store, models.CollSessions)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	var touched []models.Session
	for _, sess := range sessions {
		if _, ok := sess.Attendance[studentID]; ok {
			touched = append(touched, sess)
		}
	}
	return touched, nil
}

// moveAttendance re-keys the attendance entry from fromID to toID in each
// session. The moved entry replaces any entry toID already had.
func (s *Service) moveAttendance(ctx context.Context, sessions []models.Session, fromID, toID string) error {
	return s.eachSession(ctx, sessions, func(ctx context.Context, sess models.Session) error {
		att := make(map[string]models.AttendanceEntry, len(sess.Attendance))
		for k, v := range sess.Attendance {
			att[k] = v
		}
		att[toID] = att[fromID]
		delete(att, fromID)
		if err := s.patch(ctx, models.CollSessions, sess.ID, records.Doc{"attendance": att}); err != nil {
			return fmt.Errorf("update session %s: %w", sess.ID, err)
		}
		return nil
	})
}

func mergeJoinDates(primary, secondary map[string]string, policy JoinDatePolicy) map[string]string {
	out := make(map[string]string, len(primary)+len(secondary))
	first, second := secondary, primary
	if policy == JoinDateSecondary {
		first, second = primary, secondary
	}
	for k, v := range first {
		out[k] = v
	}
	for k, v := range second {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// mergeNotes appends the secondary's notes under a "merged from" header.
// Notes the primary already carries are not appended again, so a re-run
// merge leaves them unchanged.
func mergeNotes(primary, secondary, secondaryName string) string {
	primary = htmlsanitize.PlainText(primary)
	secondary = htmlsanitize.PlainText(secondary)
	block := "--- merged from " + secondaryName + " ---\n" + secondary
	switch {
	case secondary == "", primary == secondary, strings.Contains(primary, block):
		return primary
	case primary == "":
		return secondary
	default:
		return primary + "\n\n" + block
	}
}

// MergeTeachers folds the secondary teacher into the primary, rewriting
// every course, session and month that referenced the secondary. The
// teacher cache is invalidated afterwards, also on failure.
func (s *Service) MergeTeachers(ctx context.Context, primaryID, secondaryID string) (*models.Teacher, error) {
	merged, err := s.mergeTeachers(ctx, primaryID, secondaryID)
	if err != nil {
		s.log.Error("teacher merge failed",
			zap.String("primary_id", primaryID),
			zap.String("secondary_id", secondaryID),
			zap.Error(err))
	}
	s.opts.Audit.Integrity(ctx, audit.EventTeachersMerged, models.CollTeachers, primaryID,
		map[string]string{"secondary_id": secondaryID}, err)
	return merged, err
}

func (s *Service) mergeTeachers(ctx context.Context, primaryID, secondaryID string) (*models.Teacher, error) {
	if primaryID == secondaryID {
		return nil, ErrSameRecord
	}
	primary, err := records.MustGet[models.Teacher](ctx, s.store, models.CollTeachers, primaryID)
	if err != nil {
		return nil, err
	}
	secondary, err := records.MustGet[models.Teacher](ctx, s.store, models.CollTeachers, secondaryID)
	if err != nil {
		return nil, err
	}
	defer s.invalidateTeachers()

	country := primary.Country
	if country == "" {
		country = secondary.Country
	}
	if err := s.patch(ctx, models.CollTeachers, primaryID, records.Doc{
		"course_ids": idset.Union(primary.CourseIDs, secondary.CourseIDs),
		"country":    country,
	}); err != nil {
		return nil, fmt.Errorf("update primary teacher: %w", err)
	}

	byScalar, err := s.queryIDs(ctx, models.CollCourses, "teacher_id", secondaryID)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	byList, err := s.queryIDs(ctx, models.CollCourses, "teacher_ids", secondaryID)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	sessionIDs, err := s.queryIDs(ctx, models.CollSessions, "teacher_id", secondaryID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	monthIDs, err := s.queryIDs(ctx, models.CollMonths, "teacher_ids", secondaryID)
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}

	if err := s.each(ctx, idset.Union(secondary.CourseIDs, byScalar, byList), func(ctx context.Context, id string) error {
		return s.replaceCourseTeacher(ctx, id, secondaryID, primaryID)
	}); err != nil {
		return nil, err
	}
	if err := s.each(ctx, sessionIDs, func(ctx context.Context, id string) error {
		if err := s.patch(ctx, models.CollSessions, id, records.Doc{"teacher_id": primaryID}); err != nil {
			return fmt.Errorf("update session %s: %w", id, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.each(ctx, monthIDs, func(ctx context.Context, id string) error {
		return s.replaceMonthTeacher(ctx, id, secondaryID, primaryID)
	}); err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, models.CollTeachers, secondaryID); err != nil {
		return nil, fmt.Errorf("delete secondary teacher: %w", err)
	}
	return records.MustGet[models.Teacher](ctx, s.store, models.CollTeachers, primaryID)
}
