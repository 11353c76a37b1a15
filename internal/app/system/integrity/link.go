// internal/app/system/integrity/link.go
package integrity

import (
	"context"
	"fmt"

	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/coursedesk/internal/app/system/idset"
	"github.com/dalemusser/coursedesk/internal/app/system/normalize"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.uber.org/zap"
)

// CreateTeacherRecord returns the teacher whose name matches name ignoring
// case and whitespace, creating one only when none exists. created reports
// whether a new record was written.
func (s *Service) CreateTeacherRecord(ctx context.Context, name, country string) (teacher *models.Teacher, created bool, err error) {
	name = normalize.Name(name)
	if name == "" {
		return nil, false, invalidf("teacher name is required")
	}
	key := normalize.Key(name)

	list, err := s.Teachers(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load teachers: %w", err)
	}
	for _, t := range list {
		if normalize.Key(t.Name) == key {
			return &t, false, nil
		}
	}

	now := s.now()
	t := models.Teacher{
		Name:      name,
		NameCI:    key,
		Country:   normalize.Name(country),
		CourseIDs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := records.Insert(ctx, s.store, models.CollTeachers, t)
	if err != nil {
		return nil, false, fmt.Errorf("create teacher: %w", err)
	}
	s.invalidateTeachers()
	t.ID = id
	return &t, true, nil
}

// FindOrCreateStudent applies the same name matching as CreateTeacherRecord
// to students.
func (s *Service) FindOrCreateStudent(ctx context.Context, name string) (student *models.Student, created bool, err error) {
	name = normalize.Name(name)
	if name == "" {
		return nil, false, invalidf("student name is required")
	}
	key := normalize.Key(name)

	existing, err := records.Find[models.Student](ctx, s.store, models.CollStudents, "name_ci", key)
	if err != nil {
		return nil, false, fmt.Errorf("query students: %w", err)
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}

	now := s.now()
	st := models.Student{
		Name:      name,
		NameCI:    key,
		JoinDates: map[string]string{},
		CourseIDs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := records.Insert(ctx, s.store, models.CollStudents, st)
	if err != nil {
		return nil, false, fmt.Errorf("create student: %w", err)
	}
	st.ID = id
	return &st, true, nil
}

// StudentDetails holds the free-text fields staff edit on a student. Nil
// fields are left unchanged.
type StudentDetails struct {
	Info  *string `json:"info"`
	Notes *string `json:"notes"`
}

// UpdateStudentDetails stores a student's info and notes. Info keeps safe
// formatting markup; notes are stored as plain text.
func (s *Service) UpdateStudentDetails(ctx context.Context, studentID string, in StudentDetails) (*models.Student, error) {
	if in.Info == nil && in.Notes == nil {
		return nil, invalidf("info or notes is required")
	}
	if _, err := records.MustGet[models.Student](ctx, s.store, models.CollStudents, studentID); err != nil {
		return nil, err
	}

	fields := records.Doc{}
	if in.Info != nil {
		fields["info"] = htmlsanitize.Sanitize(*in.Info)
	}
	if in.Notes != nil {
		fields["notes"] = htmlsanitize.PlainText(*in.Notes)
	}
	err := s.patch(ctx, models.CollStudents, studentID, fields)
	s.opts.Audit.Integrity(ctx, audit.EventStudentUpdated, models.CollStudents, studentID, nil, err)
	if err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}
	return records.MustGet[models.Student](ctx, s.store, models.CollStudents, studentID)
}

// EnsureGroup returns the group named name, creating it when absent. A
// color or mode given here fills in blanks on an existing group.
func (s *Service) EnsureGroup(ctx context.Context, name, color, mode string) (*models.CourseGroup, error) {
	name = normalize.Name(name)
	if name == "" {
		return nil, invalidf("group name is required")
	}
	key := normalize.Key(name)
	mode = normalize.Mode(mode)

	existing, err := records.Find[models.CourseGroup](ctx, s.store, models.CollGroups, "name_ci", key)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	if len(existing) > 0 {
		g := existing[0]
		fill := records.Doc{}
		if g.Color == "" && color != "" {
			fill["color"] = color
			g.Color = color
		}
		if g.Mode == "" && mode != "" {
			fill["mode"] = mode
			g.Mode = mode
		}
		if len(fill) > 0 {
			if err := s.patch(ctx, models.CollGroups, g.ID, fill); err != nil {
				return nil, fmt.Errorf("update group %s: %w", g.ID, err)
			}
		}
		return &g, nil
	}

	now := s.now()
	g := models.CourseGroup{
		Name:      name,
		NameCI:    key,
		Color:     color,
		Mode:      mode,
		Type:      models.GroupTypeFor(name),
		CourseIDs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := records.Insert(ctx, s.store, models.CollGroups, g)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	g.ID = id
	return &g, nil
}

// NewCourse is the input to CreateCourse.
type NewCourse struct {
	Name       string   `json:"name"`
	Level      string   `json:"level"`
	GroupID    string   `json:"group_id"`
	TeacherIDs []string `json:"teacher_ids"`
	StudentIDs []string `json:"student_ids"`
	JoinDate   string   `json:"join_date"` // DD.MM.YYYY; defaults to today
	Status     string   `json:"status"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	SourceURL  string   `json:"source_url"`
}

// Course status values.
const (
	CourseActive    = "active"
	CourseCompleted = "completed"
)

// CreateCourse writes a course and links it to its group, teachers and
// students. Every referenced record must exist.
func (s *Service) CreateCourse(ctx context.Context, in NewCourse) (*models.Course, error) {
	c, err := s.createCourse(ctx, in)
	if err != nil {
		s.log.Error("course create failed", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}
	s.opts.Audit.Integrity(ctx, audit.EventCourseCreated, models.CollCourses, c.ID,
		map[string]string{"name": c.Name}, nil)
	return c, nil
}

func (s *Service) createCourse(ctx context.Context, in NewCourse) (*models.Course, error) {
	name := normalize.Name(in.Name)
	if name == "" {
		return nil, invalidf("course name is required")
	}
	joinDate := in.JoinDate
	if joinDate == "" {
		joinDate = s.now().Format(models.DateLayout)
	} else if _, err := models.ParseDate(joinDate); err != nil {
		return nil, invalidf("join date %q is not DD.MM.YYYY", joinDate)
	}
	for _, d := range []string{in.StartDate, in.EndDate} {
		if d == "" {
			continue
		}
		if _, err := models.ParseDate(d); err != nil {
			return nil, invalidf("date %q is not DD.MM.YYYY", d)
		}
	}

	teacherIDs := idset.Compact(in.TeacherIDs)
	studentIDs := idset.Compact(in.StudentIDs)

	// Refuse dangling references up front.
	if in.GroupID != "" {
		if _, err := records.MustGet[models.CourseGroup](ctx, s.store, models.CollGroups, in.GroupID); err != nil {
			return nil, err
		}
	}
	for _, id := range teacherIDs {
		if _, err := records.MustGet[models.Teacher](ctx, s.store, models.CollTeachers, id); err != nil {
			return nil, err
		}
	}
	for _, id := range studentIDs {
		if _, err := records.MustGet[models.Student](ctx, s.store, models.CollStudents, id); err != nil {
			return nil, err
		}
	}

	status := in.Status
	if status == "" {
		status = CourseActive
	}
	now := s.now()
	c := models.Course{
		Name:       name,
		Level:      normalize.Level(in.Level),
		GroupID:    in.GroupID,
		TeacherIDs: teacherIDs,
		StudentIDs: studentIDs,
		SessionIDs: []string{},
		Status:     status,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		SourceURL:  in.SourceURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(teacherIDs) > 0 {
		c.TeacherID = teacherIDs[0]
	}
	id, err := records.Insert(ctx, s.store, models.CollCourses, c)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	c.ID = id

	if in.GroupID != "" {
		if err := s.linkGroup(ctx, in.GroupID, id); err != nil {
			return nil, err
		}
	}
	if err := s.each(ctx, teacherIDs, func(ctx context.Context, tid string) error {
		return s.linkTeacher(ctx, tid, id)
	}); err != nil {
		return nil, err
	}
	if err := s.each(ctx, studentIDs, func(ctx context.Context, sid string) error {
		return s.linkStudent(ctx, sid, id, joinDate)
	}); err != nil {
		return nil, err
	}
	if len(teacherIDs) > 0 {
		s.invalidateTeachers()
	}
	return &c, nil
}

func (s *Service) linkGroup(ctx context.Context, groupID, courseID string) error {
	g, err := records.MustGet[models.CourseGroup](ctx, s.store, models.CollGroups, groupID)
	if err != nil {
		return err
	}
	if idset.Contains(g.CourseIDs, courseID) {
		return nil
	}
	if err := s.store.Update(ctx, models.CollGroups, groupID, records.Doc{
		"course_ids": idset.Add(g.CourseIDs, courseID),
		"updated_at": s.now(),
	}); err != nil {
		return fmt.Errorf("link group %s: %w", groupID, err)
	}
	return nil
}

func (s *Service) linkTeacher(ctx context.Context, teacherID, courseID string) error {
	t, err := records.MustGet[models.Teacher](ctx, s.store, models.CollTeachers, teacherID)
	if err != nil {
		return err
	}
	if idset.Contains(t.CourseIDs, courseID) {
		return nil
	}
	if err := s.store.Update(ctx, models.CollTeachers, teacherID, records.Doc{
		"course_ids": idset.Add(t.CourseIDs, courseID),
		"updated_at": s.now(),
	}); err != nil {
		return fmt.Errorf("link teacher %s: %w", teacherID, err)
	}
	return nil
}

// linkStudent adds courseID to a student. An existing join date for the
// course is kept.
func (s *Service) linkStudent(ctx context.Context, studentID, courseID, joinDate string) error {
	st, err := records.MustGet[models.Student](ctx, s.store, models.CollStudents, studentID)
	if err != nil {
		return err
	}
	joinDates := make(map[string]string, len(st.JoinDates)+1)
	for k, v := range st.JoinDates {
		joinDates[k] = v
	}
	if joinDates[courseID] == "" {
		joinDates[courseID] = joinDate
	}
	if err := s.store.Update(ctx, models.CollStudents, studentID, records.Doc{
		"course_ids": idset.Add(st.CourseIDs, courseID),
		"join_dates": joinDates,
		"updated_at": s.now(),
	}); err != nil {
		return fmt.Errorf("link student %s: %w", studentID, err)
	}
	return nil
}

// NewSession is the input to AddSession.
type NewSession struct {
	Date       string                            `json:"date"` // DD.MM.YYYY
	StartTime  string                            `json:"start_time"`
	EndTime    string                            `json:"end_time"`
	Title      string                            `json:"title"`
	TeacherID  string                            `json:"teacher_id"`
	Status     string                            `json:"status"` // derived from the date when blank
	Attendance map[string]models.AttendanceEntry `json:"attendance"`
}

// AddSession writes a session under a course, links its teacher, and
// recounts the month it falls into.
func (s *Service) AddSession(ctx context.Context, courseID string, in NewSession) (*models.Session, error) {
	date, err := models.ParseDate(in.Date)
	if err != nil {
		return nil, invalidf("session date %q is not DD.MM.YYYY", in.Date)
	}
	c, err := records.MustGet[models.Course](ctx, s.store, models.CollCourses, courseID)
	if err != nil {
		return nil, err
	}
	if in.TeacherID != "" {
		if _, err := records.MustGet[models.Teacher](ctx, s.store, models.CollTeachers, in.TeacherID); err != nil {
			return nil, err
		}
	}

	status := in.Status
	if status == "" {
		status = models.SessionStatusFor(date, s.now())
	}
	now := s.now()
	sess := models.Session{
		CourseID:   courseID,
		TeacherID:  in.TeacherID,
		MonthID:    models.MonthOf(date),
		Date:       date.Format(models.DateLayout),
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Title:      in.Title,
		Status:     status,
		Attendance: in.Attendance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id, err := records.Insert(ctx, s.store, models.CollSessions, sess)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.ID = id

	coursePatch := records.Doc{"session_ids": idset.Add(c.SessionIDs, id)}
	if in.TeacherID != "" && !idset.Contains(c.AllTeacherIDs(), in.TeacherID) {
		coursePatch["teacher_ids"] = idset.Add(c.TeacherIDs, in.TeacherID)
		if c.TeacherID == "" {
			coursePatch["teacher_id"] = in.TeacherID
		}
	}
	if err := s.patch(ctx, models.CollCourses, courseID, coursePatch); err != nil {
		return nil, fmt.Errorf("update course %s: %w", courseID, err)
	}
	if in.TeacherID != "" {
		if err := s.linkTeacher(ctx, in.TeacherID, courseID); err != nil {
			return nil, err
		}
		s.invalidateTeachers()
	}
	if _, err := s.RecountMonth(ctx, sess.MonthID); err != nil {
		return nil, err
	}
	return &sess, nil
}

// EnrollStudent links an existing student to an existing course.
func (s *Service) EnrollStudent(ctx context.Context, courseID, studentID, joinDate string) error {
	if joinDate == "" {
		joinDate = s.now().Format(models.DateLayout)
	} else if _, err := models.ParseDate(joinDate); err != nil {
		return invalidf("join date %q is not DD.MM.YYYY", joinDate)
	}
	c, err := records.MustGet[models.Course](ctx, s.store, models.CollCourses, courseID)
	if err != nil {
		return err
	}
	if _, err := records.MustGet[models.Student](ctx, s.store, models.CollStudents, studentID); err != nil {
		return err
	}
	if !idset.Contains(c.StudentIDs, studentID) {
		if err := s.patch(ctx, models.CollCourses, courseID, records.Doc{
			"student_ids": idset.Add(c.StudentIDs, studentID),
		}); err != nil {
			return fmt.Errorf("update course %s: %w", courseID, err)
		}
	}
	return s.linkStudent(ctx, studentID, courseID, joinDate)
}

// WithdrawStudent removes a student from a course. A student left without
// courses is deleted.
func (s *Service) WithdrawStudent(ctx context.Context, courseID, studentID string) error {
	if err := s.dropFromRoster(ctx, courseID, studentID); err != nil {
		return err
	}
	if err := s.unlinkStudent(ctx, studentID, courseID); err != nil {
		s.log.Error("student withdraw failed",
			zap.String("course_id", courseID),
			zap.String("student_id", studentID),
			zap.Error(err))
		return err
	}
	return nil
}

// RecountMonth rebuilds a month from the sessions that fall into it. A month
// with no sessions is deleted and nil is returned.
func (s *Service) RecountMonth(ctx context.Context, monthID string) (*models.Month, error) {
	sessions, err := records.Find[models.Session](ctx, s.store, models.CollSessions, "month_id", monthID)
	if err != nil {
		return nil, fmt.Errorf("query sessions for month %s: %w", monthID, err)
	}
	if len(sessions) == 0 {
		if err := s.store.Delete(ctx, models.CollMonths, monthID); err != nil {
			return nil, fmt.Errorf("delete month %s: %w", monthID, err)
		}
		return nil, nil
	}
	m := models.Month{
		ID:           monthID,
		SessionCount: len(sessions),
		CourseIDs:    []string{},
		TeacherIDs:   []string{},
		UpdatedAt:    s.now(),
	}
	for _, sess := range sessions {
		m.CourseIDs = idset.Add(m.CourseIDs, sess.CourseID)
		m.TeacherIDs = idset.Add(m.TeacherIDs, sess.TeacherID)
	}
	doc, err := records.ToDoc(m)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, models.CollMonths, monthID, doc); err != nil {
		return nil, fmt.Errorf("write month %s: %w", monthID, err)
	}
	return &m, nil
}
