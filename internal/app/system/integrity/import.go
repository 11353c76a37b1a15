// internal/app/system/integrity/import.go
package integrity

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dalemusser/coursedesk/internal/app/system/normalize"
	"github.com/dalemusser/coursedesk/internal/app/system/workbook"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.uber.org/zap"
)

// ImportResult summarizes the records an import wrote or reused.
type ImportResult struct {
	CourseID        string `json:"course_id"`
	GroupID         string `json:"group_id,omitempty"`
	Sessions        int    `json:"sessions"`
	Students        int    `json:"students"`
	Teachers        int    `json:"teachers"`
	CreatedStudents int    `json:"created_students"`
	CreatedTeachers int    `json:"created_teachers"`
}

// ImportSchedule turns a parsed workbook into records: the group, teachers
// and students are found or created, then the course and its sessions are
// written through the same linking steps as manual creation.
//
// There is no rollback. A failure part way leaves what was written so far;
// the course can be removed with DeleteCourse and the file imported again.
func (s *Service) ImportSchedule(ctx context.Context, sched workbook.Schedule) (*ImportResult, error) {
	res, err := s.importSchedule(ctx, sched)
	courseID := ""
	details := map[string]string{}
	if res != nil {
		courseID = res.CourseID
		details["sessions"] = strconv.Itoa(res.Sessions)
		details["students"] = strconv.Itoa(res.Students)
		details["teachers"] = strconv.Itoa(res.Teachers)
	}
	if err != nil {
		s.log.Error("schedule import failed",
			zap.String("filename", sched.Filename),
			zap.String("course_id", courseID),
			zap.Error(err))
	}
	s.opts.Audit.Import(ctx, sched.Filename, courseID, details, err)
	return res, err
}

func (s *Service) importSchedule(ctx context.Context, sched workbook.Schedule) (*ImportResult, error) {
	if len(sched.Sessions) == 0 {
		return nil, invalidf("%s has no sessions", sched.Filename)
	}
	res := &ImportResult{}

	var groupID string
	if sched.GroupName != "" {
		g, err := s.EnsureGroup(ctx, sched.GroupName, sched.Color, sched.Mode)
		if err != nil {
			return nil, err
		}
		groupID = g.ID
		res.GroupID = g.ID
	}

	teacherByKey := map[string]string{}
	var teacherIDs []string
	for _, name := range sched.Teachers {
		t, created, err := s.CreateTeacherRecord(ctx, name, "")
		if err != nil {
			return nil, err
		}
		teacherByKey[normalize.Key(name)] = t.ID
		teacherIDs = append(teacherIDs, t.ID)
		if created {
			res.CreatedTeachers++
		}
	}

	studentByKey := map[string]string{}
	var studentIDs []string
	for _, name := range sched.Students {
		st, created, err := s.FindOrCreateStudent(ctx, name)
		if err != nil {
			return nil, err
		}
		studentByKey[normalize.Key(name)] = st.ID
		studentIDs = append(studentIDs, st.ID)
		if created {
			res.CreatedStudents++
		}
	}

	first, last := sched.DateRange()
	status := CourseCompleted
	for _, row := range sched.Sessions {
		if row.Status != models.SessionCompleted {
			status = CourseActive
			break
		}
	}
	c, err := s.CreateCourse(ctx, NewCourse{
		Name:       sched.CourseName,
		Level:      sched.Level,
		GroupID:    groupID,
		TeacherIDs: teacherIDs,
		StudentIDs: studentIDs,
		JoinDate:   first,
		Status:     status,
		StartDate:  first,
		EndDate:    last,
	})
	if err != nil {
		return nil, err
	}
	res.CourseID = c.ID

	for _, row := range sched.Sessions {
		att := make(map[string]models.AttendanceEntry, len(row.Attendance))
		for name, mark := range row.Attendance {
			if id, ok := studentByKey[normalize.Key(name)]; ok {
				att[id] = models.AttendanceEntry{Status: mark}
			}
		}
		if _, err := s.AddSession(ctx, c.ID, NewSession{
			Date:       row.Date,
			StartTime:  row.StartTime,
			EndTime:    row.EndTime,
			Title:      row.Title,
			TeacherID:  teacherByKey[normalize.Key(row.Teacher)],
			Status:     row.Status,
			Attendance: att,
		}); err != nil {
			return res, fmt.Errorf("row %d: %w", row.Row, err)
		}
		res.Sessions++
	}
	res.Students = len(studentIDs)
	res.Teachers = len(teacherIDs)
	return res, nil
}
