// internal/app/system/workbook/parse.go
package workbook

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/system/normalize"
	"github.com/dalemusser/coursedesk/internal/domain/models"
)

// Schedule is a validated workbook ready to be written as records.
type Schedule struct {
	Filename   string    `json:"filename"`
	CourseName string    `json:"course_name"`
	GroupName  string    `json:"group_name,omitempty"`
	Level      string    `json:"level,omitempty"`
	Mode       string    `json:"mode"`
	Color      string    `json:"color,omitempty"`
	Teachers   []string  `json:"teachers"`
	Students   []string  `json:"students"`
	Sessions   []Session `json:"sessions"`
}

// Session is one lesson row. Attendance maps a student name (as written in
// the header) to an attendance status.
type Session struct {
	Row        int               `json:"row"`
	Date       string            `json:"date"` // DD.MM.YYYY
	StartTime  string            `json:"start_time,omitempty"`
	EndTime    string            `json:"end_time,omitempty"`
	Teacher    string            `json:"teacher"`
	Title      string            `json:"title"`
	Status     string            `json:"status"`
	Attendance map[string]string `json:"attendance,omitempty"`
}

// DateRange returns the earliest and latest session dates, or blanks when
// there are no sessions.
func (s Schedule) DateRange() (first, last string) {
	var lo, hi time.Time
	for _, sess := range s.Sessions {
		t, err := models.ParseDate(sess.Date)
		if err != nil {
			continue
		}
		if lo.IsZero() || t.Before(lo) {
			lo, first = t, sess.Date
		}
		if hi.IsZero() || t.After(hi) {
			hi, last = t, sess.Date
		}
	}
	return first, last
}

// Parse validates the workbook and reads it into a Schedule. Sessions dated
// before now's day are marked completed. Any validation problem returns a
// *ValidationError carrying every error.
func Parse(data []byte, filename string, now time.Time) (*Schedule, error) {
	sh, err := open(data, filename)
	if err != nil {
		return nil, err
	}
	defer sh.file.Close()

	if rep := sh.validate(); !rep.Valid() {
		return nil, &ValidationError{Filename: filename, Errors: rep.Errors}
	}

	info := FromFilename(filename)
	sched := &Schedule{
		Filename:   filename,
		CourseName: info.CourseName,
		GroupName:  info.Group,
		Level:      info.Level,
		Mode:       info.Mode,
		Color:      sh.headerColor(),
		Teachers:   []string{},
		Students:   []string{},
	}

	seenStudent := map[string]bool{}
	for _, st := range sh.students {
		key := normalize.Key(st.name)
		if seenStudent[key] {
			continue
		}
		seenStudent[key] = true
		sched.Students = append(sched.Students, st.name)
	}

	seenTeacher := map[string]bool{}
	rows, numbers := sh.body()
	for i, row := range rows {
		date, _ := parseDate(sh.cell(row, colDate))
		teacher := normalize.Name(sh.cell(row, colTeacher))
		sess := Session{
			Row:       numbers[i],
			Date:      date.Format(models.DateLayout),
			StartTime: normalizeTime(sh.cell(row, colStart)),
			EndTime:   normalizeTime(sh.cell(row, colEnd)),
			Teacher:   teacher,
			Title:     strings.TrimSpace(sh.cell(row, colTitle)),
			Status:    models.SessionStatusFor(date, now),
		}
		for _, st := range sh.students {
			if mark := attendanceMark(cellAt(row, st.index)); mark != "" {
				if sess.Attendance == nil {
					sess.Attendance = map[string]string{}
				}
				sess.Attendance[st.name] = mark
			}
		}
		if key := normalize.Key(teacher); !seenTeacher[key] {
			seenTeacher[key] = true
			sched.Teachers = append(sched.Teachers, teacher)
		}
		sched.Sessions = append(sched.Sessions, sess)
	}
	return sched, nil
}

// FileInfo is what a schedule's filename says about its course.
type FileInfo struct {
	Group      string
	Level      string
	Mode       string
	CourseName string
}

var (
	groupRE = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9])([GPI])\s?(\d{1,4})(?:[^A-Za-z0-9.]|$)`)
	levelRE = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9])([ABC][12](?:[.,][12])?)(?:[^A-Za-z0-9]|$)`)
	modeRE  = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(online|präsenz|praesenz|prasenz|hybrid)(?:[^\p{L}]|$)`)
)

// FromFilename infers the group token ("G12"), level ("A1.1") and mode from
// a filename such as "G12 A1.1 präsenz.xlsx". Mode defaults to online.
func FromFilename(filename string) FileInfo {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var info FileInfo
	if m := groupRE.FindStringSubmatch(base); m != nil {
		info.Group = strings.ToUpper(m[1]) + m[2]
	}
	if m := levelRE.FindStringSubmatch(base); m != nil {
		info.Level = normalize.Level(strings.ReplaceAll(m[1], ",", "."))
	}
	mode := ""
	if m := modeRE.FindStringSubmatch(base); m != nil {
		mode = m[1]
	}
	info.Mode = normalize.Mode(mode)

	switch {
	case info.Group != "" && info.Level != "":
		info.CourseName = info.Group + " " + info.Level
	case info.Group != "":
		info.CourseName = info.Group
	default:
		info.CourseName = normalize.Name(strings.NewReplacer("_", " ", "-", " ").Replace(base))
	}
	return info
}
