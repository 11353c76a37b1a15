// internal/domain/models/session.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Session status values.
const (
	SessionCompleted = "completed"
	SessionScheduled = "scheduled"
)

// Attendance status values.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceExcused = "excused"
)

// AttendanceEntry is one student's attendance for a session. Older records
// store a bare status string instead of an object; both decode.
type AttendanceEntry struct {
	Status  string `bson:"status" json:"status"`
	Comment string `bson:"comment,omitempty" json:"comment,omitempty"`
}

// attendanceFields has AttendanceEntry's layout without its decode methods.
type attendanceFields struct {
	Status  string `bson:"status" json:"status"`
	Comment string `bson:"comment,omitempty" json:"comment,omitempty"`
}

// UnmarshalBSONValue accepts a status string or a {status, comment} document.
func (a *AttendanceEntry) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.String:
		s, _, ok := bsoncore.ReadString(data)
		if !ok {
			return fmt.Errorf("attendance: malformed string value")
		}
		*a = AttendanceEntry{Status: s}
	case bsontype.EmbeddedDocument:
		var f attendanceFields
		if err := bson.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("attendance: %w", err)
		}
		*a = AttendanceEntry(f)
	case bsontype.Null, bsontype.Undefined:
		*a = AttendanceEntry{}
	default:
		return fmt.Errorf("attendance: cannot decode %s", t)
	}
	return nil
}

// UnmarshalJSON accepts the same two shapes as UnmarshalBSONValue.
func (a *AttendanceEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AttendanceEntry{Status: s}
		return nil
	}
	var f attendanceFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = AttendanceEntry(f)
	return nil
}

// Session is a single scheduled lesson. It belongs to exactly one course and
// is deleted with it. MonthID is the "YYYY-MM" key of the month aggregate.
type Session struct {
	ID         string                     `bson:"_id" json:"id"`
	CourseID   string                     `bson:"course_id" json:"course_id"`
	TeacherID  string                     `bson:"teacher_id,omitempty" json:"teacher_id,omitempty"`
	MonthID    string                     `bson:"month_id" json:"month_id"`
	Date       string                     `bson:"date" json:"date"` // DD.MM.YYYY
	StartTime  string                     `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime    string                     `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Title      string                     `bson:"title,omitempty" json:"title,omitempty"`
	Status     string                     `bson:"status" json:"status"`
	Attendance map[string]AttendanceEntry `bson:"attendance,omitempty" json:"attendance,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DateLayout is the DD.MM.YYYY format session dates are stored in.
const DateLayout = "02.01.2006"

// ParseDate parses a DD.MM.YYYY session date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// MonthOf returns the "YYYY-MM" id of the month aggregate a date falls in.
func MonthOf(date time.Time) string {
	return date.Format("2006-01")
}

// SessionStatusFor is completed for a date before now's calendar day and
// scheduled otherwise.
func SessionStatusFor(date, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return SessionCompleted
	}
	return SessionScheduled
}
