// internal/domain/models/student.go
package models

import "time"

// Student is enrolled in one or more courses. JoinDates maps a course id to
// the date the student joined that course. A student with no courses left is
// orphaned and gets removed.
type Student struct {
	ID        string            `bson:"_id" json:"id"`
	Name      string            `bson:"name" json:"name"`
	NameCI    string            `bson:"name_ci" json:"name_ci"`
	Info      string            `bson:"info,omitempty" json:"info,omitempty"`
	Notes     string            `bson:"notes,omitempty" json:"notes,omitempty"`
	JoinDates map[string]string `bson:"join_dates,omitempty" json:"join_dates,omitempty"`
	CourseIDs []string          `bson:"course_ids" json:"course_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
