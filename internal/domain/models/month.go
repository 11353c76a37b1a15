// internal/domain/models/month.go
package models

import "time"

// Month is an aggregate keyed "YYYY-MM", recomputed from the sessions that
// fall into it. It is removable once nothing references it.
type Month struct {
	ID           string   `bson:"_id" json:"id"`
	SessionCount int      `bson:"session_count" json:"session_count"`
	CourseIDs    []string `bson:"course_ids" json:"course_ids"`
	TeacherIDs   []string `bson:"teacher_ids" json:"teacher_ids"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
