// internal/domain/models/course.go
package models

import "time"

// Course is the central aggregate. Students, teachers and sessions are linked
// by id in both directions; no store enforces that, the integrity service does.
type Course struct {
	ID         string   `bson:"_id" json:"id"`
	Name       string   `bson:"name" json:"name"`
	Level      string   `bson:"level,omitempty" json:"level,omitempty"` // A1.1 .. C2.2
	GroupID    string   `bson:"group_id,omitempty" json:"group_id,omitempty"`
	TeacherID  string   `bson:"teacher_id,omitempty" json:"teacher_id,omitempty"`
	TeacherIDs []string `bson:"teacher_ids,omitempty" json:"teacher_ids,omitempty"`
	StudentIDs []string `bson:"student_ids" json:"student_ids"`
	SessionIDs []string `bson:"session_ids" json:"session_ids"`
	Status     string   `bson:"status,omitempty" json:"status,omitempty"`
	StartDate  string   `bson:"start_date,omitempty" json:"start_date,omitempty"` // DD.MM.YYYY
	EndDate    string   `bson:"end_date,omitempty" json:"end_date,omitempty"`
	SourceURL  string   `bson:"source_url,omitempty" json:"source_url,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AllTeacherIDs returns the scalar teacher_id together with teacher_ids,
// without duplicates or blanks.
func (c Course) AllTeacherIDs() []string {
	seen := make(map[string]bool, len(c.TeacherIDs)+1)
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	add(c.TeacherID)
	for _, id := range c.TeacherIDs {
		add(id)
	}
	return out
}
