// internal/domain/models/teacher.go
package models

import "time"

type Teacher struct {
	ID        string   `bson:"_id" json:"id"`
	Name      string   `bson:"name" json:"name"`
	NameCI    string   `bson:"name_ci" json:"name_ci"` // folded, whitespace-collapsed
	Country   string   `bson:"country,omitempty" json:"country,omitempty"`
	CourseIDs []string `bson:"course_ids" json:"course_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
