// internal/domain/models/coursegroup.go
package models

import (
	"strings"
	"time"
	"unicode"
)

// CourseGroup bundles the consecutive courses a class of students takes
// (e.g. "G12" running A1.1 through B1.2). A group with no courses is orphaned.
type CourseGroup struct {
	ID        string   `bson:"_id" json:"id"`
	Name      string   `bson:"name" json:"name"`
	NameCI    string   `bson:"name_ci" json:"name_ci"`
	Color     string   `bson:"color,omitempty" json:"color,omitempty"`
	Mode      string   `bson:"mode,omitempty" json:"mode,omitempty"` // online | präsenz | hybrid
	Type      string   `bson:"type,omitempty" json:"type,omitempty"` // derived from the name prefix
	CourseIDs []string `bson:"course_ids" json:"course_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Group types, derived from the first letter of the group name.
const (
	GroupTypeGroup     = "group"
	GroupTypePrivate   = "private"
	GroupTypeIntensive = "intensive"
	GroupTypeOther     = "other"
)

// GroupTypeFor derives a group's type from its name ("G12" -> group,
// "P3" -> private, "I7" -> intensive).
func GroupTypeFor(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return GroupTypeOther
	}
	switch unicode.ToUpper([]rune(name)[0]) {
	case 'G':
		return GroupTypeGroup
	case 'P':
		return GroupTypePrivate
	case 'I':
		return GroupTypeIntensive
	default:
		return GroupTypeOther
	}
}
