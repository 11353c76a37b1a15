// internal/domain/models/collections.go
package models

// Collection names. Each is a flat map from id to document.
const (
	CollCourses     = "courses"
	CollGroups      = "groups"
	CollTeachers    = "teachers"
	CollStudents    = "students"
	CollSessions    = "sessions"
	CollMonths      = "months"
	CollAuditEvents = "audit_events"
)
