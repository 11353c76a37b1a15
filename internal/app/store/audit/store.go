// internal/app/store/audit/store.go
package audit

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/domain/models"
)

// Event categories
const (
	CategoryIntegrity = "integrity"
	CategoryImport    = "import"
)

// Event types
const (
	EventCourseCreated    = "course_created"
	EventCourseDeleted    = "course_deleted"
	EventStudentDeleted   = "student_deleted"
	EventStudentUpdated   = "student_updated"
	EventTeacherDeleted   = "teacher_deleted"
	EventSessionDeleted   = "session_deleted"
	EventGroupDeleted     = "group_deleted"
	EventStudentsMerged   = "students_merged"
	EventTeachersMerged   = "teachers_merged"
	EventSweepCompleted   = "sweep_completed"
	EventScheduleImported = "schedule_imported"
)

// Event represents an audit event.
type Event struct {
	ID        string    `bson:"_id" json:"id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	// Event classification
	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// What was touched
	Entity   string `bson:"entity,omitempty" json:"entity,omitempty"` // collection name
	EntityID string `bson:"entity_id,omitempty" json:"entity_id,omitempty"`

	// Outcome
	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// Store manages audit event records.
type Store struct {
	s records.Store
}

// New creates a new audit Store.
func New(s records.Store) *Store {
	return &Store{s: s}
}

// Log stores an event, stamping the timestamp if it is unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.ID = ""
	_, err := records.Insert(ctx, s.s, models.CollAuditEvents, event)
	return err
}

// ByEntity returns the events for one record, most recent first.
func (s *Store) ByEntity(ctx context.Context, entityID string, limit int) ([]Event, error) {
	events, err := records.Find[Event](ctx, s.s, models.CollAuditEvents, "entity_id", entityID)
	if err != nil {
		return nil, err
	}
	return newestFirst(events, limit), nil
}

// Recent returns the most recent events.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	events, err := records.All[Event](ctx, s.s, models.CollAuditEvents)
	if err != nil {
		return nil, err
	}
	return newestFirst(events, limit), nil
}

func newestFirst(events []Event, limit int) []Event {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}
