package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/store/records/memstore"
	"github.com/dalemusser/coursedesk/internal/app/system/normalize"
	"github.com/dalemusser/coursedesk/internal/domain/models"
)

// TestContext returns a context with a generous deadline for tests.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// NewMemStore returns an empty in-memory records store.
func NewMemStore() *memstore.Store {
	return memstore.New()
}

// Fixtures seeds typed records straight into a store, bypassing the
// integrity service, so tests can set up inconsistent states on purpose.
type Fixtures struct {
	s records.Store
	t *testing.T
}

// NewFixtures creates a new Fixtures instance for the given store.
func NewFixtures(t *testing.T, s records.Store) *Fixtures {
	t.Helper()
	return &Fixtures{s: s, t: t}
}

// Store returns the underlying store for direct access in tests.
func (f *Fixtures) Store() records.Store {
	return f.s
}

func (f *Fixtures) put(ctx context.Context, collection string, v any) {
	f.t.Helper()
	doc, err := records.ToDoc(v)
	if err != nil {
		f.t.Fatalf("encode %s fixture: %v", collection, err)
	}
	if _, err := f.s.Create(ctx, collection, doc); err != nil {
		f.t.Fatalf("create %s fixture: %v", collection, err)
	}
}

// Course seeds a course with the given id.
func (f *Fixtures) Course(ctx context.Context, c models.Course) models.Course {
	f.t.Helper()
	if c.Name == "" {
		c.Name = "Course " + c.ID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c.UpdatedAt = c.CreatedAt
	}
	f.put(ctx, models.CollCourses, c)
	return c
}

// Group seeds a group.
func (f *Fixtures) Group(ctx context.Context, g models.CourseGroup) models.CourseGroup {
	f.t.Helper()
	if g.Name == "" {
		g.Name = "Group " + g.ID
	}
	g.NameCI = normalize.Key(g.Name)
	f.put(ctx, models.CollGroups, g)
	return g
}

// Teacher seeds a teacher.
func (f *Fixtures) Teacher(ctx context.Context, tc models.Teacher) models.Teacher {
	f.t.Helper()
	if tc.Name == "" {
		tc.Name = "Teacher " + tc.ID
	}
	tc.NameCI = normalize.Key(tc.Name)
	f.put(ctx, models.CollTeachers, tc)
	return tc
}

// Student seeds a student.
func (f *Fixtures) Student(ctx context.Context, s models.Student) models.Student {
	f.t.Helper()
	if s.Name == "" {
		s.Name = "Student " + s.ID
	}
	s.NameCI = normalize.Key(s.Name)
	f.put(ctx, models.CollStudents, s)
	return s
}

// Session seeds a session.
func (f *Fixtures) Session(ctx context.Context, s models.Session) models.Session {
	f.t.Helper()
	if s.Status == "" {
		s.Status = models.SessionScheduled
	}
	f.put(ctx, models.CollSessions, s)
	return s
}

// Month seeds a month aggregate.
func (f *Fixtures) Month(ctx context.Context, m models.Month) models.Month {
	f.t.Helper()
	f.put(ctx, models.CollMonths, m)
	return m
}

// Exists reports whether collection/id is present.
func (f *Fixtures) Exists(ctx context.Context, collection, id string) bool {
	f.t.Helper()
	doc, err := f.s.GetByID(ctx, collection, id)
	if err != nil {
		f.t.Fatalf("GetByID(%s, %s): %v", collection, id, err)
	}
	return doc != nil
}

// Load decodes collection/id into out, failing the test when absent.
func Load[T any](t *testing.T, ctx context.Context, s records.Store, collection, id string) T {
	t.Helper()
	v, err := records.MustGet[T](ctx, s, collection, id)
	if err != nil {
		t.Fatalf("load %s/%s: %v", collection, id, err)
	}
	return *v
}
