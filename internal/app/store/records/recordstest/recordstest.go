// internal/app/store/records/recordstest/recordstest.go

// Package recordstest holds the behavior every records.Store backend must
// share. Backend test files call Run with a constructor for a fresh store.
package recordstest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"go.mongodb.org/mongo-driver/bson"
)

// Run exercises newStore against the records.Store contract. Each subtest
// gets its own store.
func Run(t *testing.T, newStore func(t *testing.T) records.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, ctx context.Context, s records.Store)
	}{
		{"RoundTrip", testRoundTrip},
		{"CreateKeepsGivenID", testCreateKeepsGivenID},
		{"GetByIDMissing", testGetByIDMissing},
		{"GetAllMissingCollection", testGetAllMissingCollection},
		{"UpdateMerges", testUpdateMerges},
		{"UpdateMissingRejects", testUpdateMissingRejects},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"QueryByField", testQueryByField},
		{"SetReplaces", testSetReplaces},
		{"Ping", testPing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			tt.fn(t, ctx, newStore(t))
		})
	}
}

func testRoundTrip(t *testing.T, ctx context.Context, s records.Store) {
	created, err := s.Create(ctx, "courses", records.Doc{
		"name":        "B1.1 Abend",
		"student_ids": []string{"s1", "s2"},
		"count":       3,
		"join_dates":  map[string]string{"c1": "01.02.2024"},
		"created_at":  time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := records.DocID(created)
	if id == "" {
		t.Fatal("Create did not assign an id")
	}

	got, err := s.GetByID(ctx, "courses", id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !reflect.DeepEqual(got, created) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, created)
	}
}

func testCreateKeepsGivenID(t *testing.T, ctx context.Context, s records.Store) {
	created, err := s.Create(ctx, "teachers", records.Doc{"_id": "t-fixed", "name": "Anna"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if records.DocID(created) != "t-fixed" {
		t.Errorf("id = %q, want t-fixed", records.DocID(created))
	}
	if _, err := s.Create(ctx, "teachers", records.Doc{"_id": "t-fixed", "name": "Other"}); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func testGetByIDMissing(t *testing.T, ctx context.Context, s records.Store) {
	got, err := s.GetByID(ctx, "courses", "nope")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing record, got %v", got)
	}
}

func testGetAllMissingCollection(t *testing.T, ctx context.Context, s records.Store) {
	got, err := s.GetAll(ctx, "never_written")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func testUpdateMerges(t *testing.T, ctx context.Context, s records.Store) {
	created, err := s.Create(ctx, "students", records.Doc{
		"name":  "Ali",
		"notes": "first",
		"info":  map[string]string{"phone": "1"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := records.DocID(created)

	if err := s.Update(ctx, "students", id, records.Doc{
		"notes": "second",
		"info":  map[string]string{"email": "a@b.c"},
		"_id":   "moved",
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.GetByID(ctx, "students", id)
	if err != nil || got == nil {
		t.Fatalf("GetByID: doc=%v err=%v", got, err)
	}
	if got["name"] != "Ali" {
		t.Errorf("name = %v, want untouched Ali", got["name"])
	}
	if got["notes"] != "second" {
		t.Errorf("notes = %v, want second", got["notes"])
	}
	// Shallow: the nested document is replaced, not merged.
	info, _ := got["info"].(bson.M)
	if _, ok := info["phone"]; ok || info["email"] != "a@b.c" {
		t.Errorf("info = %v, want only email", info)
	}
	if moved, _ := s.GetByID(ctx, "students", "moved"); moved != nil {
		t.Error("update must not move the record")
	}
}

func testUpdateMissingRejects(t *testing.T, ctx context.Context, s records.Store) {
	err := s.Update(ctx, "courses", "nonexistent", records.Doc{"name": "x"})
	if err == nil {
		t.Fatal("expected error updating a missing record")
	}
	if !errors.Is(err, records.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	var nf *records.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "nonexistent" {
		t.Errorf("expected *NotFoundError for nonexistent, got %#v", err)
	}
	if got, _ := s.GetByID(ctx, "courses", "nonexistent"); got != nil {
		t.Error("update must not create a missing record")
	}
}

func testDeleteIdempotent(t *testing.T, ctx context.Context, s records.Store) {
	created, err := s.Create(ctx, "sessions", records.Doc{"date": "01.01.2024"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := records.DocID(created)
	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "sessions", id); err != nil {
			t.Fatalf("Delete #%d failed: %v", i+1, err)
		}
	}
	if err := s.Delete(ctx, "sessions", "never-existed"); err != nil {
		t.Errorf("Delete of missing id failed: %v", err)
	}
	if got, _ := s.GetByID(ctx, "sessions", id); got != nil {
		t.Error("record still present after delete")
	}
}

func testQueryByField(t *testing.T, ctx context.Context, s records.Store) {
	seed := []records.Doc{
		{"_id": "a", "course_id": "c1", "student_ids": []string{"s1", "s2"}},
		{"_id": "b", "course_id": "c2", "student_ids": []string{"s2"}},
		{"_id": "c", "course_id": "c1", "student_ids": []string{}},
	}
	for _, d := range seed {
		if _, err := s.Create(ctx, "things", d); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	tests := []struct {
		field string
		value any
		want  []string
	}{
		{"course_id", "c1", []string{"a", "c"}},
		{"course_id", "zzz", nil},
		{"student_ids", "s2", []string{"a", "b"}},
		{"student_ids", "s1", []string{"a"}},
	}
	for _, tt := range tests {
		docs, err := s.QueryByField(ctx, "things", tt.field, tt.value)
		if err != nil {
			t.Fatalf("QueryByField(%s=%v) failed: %v", tt.field, tt.value, err)
		}
		got := map[string]bool{}
		for _, d := range docs {
			got[records.DocID(d)] = true
		}
		if len(got) != len(tt.want) {
			t.Errorf("QueryByField(%s=%v) = %v, want %v", tt.field, tt.value, got, tt.want)
			continue
		}
		for _, id := range tt.want {
			if !got[id] {
				t.Errorf("QueryByField(%s=%v) missing %s", tt.field, tt.value, id)
			}
		}
	}
}

func testSetReplaces(t *testing.T, ctx context.Context, s records.Store) {
	if err := s.Set(ctx, "months", "2024-03", records.Doc{"session_count": 2, "extra": true}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "months", "2024-03", records.Doc{"session_count": 5}); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}
	got, err := s.GetByID(ctx, "months", "2024-03")
	if err != nil || got == nil {
		t.Fatalf("GetByID: doc=%v err=%v", got, err)
	}
	if records.DocID(got) != "2024-03" {
		t.Errorf("id = %q", records.DocID(got))
	}
	if _, ok := got["extra"]; ok {
		t.Error("Set should replace the whole record")
	}
	if got["session_count"] != int32(5) {
		t.Errorf("session_count = %#v, want int32(5)", got["session_count"])
	}
}

func testPing(t *testing.T, ctx context.Context, s records.Store) {
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
