package models_test

import (
	"encoding/json"
	"testing"

	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAttendanceEntry_DecodesBothShapes(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id": "s1",
		"attendance": bson.M{
			"a": "present",
			"b": bson.M{"status": "excused", "comment": "sick"},
			"c": nil,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var sess models.Session
	if err := bson.Unmarshal(raw, &sess); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]models.AttendanceEntry{
		"a": {Status: models.AttendancePresent},
		"b": {Status: models.AttendanceExcused, Comment: "sick"},
		"c": {},
	}
	for id, w := range want {
		if got := sess.Attendance[id]; got != w {
			t.Errorf("attendance[%s] = %+v, want %+v", id, got, w)
		}
	}
}

func TestAttendanceEntry_RejectsOtherTypes(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"attendance": bson.M{"a": 42}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var sess models.Session
	if err := bson.Unmarshal(raw, &sess); err == nil {
		t.Errorf("expected an error for a numeric attendance value, got %+v", sess.Attendance)
	}
}

func TestAttendanceEntry_JSON(t *testing.T) {
	var att map[string]models.AttendanceEntry
	body := `{"a": "absent", "b": {"status": "present", "comment": "late"}}`
	if err := json.Unmarshal([]byte(body), &att); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if att["a"] != (models.AttendanceEntry{Status: models.AttendanceAbsent}) {
		t.Errorf("a = %+v", att["a"])
	}
	if att["b"] != (models.AttendanceEntry{Status: models.AttendancePresent, Comment: "late"}) {
		t.Errorf("b = %+v", att["b"])
	}

	// Encoding keeps the object form.
	out, err := json.Marshal(models.AttendanceEntry{Status: models.AttendancePresent})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"status":"present"}` {
		t.Errorf("marshal = %s", out)
	}
}

func TestMonthOf(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"05.03.2024", "2024-03"},
		{" 31.12.2023 ", "2023-12"},
		{"01.01.2025", "2025-01"},
	}
	for _, tt := range tests {
		d, err := models.ParseDate(tt.date)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.date, err)
		}
		if got := models.MonthOf(d); got != tt.want {
			t.Errorf("MonthOf(%q) = %q, want %q", tt.date, got, tt.want)
		}
	}
}
