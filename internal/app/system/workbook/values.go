// internal/app/system/workbook/values.go
package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/xuri/excelize/v2"
)

// dateLayouts are the forms dates show up in, after DD.MM.YYYY: short
// years, ISO dates, and excelize's rendering of the default date format.
var dateLayouts = []string{
	models.DateLayout,
	"2.1.2006",
	"02.01.06",
	"2.1.06",
	"2006-01-02",
	"01-02-06",
	"1/2/2006",
	"1/2/06",
}

// parseDate reads a date cell. Leading weekday names ("Mo, 15.01.2024") and
// raw Excel serial numbers are accepted.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, ", "); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want DD.MM.YYYY)", s)
}

// normalizeTime renders "9:00", "09:00:00", "9.00" and day fractions as
// "09:00". Unrecognized input is returned trimmed.
func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"15:04", "15:04:05", "15.04", "3:04 PM", "3:04:05 PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	if frac, err := strconv.ParseFloat(s, 64); err == nil && frac >= 0 && frac < 1 {
		mins := int(frac*24*60 + 0.5)
		return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
	}
	return s
}

var marks = map[string]string{
	"x":            models.AttendancePresent,
	"1":            models.AttendancePresent,
	"✓":            models.AttendancePresent,
	"✔":            models.AttendancePresent,
	"anwesend":     models.AttendancePresent,
	"present":      models.AttendancePresent,
	"-":            models.AttendanceAbsent,
	"0":            models.AttendanceAbsent,
	"abwesend":     models.AttendanceAbsent,
	"absent":       models.AttendanceAbsent,
	"e":            models.AttendanceExcused,
	"entschuldigt": models.AttendanceExcused,
	"excused":      models.AttendanceExcused,
}

// attendanceMark maps a student cell to an attendance status. Blank and
// unrecognized cells yield "".
func attendanceMark(cell string) string {
	return marks[strings.ToLower(strings.TrimSpace(cell))]
}
