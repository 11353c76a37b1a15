// internal/app/system/workbook/workbook.go

// Package workbook reads course schedule spreadsheets. A schedule sheet has
// a header row somewhere near the top naming the date, time, teacher and
// title columns; any further header cells to the right are student names
// whose cells hold attendance marks.
package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerScanRows is how far down the sheet the header row may appear.
const headerScanRows = 20

// Report is the outcome of Validate. Errors lists every problem found, one
// string per row, so a user can fix the whole file in one pass.
type Report struct {
	Errors             []string `json:"errors"`
	MissingTimeColumns bool     `json:"missing_time_columns"`
}

// Valid reports whether the file can be imported.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// ValidationError rejects a workbook as a whole.
type ValidationError struct {
	Filename string
	Errors   []string
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return fmt.Sprintf("%s: invalid workbook", e.Filename)
	case 1:
		return fmt.Sprintf("%s: %s", e.Filename, e.Errors[0])
	default:
		return fmt.Sprintf("%s: %s (and %d more problems)", e.Filename, e.Errors[0], len(e.Errors)-1)
	}
}

type column int

const (
	colTitle column = iota
	colDate
	colTeacher
	colStart
	colEnd
	numColumns
)

var columnNames = [numColumns]string{
	colTitle:   "Folien/Thema",
	colDate:    "Datum/Unterrichtstag",
	colTeacher: "Lehrer",
	colStart:   "von",
	colEnd:     "bis",
}

// labels maps a folded header label to its column.
var labels = map[string]column{
	"folien":         colTitle,
	"thema":          colTitle,
	"datum":          colDate,
	"unterrichtstag": colDate,
	"lehrer":         colTeacher,
	"lehrerin":       colTeacher,
	"lehrer/in":      colTeacher,
	"von":            colStart,
	"bis":            colEnd,
}

func labelFor(cell string) (column, bool) {
	key := strings.ToLower(strings.TrimSpace(cell))
	key = strings.TrimSuffix(key, ":")
	c, ok := labels[key]
	return c, ok
}

// sheet is the located header plus the rows beneath it.
type sheet struct {
	file      *excelize.File
	name      string
	headerRow int // 0-based
	cols      [numColumns]int
	students  []studentColumn
	rows      [][]string
}

type studentColumn struct {
	index int
	name  string
}

func (s *sheet) has(c column) bool {
	return s.cols[c] >= 0
}

func (s *sheet) cell(row []string, c column) string {
	i := s.cols[c]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// open reads the first worksheet and locates its header row.
func open(data []byte, filename string) (*sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Filename: filename, Errors: []string{
			fmt.Sprintf("cannot read workbook: %v", err),
		}}
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, &ValidationError{Filename: filename, Errors: []string{"workbook has no sheets"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, &ValidationError{Filename: filename, Errors: []string{
			fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err),
		}}
	}

	sh := &sheet{file: f, name: sheets[0], rows: rows, headerRow: -1}
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if sh.tryHeader(rows[i]) {
			sh.headerRow = i
			break
		}
	}
	if sh.headerRow < 0 {
		_ = f.Close()
		return nil, &ValidationError{Filename: filename, Errors: []string{
			fmt.Sprintf("no header row with %s or %s in the first %d rows",
				columnNames[colTitle], columnNames[colDate], headerScanRows),
		}}
	}
	return sh, nil
}

// tryHeader records the column layout when row looks like a header: it must
// name the title or date column plus at least one other known column.
func (s *sheet) tryHeader(row []string) bool {
	var cols [numColumns]int
	for i := range cols {
		cols[i] = -1
	}
	found, last := 0, -1
	for i, cell := range row {
		c, ok := labelFor(cell)
		if !ok || cols[c] >= 0 {
			continue
		}
		cols[c] = i
		found++
		last = i
	}
	if (cols[colTitle] < 0 && cols[colDate] < 0) || found < 2 {
		return false
	}
	s.cols = cols
	s.students = nil
	for i := last + 1; i < len(row); i++ {
		name := strings.Join(strings.Fields(row[i]), " ")
		if name == "" {
			continue
		}
		if _, known := labelFor(name); known {
			continue
		}
		s.students = append(s.students, studentColumn{index: i, name: name})
	}
	return true
}

// body returns the rows beneath the header with their 1-based sheet row
// numbers, skipping blank rows.
func (s *sheet) body() (rows [][]string, numbers []int) {
	for i := s.headerRow + 1; i < len(s.rows); i++ {
		if s.blank(s.rows[i]) {
			continue
		}
		rows = append(rows, s.rows[i])
		numbers = append(numbers, i+1)
	}
	return rows, numbers
}

func (s *sheet) blank(row []string) bool {
	for c := column(0); c < numColumns; c++ {
		if s.cell(row, c) != "" {
			return false
		}
	}
	for _, st := range s.students {
		if cellAt(row, st.index) != "" {
			return false
		}
	}
	return true
}

// headerColor returns the fill color of the header row as "#RRGGBB", or ""
// when the header is unfilled.
func (s *sheet) headerColor() string {
	for _, c := range []column{colDate, colTitle, colTeacher} {
		if !s.has(c) {
			continue
		}
		ref, err := excelize.CoordinatesToCellName(s.cols[c]+1, s.headerRow+1)
		if err != nil {
			continue
		}
		idx, err := s.file.GetCellStyle(s.name, ref)
		if err != nil || idx == 0 {
			continue
		}
		style, err := s.file.GetStyle(idx)
		if err != nil || style == nil {
			continue
		}
		for _, color := range style.Fill.Color {
			if hex := hexColor(color); hex != "" {
				return hex
			}
		}
	}
	return ""
}

// hexColor normalizes "FFC000", "#ffc000" and ARGB "FFFFC000" to "#FFC000".
func hexColor(c string) string {
	c = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
	if len(c) == 8 {
		c = c[2:]
	}
	if len(c) != 6 {
		return ""
	}
	for _, r := range c {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return ""
		}
	}
	return "#" + c
}
