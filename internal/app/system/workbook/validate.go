// internal/app/system/workbook/validate.go
package workbook

import (
	"fmt"
	"strings"
)

// Validate checks a schedule workbook without importing it. Row problems
// are collected into the Report; only a file that cannot be read or has no
// recognizable header returns a *ValidationError.
func Validate(data []byte, filename string) (Report, error) {
	sh, err := open(data, filename)
	if err != nil {
		return Report{}, err
	}
	defer sh.file.Close()
	return sh.validate(), nil
}

func (s *sheet) validate() Report {
	rep := Report{Errors: []string{}}
	rep.MissingTimeColumns = !s.has(colStart) || !s.has(colEnd)

	for _, c := range []column{colDate, colTeacher, colTitle} {
		if !s.has(c) {
			rep.Errors = append(rep.Errors, fmt.Sprintf("missing column %s", columnNames[c]))
		}
	}

	rows, numbers := s.body()
	if len(rows) == 0 {
		rep.Errors = append(rep.Errors, "no session rows below the header")
	}
	for i, row := range rows {
		var missing []string
		if s.has(colDate) && s.cell(row, colDate) == "" {
			missing = append(missing, "date")
		}
		if !rep.MissingTimeColumns {
			if s.cell(row, colStart) == "" {
				missing = append(missing, "start time")
			}
			if s.cell(row, colEnd) == "" {
				missing = append(missing, "end time")
			}
		}
		if s.has(colTeacher) && s.cell(row, colTeacher) == "" {
			missing = append(missing, "teacher")
		}
		if s.has(colTitle) && s.cell(row, colTitle) == "" {
			missing = append(missing, "title")
		}
		if len(missing) > 0 {
			rep.Errors = append(rep.Errors,
				fmt.Sprintf("row %d: missing %s", numbers[i], strings.Join(missing, ", ")))
		}
		if d := s.cell(row, colDate); d != "" {
			if _, err := parseDate(d); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("row %d: %v", numbers[i], err))
			}
		}
	}
	return rep
}
