// internal/app/features/imports/upload.go
package imports

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"github.com/dalemusser/coursedesk/internal/app/system/workbook"
	"go.uber.org/zap"
)

var allowedExt = map[string]bool{".xlsx": true, ".xlsm": true}

// validateResponse is returned by POST /api/imports/validate.
type validateResponse struct {
	Filename string `json:"filename"`
	Valid    bool   `json:"valid"`
	workbook.Report
}

// readUpload returns the bytes and base name of the multipart "file" field.
// On failure it writes the response and returns ok=false.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (data []byte, filename string, ok bool) {
	// Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		msg := "workbook file is required"
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			msg = fmt.Sprintf("workbook is too large, the maximum size is %d MB", h.MaxUpload>>20)
		}
		apierr.BadRequest(w, msg)
		return nil, "", false
	}
	defer file.Close()

	filename = filepath.Base(header.Filename)
	if !allowedExt[strings.ToLower(filepath.Ext(filename))] {
		apierr.BadRequest(w, "only .xlsx workbooks can be imported")
		return nil, "", false
	}

	data, err = io.ReadAll(file)
	if err != nil {
		apierr.BadRequest(w, "could not read upload: "+err.Error())
		return nil, "", false
	}
	return data, filename, true
}

// HandleValidate handles POST /api/imports/validate. It reports every problem
// in the file and writes nothing.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	rep, err := workbook.Validate(data, filename)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, validateResponse{
		Filename: filename,
		Valid:    rep.Valid(),
		Report:   rep,
	})
}

// HandleImport handles POST /api/imports. The workbook is validated in full
// before anything is written; an invalid file returns 422 with every error.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	sched, err := workbook.Parse(data, filename, h.Now())
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "schedule import")
	defer cancel()

	res, err := h.Svc.ImportSchedule(ctx, *sched)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("schedule imported",
		zap.String("filename", filename),
		zap.String("course_id", res.CourseID),
		zap.Int("sessions", res.Sessions))
	apierr.JSON(w, http.StatusCreated, res)
}
