// internal/app/system/apierr/apierr.go

// Package apierr maps domain errors onto JSON error responses.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/workbook"
	"go.uber.org/zap"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Status returns the HTTP status for err.
//
//	not found            404
//	workbook validation  422
//	bad input, self-merge 400
//	store failure        502
//	deadline exceeded    504
//	anything else        500
func Status(err error) int {
	var ve *workbook.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case records.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, integrity.ErrInvalidInput), errors.Is(err, integrity.ErrSameRecord):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case records.IsStoreError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write logs err and writes the matching error response. Internal errors are
// not echoed to the client.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	status := Status(err)
	body := Body{Error: err.Error()}

	var ve *workbook.ValidationError
	if errors.As(err, &ve) {
		body.Details = ve.Errors
	}

	switch {
	case status >= 500:
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	default:
		log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	JSON(w, status, body)
}

// MaxJSONBody caps JSON request bodies.
const MaxJSONBody = 1 << 20

// DecodeJSON decodes the request body into v. On failure it writes a 400, or
// a 413 when the body exceeds MaxJSONBody, and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			JSON(w, http.StatusRequestEntityTooLarge, Body{Error: "request body is too large"})
			return false
		}
		BadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, Body{Error: msg})
}

// NotFound writes a 404 with msg.
func NotFound(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusNotFound, Body{Error: msg})
}
