// internal/app/features/imports/handler.go
package imports

import (
	"time"

	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"go.uber.org/zap"
)

// DefaultMaxUpload caps an uploaded workbook at 10 MiB.
const DefaultMaxUpload int64 = 10 << 20

// Handler validates and imports schedule workbooks.
type Handler struct {
	Svc       *integrity.Service
	Log       *zap.Logger
	MaxUpload int64
	Now       func() time.Time
}

// NewHandler constructs an imports Handler. maxUpload <= 0 uses
// DefaultMaxUpload.
func NewHandler(svc *integrity.Service, maxUpload int64, logger *zap.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		Svc:       svc,
		Log:       logger,
		MaxUpload: maxUpload,
		Now:       time.Now,
	}
}
