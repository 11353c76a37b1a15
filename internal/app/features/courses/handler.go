// internal/app/features/courses/handler.go
package courses

import (
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"go.uber.org/zap"
)

// Handler is the dependency container for the courses API. Reads go straight
// to the store; every write goes through the integrity service so the
// back-references stay in step.
type Handler struct {
	Svc *integrity.Service
	Log *zap.Logger
}

// NewHandler constructs a courses Handler.
func NewHandler(svc *integrity.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
