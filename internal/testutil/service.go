package testutil

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/cache"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.uber.org/zap"
)

// FixedNow is the clock used by NewService.
var FixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// NewService returns an integrity service over s with a no-op logger, a
// five-minute teacher cache and the clock pinned to FixedNow.
func NewService(s records.Store) *integrity.Service {
	return integrity.New(s, cache.New[string, []models.Teacher](5*time.Minute), zap.NewNop(), integrity.Options{
		Now: func() time.Time { return FixedNow },
	})
}

// Serve runs req through h and returns the recorder.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
