package maintenance_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/features/maintenance"
	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/system/auditlog"
	"github.com/dalemusser/coursedesk/internal/app/system/cache"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/dalemusser/coursedesk/internal/testutil"
	"go.uber.org/zap"
)

type sweepBody struct {
	Results []integrity.SweepResult `json:"results"`
	Error   string                  `json:"error"`
}

func TestSweepAndAudit(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := testutil.NewMemStore()
	fx := testutil.NewFixtures(t, store)
	auditStore := audit.New(store)
	svc := integrity.New(store, cache.New[string, []models.Teacher](time.Minute), zap.NewNop(), integrity.Options{
		Audit: auditlog.New(auditStore, zap.NewNop(), auditlog.Config{Mode: auditlog.ModeDB}),
	})
	router := maintenance.Routes(maintenance.NewHandler(svc, auditStore, zap.NewNop()))

	fx.Group(ctx, models.CourseGroup{ID: "g-empty", CourseIDs: []string{}})
	fx.Student(ctx, models.Student{ID: "s-orphan", CourseIDs: []string{""}})
	fx.Month(ctx, models.Month{ID: "2024-01", SessionCount: 0, CourseIDs: []string{"c1"}})

	rec := testutil.Serve(router, testutil.NewRequest(http.MethodPost, "/sweep"))
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body sweepBody
	testutil.DecodeJSON(t, rec, &body)
	deleted := 0
	for _, r := range body.Results {
		deleted += r.Deleted
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3 (results %+v)", deleted, body.Results)
	}
	for _, ref := range []struct{ coll, id string }{
		{models.CollGroups, "g-empty"},
		{models.CollStudents, "s-orphan"},
		{models.CollMonths, "2024-01"},
	} {
		if fx.Exists(ctx, ref.coll, ref.id) {
			t.Errorf("%s/%s should be swept", ref.coll, ref.id)
		}
	}

	rec = testutil.Serve(router, testutil.NewRequest(http.MethodGet, "/audit"))
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d", rec.Code)
	}
	var events []audit.Event
	testutil.DecodeJSON(t, rec, &events)
	if len(events) == 0 || events[0].EventType != audit.EventSweepCompleted {
		t.Errorf("events = %+v, want a sweep_completed entry", events)
	}

	rec = testutil.Serve(router, testutil.NewRequest(http.MethodGet, "/audit?limit=zero"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestSweep_ScanFailure(t *testing.T) {
	store := testutil.NewFaultyStore(testutil.NewMemStore())
	store.FailGetAll(models.CollStudents)
	router := maintenance.Routes(maintenance.NewHandler(testutil.NewService(store), nil, zap.NewNop()))

	rec := testutil.Serve(router, testutil.NewRequest(http.MethodPost, "/sweep"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body sweepBody
	testutil.DecodeJSON(t, rec, &body)
	if body.Error == "" {
		t.Error("expected error in body")
	}
	if len(body.Results) == 0 {
		t.Error("the collections that did scan should still report results")
	}

	rec = testutil.Serve(router, testutil.NewRequest(http.MethodGet, "/audit"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("audit without store status = %d, want 404", rec.Code)
	}
}
