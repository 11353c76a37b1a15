package integrity_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/cache"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/dalemusser/coursedesk/internal/testutil"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	ctx   context.Context
	store records.Store
	fx    *testutil.Fixtures
	svc   *integrity.Service
	cache *cache.TTL[string, []models.Teacher]
}

func newEnv(t *testing.T) *env {
	return newEnvWith(t, testutil.NewMemStore(), integrity.Options{})
}

func newEnvWith(t *testing.T, store records.Store, opts integrity.Options) *env {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	tc := cache.New[string, []models.Teacher](5 * time.Minute)
	return &env{
		ctx:   ctx,
		store: store,
		fx:    testutil.NewFixtures(t, store),
		svc:   integrity.New(store, tc, zap.NewNop(), opts),
		cache: tc,
	}
}

func (e *env) exists(t *testing.T, collection, id string) bool {
	t.Helper()
	return e.fx.Exists(e.ctx, collection, id)
}

func student(t *testing.T, e *env, id string) models.Student {
	t.Helper()
	return testutil.Load[models.Student](t, e.ctx, e.store, models.CollStudents, id)
}

func course(t *testing.T, e *env, id string) models.Course {
	t.Helper()
	return testutil.Load[models.Course](t, e.ctx, e.store, models.CollCourses, id)
}

func session(t *testing.T, e *env, id string) models.Session {
	t.Helper()
	return testutil.Load[models.Session](t, e.ctx, e.store, models.CollSessions, id)
}

func month(t *testing.T, e *env, id string) models.Month {
	t.Helper()
	return testutil.Load[models.Month](t, e.ctx, e.store, models.CollMonths, id)
}

func teacher(t *testing.T, e *env, id string) models.Teacher {
	t.Helper()
	return testutil.Load[models.Teacher](t, e.ctx, e.store, models.CollTeachers, id)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	m := make(map[string]int, len(a))
	for _, v := range a {
		m[v]++
	}
	for _, v := range b {
		m[v]--
		if m[v] < 0 {
			return false
		}
	}
	return true
}
