// internal/app/system/integrity/service.go

// Package integrity keeps the references between courses, groups, teachers,
// students, sessions and months consistent. The record store enforces no
// relationships, so every write that touches more than one record goes
// through this service: cascade deletes, orphan sweeps, merges, and the
// linking writes made when courses are created or imported.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/auditlog"
	"github.com/dalemusser/coursedesk/internal/app/system/cache"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TeachersKey is the cache key the full teacher list is stored under.
const TeachersKey = "teachers"

// DefaultConcurrency bounds the number of store writes a single operation
// issues in parallel.
const DefaultConcurrency = 8

// JoinDatePolicy picks which student's join date survives a merge when both
// records joined the same course.
type JoinDatePolicy string

const (
	JoinDatePrimary   JoinDatePolicy = "primary"
	JoinDateSecondary JoinDatePolicy = "secondary"
)

// ParseJoinDatePolicy validates a configured policy name.
func ParseJoinDatePolicy(s string) (JoinDatePolicy, error) {
	switch JoinDatePolicy(s) {
	case "", JoinDatePrimary:
		return JoinDatePrimary, nil
	case JoinDateSecondary:
		return JoinDateSecondary, nil
	default:
		return "", fmt.Errorf("unknown join date policy %q (want primary or secondary)", s)
	}
}

var (
	// ErrSameRecord is returned when a record is merged into itself.
	ErrSameRecord = errors.New("cannot merge a record into itself")

	// ErrInvalidInput is wrapped by errors caused by bad caller input
	// (blank names, malformed dates).
	ErrInvalidInput = errors.New("invalid input")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// TeacherCache holds the teacher list for dedupe lookups. Every write that
// changes a teacher invalidates it.
type TeacherCache interface {
	Get(key string) ([]models.Teacher, bool)
	Set(key string, teachers []models.Teacher)
	Generation() uint64
	SetIfCurrent(key string, teachers []models.Teacher, gen uint64) bool
	Invalidate(key string)
	InvalidateAll()
}

// Options configures a Service.
type Options struct {
	JoinDatePolicy JoinDatePolicy
	Audit          *auditlog.Logger
	Concurrency    int
	Now            func() time.Time
}

// Service is the single owner of cross-record invariants.
type Service struct {
	store    records.Store
	teachers TeacherCache
	log      *zap.Logger
	opts     Options
}

// New creates a Service. A nil cache disables teacher caching.
func New(store records.Store, teachers TeacherCache, logger *zap.Logger, opts Options) *Service {
	if teachers == nil {
		teachers = cache.New[string, []models.Teacher](0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.JoinDatePolicy == "" {
		opts.JoinDatePolicy = JoinDatePrimary
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, teachers: teachers, log: logger, opts: opts}
}

// Store exposes the underlying record store for read-only handlers.
func (s *Service) Store() records.Store {
	return s.store
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}

// each runs fn for every id with bounded parallelism. The first error
// cancels the remaining calls and is returned; writes already made persist.
func (s *Service) each(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error) error {
	if len(ids) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, id := range ids {
		g.Go(func() error { return fn(gctx, id) })
	}
	return g.Wait()
}

// Teachers returns the teacher list, served from the cache when fresh. A
// list loaded while a teacher write invalidated the cache is returned but
// not cached.
func (s *Service) Teachers(ctx context.Context) ([]models.Teacher, error) {
	if list, ok := s.teachers.Get(TeachersKey); ok {
		return list, nil
	}
	gen := s.teachers.Generation()
	list, err := records.All[models.Teacher](ctx, s.store, models.CollTeachers)
	if err != nil {
		return nil, err
	}
	s.teachers.SetIfCurrent(TeachersKey, list, gen)
	return list, nil
}

func (s *Service) invalidateTeachers() {
	s.teachers.Invalidate(TeachersKey)
}

// queryIDs returns the ids of the records matching field == value.
func (s *Service) queryIDs(ctx context.Context, collection, field string, value any) ([]string, error) {
	docs, err := s.store.QueryByField(ctx, collection, field, value)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, records.DocID(d))
	}
	return ids, nil
}

// patch applies an update, stamping updated_at. A record that vanished in
// the meantime is skipped so repeated runs converge.
func (s *Service) patch(ctx context.Context, collection, id string, fields records.Doc) error {
	fields["updated_at"] = s.now()
	err := s.store.Update(ctx, collection, id, fields)
	if records.IsNotFound(err) {
		return nil
	}
	return err
}
