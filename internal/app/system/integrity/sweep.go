// internal/app/system/integrity/sweep.go
package integrity

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dalemusser/coursedesk/internal/app/store/audit"
	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// SweepResult counts what one sweep did to one collection.
type SweepResult struct {
	Collection string `json:"collection"`
	Scanned    int    `json:"scanned"`
	Deleted    int    `json:"deleted"`
	Failed     int    `json:"failed"`
}

// CleanupEmptyGroups deletes every group whose course_ids is empty or absent.
func (s *Service) CleanupEmptyGroups(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, models.CollGroups, func(doc records.Doc) bool {
		return len(docIDs(doc, "course_ids")) == 0
	})
}

// CleanupOrphanedStudents deletes every student left without a course.
// Blank entries in course_ids do not count as courses.
func (s *Service) CleanupOrphanedStudents(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, models.CollStudents, func(doc records.Doc) bool {
		return len(docIDs(doc, "course_ids")) == 0
	})
}

// CleanupEmptyMonths deletes every month with no sessions or no courses.
func (s *Service) CleanupEmptyMonths(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, models.CollMonths, func(doc records.Doc) bool {
		return docInt(doc, "session_count") <= 0 || len(docIDs(doc, "course_ids")) == 0
	})
}

// SweepAll runs every sweep. A scan failure in one collection does not stop
// the others; the failures are joined into the returned error.
func (s *Service) SweepAll(ctx context.Context) ([]SweepResult, error) {
	sweeps := []func(context.Context) (SweepResult, error){
		s.CleanupEmptyGroups,
		s.CleanupOrphanedStudents,
		s.CleanupEmptyMonths,
	}
	var (
		results []SweepResult
		errs    []error
	)
	details := map[string]string{}
	for _, sweep := range sweeps {
		res, err := sweep(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		results = append(results, res)
		details[res.Collection+"_deleted"] = strconv.Itoa(res.Deleted)
		if res.Failed > 0 {
			details[res.Collection+"_failed"] = strconv.Itoa(res.Failed)
		}
	}
	err := errors.Join(errs...)
	s.opts.Audit.Integrity(ctx, audit.EventSweepCompleted, "", "", details, err)
	return results, err
}

// sweep deletes every record in collection that orphaned reports true for.
// Individual delete failures are logged and counted; the scan continues.
func (s *Service) sweep(ctx context.Context, collection string, orphaned func(records.Doc) bool) (SweepResult, error) {
	res := SweepResult{Collection: collection}
	docs, err := s.store.GetAll(ctx, collection)
	if err != nil {
		return res, fmt.Errorf("sweep %s: %w", collection, err)
	}
	res.Scanned = len(docs)
	for _, doc := range docs {
		if !orphaned(doc) {
			continue
		}
		id := records.DocID(doc)
		if err := s.store.Delete(ctx, collection, id); err != nil {
			res.Failed++
			s.log.Warn("sweep delete failed",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		res.Deleted++
	}
	if res.Deleted > 0 || res.Failed > 0 {
		s.log.Info("sweep finished",
			zap.String("collection", collection),
			zap.Int("scanned", res.Scanned),
			zap.Int("deleted", res.Deleted),
			zap.Int("failed", res.Failed))
	}
	return res, nil
}

// docIDs reads a string-list field, skipping blanks and non-strings.
func docIDs(doc records.Doc, field string) []string {
	var items []any
	switch v := doc[field].(type) {
	case bson.A:
		items = v
	case []any:
		items = v
	case []string:
		for _, id := range v {
			items = append(items, id)
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := item.(string); ok && id != "" {
			out = append(out, id)
		}
	}
	return out
}

// docInt reads a numeric field whatever width the backend decoded it as.
func docInt(doc records.Doc, field string) int {
	switch v := doc[field].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
