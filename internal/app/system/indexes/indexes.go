// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/coursedesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup when the store is MongoDB. Every reference
field the cascades query by gets an index, so a cascade never scans a whole
collection. Each set is idempotent. Errors are aggregated so any problem is
visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, set := range indexSets() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func asc(name string, fields ...string) mongo.IndexModel {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func indexSets() []indexSet {
	return []indexSet{
		{models.CollCourses, []mongo.IndexModel{
			asc("idx_courses_student_ids", "student_ids"),
			asc("idx_courses_teacher_id", "teacher_id"),
			asc("idx_courses_teacher_ids", "teacher_ids"),
			asc("idx_courses_group_id", "group_id"),
		}},
		{models.CollSessions, []mongo.IndexModel{
			asc("idx_sessions_course_date", "course_id", "date"),
			asc("idx_sessions_teacher_id", "teacher_id"),
			asc("idx_sessions_month_id", "month_id"),
		}},
		{models.CollStudents, []mongo.IndexModel{
			asc("idx_students_course_ids", "course_ids"),
			asc("idx_students_name_ci", "name_ci"),
		}},
		{models.CollTeachers, []mongo.IndexModel{
			asc("idx_teachers_name_ci", "name_ci"),
			asc("idx_teachers_course_ids", "course_ids"),
		}},
		{models.CollGroups, []mongo.IndexModel{
			asc("idx_groups_name_ci", "name_ci"),
			asc("idx_groups_course_ids", "course_ids"),
		}},
		{models.CollMonths, []mongo.IndexModel{
			asc("idx_months_course_ids", "course_ids"),
			asc("idx_months_teacher_ids", "teacher_ids"),
		}},
		{models.CollAuditEvents, []mongo.IndexModel{
			asc("idx_audit_timestamp", "timestamp"),
			asc("idx_audit_entity_timestamp", "entity_id", "timestamp"),
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops the index called oldName and creates m in its place.
func recreate(ctx context.Context, coll *mongo.Collection, oldName string, m mongo.IndexModel) error {
	if _, err := coll.Indexes().DropOne(ctx, oldName); err != nil {
		return fmt.Errorf("drop %s: %w", oldName, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		if isDuplicateKeyErr(err) {
			return errors.New("cannot create unique index (duplicates present)")
		}
		return err
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
		}

		ex, ok := listIndexes(ctx, coll)[desiredSig]
		if !ok {
			_, err := coll.Indexes().CreateOne(ctx, m)
			if err != nil && isOptionsConflictErr(err) {
				// Created concurrently or under another name; reconcile once more.
				ex, ok = listIndexes(ctx, coll)[desiredSig]
			}
			if err != nil && !ok {
				zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}
			if err == nil {
				zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
				continue
			}
		}

		if sameBoolPtr(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
			zap.L().Debug("reusing existing index", append(fields, zap.Duration("took", time.Since(start)))...)
			continue
		}

		// Options or name differ: drop and recreate.
		if err := recreate(ctx, coll, ex.Name, m); err != nil {
			zap.L().Warn("index recreate failed", append(fields, zap.String("from", ex.Name), zap.Error(err))...)
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		zap.L().Info("index dropped and recreated",
			append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
