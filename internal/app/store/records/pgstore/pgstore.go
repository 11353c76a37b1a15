// internal/app/store/records/pgstore/pgstore.go

// Package pgstore backs records.Store with a single PostgreSQL table keyed by
// (collection, id). Each body is relaxed Extended JSON in a jsonb column, so
// decoding yields the same types as the MongoDB backend.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type row struct {
	Collection string         `gorm:"primaryKey;size:64"`
	ID         string         `gorm:"primaryKey;size:64"`
	Body       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (row) TableName() string { return "records" }

type Store struct {
	db *gorm.DB
}

// Open connects with the given DSN. Call Migrate before first use.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate runs the embedded goose migrations.
func (s *Store) Migrate(logger *zap.Logger) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("postgres handle: %w", err)
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	logger.Info("postgres migrations applied")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, collection string, data records.Doc) (records.Doc, error) {
	doc, err := records.Normalize(data)
	if err != nil {
		return nil, records.Wrap("create", collection, "", err)
	}
	id := records.DocID(doc)
	if id == "" {
		id = uuid.NewString()
		doc[records.IDField] = id
	}
	body, err := encode(doc)
	if err != nil {
		return nil, records.Wrap("create", collection, id, err)
	}
	r := row{Collection: collection, ID: id, Body: body}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, records.Wrap("create", collection, id, errors.New("duplicate id"))
		}
		return nil, records.Wrap("create", collection, id, err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data records.Doc) error {
	doc := records.PatchFields(data)
	doc[records.IDField] = id
	body, err := encode(doc)
	if err != nil {
		return records.Wrap("set", collection, id, err)
	}
	r := row{Collection: collection, ID: id, Body: body}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&r).Error
	return records.Wrap("set", collection, id, err)
}

func (s *Store) GetByID(ctx context.Context, collection, id string) (records.Doc, error) {
	var r row
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, records.Wrap("get", collection, id, err)
	}
	doc, err := decode(r.Body)
	return doc, records.Wrap("get", collection, id, err)
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]records.Doc, error) {
	var rows []row
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, records.Wrap("get_all", collection, "", err)
	}
	return decodeRows("get_all", collection, rows)
}

// Update merges top-level keys with jsonb concatenation, which is exactly a
// shallow merge.
func (s *Store) Update(ctx context.Context, collection, id string, patch records.Doc) error {
	body, err := encode(records.PatchFields(patch))
	if err != nil {
		return records.Wrap("update", collection, id, err)
	}
	res := s.db.WithContext(ctx).Exec(
		`UPDATE records SET body = body || ?::jsonb, updated_at = ? WHERE collection = ? AND id = ?`,
		string(body), time.Now().UTC(), collection, id,
	)
	if res.Error != nil {
		return records.Wrap("update", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return &records.NotFoundError{Collection: collection, ID: id}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&row{}).Error
	return records.Wrap("delete", collection, id, err)
}

// QueryByField uses jsonb containment. The second form matches arrays that
// contain the value, mirroring MongoDB.
func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]records.Doc, error) {
	scalar, err := encode(records.Doc{field: value})
	if err != nil {
		return nil, records.Wrap("query", collection, "", err)
	}
	inArray, err := encode(records.Doc{field: bson.A{value}})
	if err != nil {
		return nil, records.Wrap("query", collection, "", err)
	}
	var rows []row
	err = s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Where("(body @> ?::jsonb OR body @> ?::jsonb)", string(scalar), string(inArray)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, records.Wrap("query", collection, "", err)
	}
	return decodeRows("query", collection, rows)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func encode(doc records.Doc) ([]byte, error) {
	return bson.MarshalExtJSON(doc, false, false)
}

func decode(body []byte) (records.Doc, error) {
	var doc records.Doc
	if err := bson.UnmarshalExtJSON(body, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeRows(op, collection string, rows []row) ([]records.Doc, error) {
	out := make([]records.Doc, 0, len(rows))
	for _, r := range rows {
		doc, err := decode(r.Body)
		if err != nil {
			return nil, records.Wrap(op, collection, r.ID, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

// Truncate removes every record. Tests use it to start from an empty table.
func (s *Store) Truncate() error {
	return s.db.Exec("TRUNCATE records").Error
}
