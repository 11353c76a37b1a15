// internal/app/store/records/mongostore/mongostore.go

// Package mongostore backs records.Store with one MongoDB collection per
// record collection. Record ids are strings stored in _id.
package mongostore

import (
	"context"
	"errors"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Database exposes the underlying database (index setup, health checks).
func (s *Store) Database() *mongo.Database {
	return s.db
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
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, records.Wrap("create", collection, id, errors.New("duplicate id"))
		}
		return nil, records.Wrap("create", collection, id, err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data records.Doc) error {
	doc := records.PatchFields(data)
	doc[records.IDField] = id
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return records.Wrap("set", collection, id, err)
}

func (s *Store) GetByID(ctx context.Context, collection, id string) (records.Doc, error) {
	var doc records.Doc
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, records.Wrap("get", collection, id, err)
	}
	return doc, nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]records.Doc, error) {
	return s.find(ctx, "get_all", collection, bson.M{})
}

func (s *Store) Update(ctx context.Context, collection, id string, patch records.Doc) error {
	set := records.PatchFields(patch)
	c := s.db.Collection(collection)
	if len(set) == 0 {
		// $set with no fields is rejected by the server; still honor the
		// not-found contract.
		n, err := c.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return records.Wrap("update", collection, id, err)
		}
		if n == 0 {
			return &records.NotFoundError{Collection: collection, ID: id}
		}
		return nil
	}
	res, err := c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return records.Wrap("update", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return &records.NotFoundError{Collection: collection, ID: id}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return records.Wrap("delete", collection, id, err)
}

// QueryByField relies on MongoDB's own array semantics: {field: v} also
// matches arrays that contain v.
func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]records.Doc, error) {
	return s.find(ctx, "query", collection, bson.M{field: value})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) find(ctx context.Context, op, collection string, filter bson.M) ([]records.Doc, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, records.Wrap(op, collection, "", err)
	}
	defer cur.Close(ctx)

	out := []records.Doc{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, records.Wrap(op, collection, "", err)
	}
	return out, nil
}
