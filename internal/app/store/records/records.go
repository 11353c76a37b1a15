// internal/app/store/records/records.go

// Package records is the path-based CRUD adapter every other part of the
// application goes through. A record lives at {collection}/{id}; the backing
// store enforces nothing beyond that, so reference integrity between
// collections is maintained by the integrity service.
package records

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// IDField is the key that holds a record's id inside a Doc.
const IDField = "_id"

// Doc is a single record as the store sees it: a flat map of top-level
// fields, with nested values decoded the way BSON decodes them into bson.M.
type Doc = bson.M

// Store is implemented by each backend (MongoDB, PostgreSQL, in-memory).
type Store interface {
	// Create writes data under a new unique id (or data[IDField] when set)
	// and returns the stored record.
	Create(ctx context.Context, collection string, data Doc) (Doc, error)

	// Set writes data under a caller-chosen id, replacing any existing record.
	Set(ctx context.Context, collection, id string, data Doc) error

	// GetByID returns the record, or nil with no error when it does not exist.
	GetByID(ctx context.Context, collection, id string) (Doc, error)

	// GetAll returns every record in the collection. A missing collection
	// yields an empty slice.
	GetAll(ctx context.Context, collection string) ([]Doc, error)

	// Update shallow-merges patch into the existing record. It returns a
	// *NotFoundError when the record does not exist and never creates one.
	Update(ctx context.Context, collection, id string, patch Doc) error

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, collection, id string) error

	// QueryByField returns records whose field equals value, or whose field
	// is an array containing value.
	QueryByField(ctx context.Context, collection, field string, value any) ([]Doc, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Normalize round-trips data through BSON so that every backend hands back
// the same Go types (int32/int64, primitive.A, primitive.DateTime, bson.M).
func Normalize(data Doc) (Doc, error) {
	if data == nil {
		return Doc{}, nil
	}
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out Doc
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeValue converts a single query value into its stored form.
func NormalizeValue(v any) (any, error) {
	d, err := Normalize(Doc{"v": v})
	if err != nil {
		return nil, err
	}
	return d["v"], nil
}

// DocID returns the id stored in doc, or "" when absent.
func DocID(doc Doc) string {
	id, _ := doc[IDField].(string)
	return id
}

// PatchFields returns a shallow copy of patch minus the id field, so an
// update can never move a record.
func PatchFields(patch Doc) Doc {
	out := make(Doc, len(patch))
	for k, v := range patch {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
