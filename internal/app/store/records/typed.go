// internal/app/store/records/typed.go
package records

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// ToDoc encodes a typed record (a models struct) into a Doc.
func ToDoc(v any) (Doc, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var d Doc
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return d, nil
}

// FromDoc decodes doc into out (a pointer to a models struct).
func FromDoc(doc Doc, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Get loads one typed record. It returns nil, nil when the record is absent.
func Get[T any](ctx context.Context, s Store, collection, id string) (*T, error) {
	if id == "" {
		return nil, nil
	}
	doc, err := s.GetByID(ctx, collection, id)
	if err != nil || doc == nil {
		return nil, err
	}
	var v T
	if err := FromDoc(doc, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// MustGet is Get that turns an absent record into a *NotFoundError.
func MustGet[T any](ctx context.Context, s Store, collection, id string) (*T, error) {
	v, err := Get[T](ctx, s, collection, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	return v, nil
}

// All loads every record in a collection.
func All[T any](ctx context.Context, s Store, collection string) ([]T, error) {
	docs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

// Find loads the records matching QueryByField.
func Find[T any](ctx context.Context, s Store, collection, field string, value any) ([]T, error) {
	docs, err := s.QueryByField(ctx, collection, field, value)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

// Insert encodes v and creates it, returning the assigned id.
func Insert(ctx context.Context, s Store, collection string, v any) (string, error) {
	doc, err := ToDoc(v)
	if err != nil {
		return "", err
	}
	created, err := s.Create(ctx, collection, doc)
	if err != nil {
		return "", err
	}
	return DocID(created), nil
}

func decodeAll[T any](docs []Doc) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := FromDoc(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
