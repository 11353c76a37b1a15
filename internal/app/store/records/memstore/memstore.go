// internal/app/store/records/memstore/memstore.go

// Package memstore is an in-process records.Store. Records are held as BSON
// bytes so callers never share mutable state with the store.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

type Store struct {
	mu    sync.RWMutex
	colls map[string]map[string][]byte
	newID func() string
}

// New returns an empty store that assigns uuid ids.
func New() *Store {
	return &Store{
		colls: make(map[string]map[string][]byte),
		newID: uuid.NewString,
	}
}

// WithIDFunc overrides id generation. Tests use it for predictable ids.
func (s *Store) WithIDFunc(fn func() string) *Store {
	s.newID = fn
	return s
}

func (s *Store) Create(ctx context.Context, collection string, data records.Doc) (records.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, records.Wrap("create", collection, "", err)
	}
	doc, err := records.Normalize(data)
	if err != nil {
		return nil, records.Wrap("create", collection, "", err)
	}
	id := records.DocID(doc)
	if id == "" {
		id = s.newID()
		doc[records.IDField] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.coll(collection)
	if _, exists := coll[id]; exists {
		return nil, records.Wrap("create", collection, id, fmt.Errorf("duplicate id"))
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, records.Wrap("create", collection, id, err)
	}
	coll[id] = raw
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data records.Doc) error {
	if err := ctx.Err(); err != nil {
		return records.Wrap("set", collection, id, err)
	}
	doc := records.PatchFields(data)
	doc[records.IDField] = id
	raw, err := bson.Marshal(doc)
	if err != nil {
		return records.Wrap("set", collection, id, err)
	}
	s.mu.Lock()
	s.coll(collection)[id] = raw
	s.mu.Unlock()
	return nil
}

func (s *Store) GetByID(ctx context.Context, collection, id string) (records.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, records.Wrap("get", collection, id, err)
	}
	s.mu.RLock()
	raw, ok := s.colls[collection][id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	doc, err := decode(raw)
	return doc, records.Wrap("get", collection, id, err)
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]records.Doc, error) {
	return s.scan(ctx, "get_all", collection, func(records.Doc) bool { return true })
}

func (s *Store) Update(ctx context.Context, collection, id string, patch records.Doc) error {
	if err := ctx.Err(); err != nil {
		return records.Wrap("update", collection, id, err)
	}
	fields, err := records.Normalize(records.PatchFields(patch))
	if err != nil {
		return records.Wrap("update", collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.colls[collection][id]
	if !ok {
		return &records.NotFoundError{Collection: collection, ID: id}
	}
	doc, err := decode(raw)
	if err != nil {
		return records.Wrap("update", collection, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	raw, err = bson.Marshal(doc)
	if err != nil {
		return records.Wrap("update", collection, id, err)
	}
	s.colls[collection][id] = raw
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return records.Wrap("delete", collection, id, err)
	}
	s.mu.Lock()
	delete(s.colls[collection], id)
	s.mu.Unlock()
	return nil
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]records.Doc, error) {
	want, err := records.NormalizeValue(value)
	if err != nil {
		return nil, records.Wrap("query", collection, "", err)
	}
	return s.scan(ctx, "query", collection, func(d records.Doc) bool {
		return matches(d[field], want)
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of records in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[collection])
}

// scan returns matching docs ordered by id so results are stable.
func (s *Store) scan(ctx context.Context, op, collection string, keep func(records.Doc) bool) ([]records.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, records.Wrap(op, collection, "", err)
	}
	s.mu.RLock()
	coll := s.colls[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raws := make([][]byte, 0, len(ids))
	for _, id := range ids {
		raws = append(raws, coll[id])
	}
	s.mu.RUnlock()

	out := make([]records.Doc, 0, len(raws))
	for _, raw := range raws {
		doc, err := decode(raw)
		if err != nil {
			return nil, records.Wrap(op, collection, "", err)
		}
		if keep(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) coll(name string) map[string][]byte {
	c, ok := s.colls[name]
	if !ok {
		c = make(map[string][]byte)
		s.colls[name] = c
	}
	return c
}

func decode(raw []byte) (records.Doc, error) {
	var doc records.Doc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// matches mirrors MongoDB equality: a scalar compares directly, an array
// matches when any element does.
func matches(got, want any) bool {
	if got == nil {
		return want == nil
	}
	if reflect.DeepEqual(got, want) {
		return true
	}
	if arr, ok := got.(bson.A); ok {
		for _, el := range arr {
			if reflect.DeepEqual(el, want) {
				return true
			}
		}
	}
	return false
}
