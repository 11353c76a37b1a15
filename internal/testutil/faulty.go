package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/coursedesk/internal/app/store/records"
)

// ErrInjected is the failure FaultyStore returns.
var ErrInjected = errors.New("injected failure")

// FaultyStore wraps a store and fails chosen writes, for exercising
// partial-failure paths.
type FaultyStore struct {
	records.Store

	mu           sync.Mutex
	failDelete   map[string]bool // "collection/id"
	failUpdate   map[string]bool
	failGetAllOf map[string]bool
}

// NewFaultyStore wraps next with no failures configured.
func NewFaultyStore(next records.Store) *FaultyStore {
	return &FaultyStore{
		Store:        next,
		failDelete:   map[string]bool{},
		failUpdate:   map[string]bool{},
		failGetAllOf: map[string]bool{},
	}
}

// FailDelete makes Delete(collection, id) fail.
func (f *FaultyStore) FailDelete(collection, id string) {
	f.mu.Lock()
	f.failDelete[collection+"/"+id] = true
	f.mu.Unlock()
}

// FailUpdate makes Update(collection, id) fail.
func (f *FaultyStore) FailUpdate(collection, id string) {
	f.mu.Lock()
	f.failUpdate[collection+"/"+id] = true
	f.mu.Unlock()
}

// FailGetAll makes GetAll(collection) fail.
func (f *FaultyStore) FailGetAll(collection string) {
	f.mu.Lock()
	f.failGetAllOf[collection] = true
	f.mu.Unlock()
}

// Heal clears all configured failures.
func (f *FaultyStore) Heal() {
	f.mu.Lock()
	f.failDelete = map[string]bool{}
	f.failUpdate = map[string]bool{}
	f.failGetAllOf = map[string]bool{}
	f.mu.Unlock()
}

func (f *FaultyStore) Delete(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	fail := f.failDelete[collection+"/"+id]
	f.mu.Unlock()
	if fail {
		return records.Wrap("delete", collection, id, ErrInjected)
	}
	return f.Store.Delete(ctx, collection, id)
}

func (f *FaultyStore) Update(ctx context.Context, collection, id string, patch records.Doc) error {
	f.mu.Lock()
	fail := f.failUpdate[collection+"/"+id]
	f.mu.Unlock()
	if fail {
		return records.Wrap("update", collection, id, ErrInjected)
	}
	return f.Store.Update(ctx, collection, id, patch)
}

func (f *FaultyStore) GetAll(ctx context.Context, collection string) ([]records.Doc, error) {
	f.mu.Lock()
	fail := f.failGetAllOf[collection]
	f.mu.Unlock()
	if fail {
		return nil, records.Wrap("get_all", collection, "", ErrInjected)
	}
	return f.Store.GetAll(ctx, collection)
}
