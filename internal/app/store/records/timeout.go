// internal/app/store/records/timeout.go
package records

import (
	"context"
	"time"
)

// WithTimeout wraps s so that every round-trip runs under its own deadline.
// timeout is read on each call, so reconfiguring it takes effect immediately.
// A parent context that already has an earlier deadline keeps it.
func WithTimeout(s Store, timeout func() time.Duration) Store {
	return &deadlineStore{next: s, timeout: timeout}
}

type deadlineStore struct {
	next    Store
	timeout func() time.Duration
}

func (d *deadlineStore) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	t := d.timeout()
	if t <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, t)
}

func (d *deadlineStore) Create(ctx context.Context, collection string, data Doc) (Doc, error) {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.Create(ctx, collection, data)
}

func (d *deadlineStore) Set(ctx context.Context, collection, id string, data Doc) error {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.Set(ctx, collection, id, data)
}

func (d *deadlineStore) GetByID(ctx context.Context, collection, id string) (Doc, error) {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.GetByID(ctx, collection, id)
}

func (d *deadlineStore) GetAll(ctx context.Context, collection string) ([]Doc, error) {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.GetAll(ctx, collection)
}

func (d *deadlineStore) Update(ctx context.Context, collection, id string, patch Doc) error {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.Update(ctx, collection, id, patch)
}

func (d *deadlineStore) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.Delete(ctx, collection, id)
}

func (d *deadlineStore) QueryByField(ctx context.Context, collection, field string, value any) ([]Doc, error) {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.QueryByField(ctx, collection, field, value)
}

func (d *deadlineStore) Ping(ctx context.Context) error {
	ctx, cancel := d.ctx(ctx)
	defer cancel()
	return d.next.Ping(ctx)
}
