// File: internal/usecase/collection.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"

	"course-membership/internal/domain"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/infra/metrics"
)

// RetryPolicy bounds how often a failed flush is repeated.
type RetryPolicy struct {
	Attempts       uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second}
}

func (p RetryPolicy) options() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		b.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		b.MaxInterval = p.MaxBackoff
	}
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return []backoff.RetryOption{backoff.WithBackOff(b), backoff.WithMaxTries(attempts)}
}

// document is the persisted shape of a collection.
type document[T any] struct {
	NextID  int64 `json:"next_id"`
	Records []T   `json:"records"`
}

// collection keeps one record type in memory and flushes the whole set to a
// PersistenceBackend after every mutation. Callers hold the owning store's
// mutex. Records are stored by value; pointer fields inside a record are
// replaced on change, never written through.
type collection[T any] struct {
	name    string
	backend repository.PersistenceBackend
	retry   RetryPolicy
	idOf    func(*T) int64
	setID   func(*T, int64)

	nextID  int64
	records map[int64]T
}

func newCollection[T any](name string, backend repository.PersistenceBackend, retry RetryPolicy, idOf func(*T) int64, setID func(*T, int64)) *collection[T] {
	return &collection[T]{
		name:    name,
		backend: backend,
		retry:   retry,
		idOf:    idOf,
		setID:   setID,
		records: make(map[int64]T),
	}
}

// load replaces the in-memory state with what the backend holds. An empty
// document starts a fresh collection. Only errors wrapping
// domain.ErrPersistenceFailure are retried; a document the backend cannot
// decrypt or otherwise read back fails on the first attempt.
func (c *collection[T]) load(ctx context.Context) error {
	raw, err := backoff.Retry(ctx, func() ([]byte, error) {
		raw, err := c.backend.Load(ctx, c.name)
		if err != nil && !errors.Is(err, domain.ErrPersistenceFailure) {
			return nil, backoff.Permanent(err)
		}
		return raw, err
	}, c.retry.options()...)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", domain.ErrPersistenceFailure, c.name, err)
	}
	c.records = make(map[int64]T)
	c.nextID = 0
	if len(raw) == 0 {
		return nil
	}
	var doc document[T]
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistenceFailure, c.name, err)
	}
	for i := range doc.Records {
		rec := doc.Records[i]
		id := c.idOf(&rec)
		c.records[id] = rec
		if id > c.nextID {
			c.nextID = id
		}
	}
	if doc.NextID > c.nextID {
		c.nextID = doc.NextID
	}
	return nil
}

func (c *collection[T]) get(id int64) (T, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

// list returns every record matching keep, ordered by id.
func (c *collection[T]) list(keep func(*T) bool) []T {
	out := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		if keep == nil || keep(&rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return c.idOf(&out[i]) < c.idOf(&out[j]) })
	return out
}

// insert assigns the next id and commits rec. On error nothing changes.
func (c *collection[T]) insert(ctx context.Context, rec T) (T, error) {
	id := c.nextID + 1
	c.setID(&rec, id)
	if err := c.flush(ctx, id, map[int64]*T{id: &rec}, nil); err != nil {
		var zero T
		return zero, err
	}
	c.records[id] = rec
	c.nextID = id
	return rec, nil
}

// replace commits updated versions of existing records in one flush.
func (c *collection[T]) replace(ctx context.Context, recs ...T) error {
	if len(recs) == 0 {
		return nil
	}
	changed := make(map[int64]*T, len(recs))
	for i := range recs {
		changed[c.idOf(&recs[i])] = &recs[i]
	}
	if err := c.flush(ctx, c.nextID, changed, nil); err != nil {
		return err
	}
	for id, rec := range changed {
		c.records[id] = *rec
	}
	return nil
}

func (c *collection[T]) remove(ctx context.Context, id int64) error {
	if err := c.flush(ctx, c.nextID, nil, map[int64]bool{id: true}); err != nil {
		return err
	}
	delete(c.records, id)
	return nil
}

// flush writes the state the collection would have after applying changed
// and removed. The live map is untouched.
func (c *collection[T]) flush(ctx context.Context, nextID int64, changed map[int64]*T, removed map[int64]bool) error {
	doc := document[T]{NextID: nextID, Records: make([]T, 0, len(c.records)+len(changed))}
	for id, rec := range c.records {
		if removed[id] {
			continue
		}
		if upd, ok := changed[id]; ok {
			doc.Records = append(doc.Records, *upd)
			continue
		}
		doc.Records = append(doc.Records, rec)
	}
	for id, rec := range changed {
		if _, ok := c.records[id]; !ok {
			doc.Records = append(doc.Records, *rec)
		}
	}
	sort.Slice(doc.Records, func(i, j int) bool { return c.idOf(&doc.Records[i]) < c.idOf(&doc.Records[j]) })

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistenceFailure, c.name, err)
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if err := c.backend.Save(ctx, c.name, raw); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, c.retry.options()...)
	if err != nil {
		metrics.IncPersistenceSave(c.backend.Name(), c.name, "error")
		return fmt.Errorf("%w: save %s: %v", domain.ErrPersistenceFailure, c.name, err)
	}
	metrics.IncPersistenceSave(c.backend.Name(), c.name, "ok")
	return nil
}
