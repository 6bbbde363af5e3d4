package memory

import (
	"context"
	"sync"

	"course-membership/internal/domain/ports/repository"
)

var _ repository.PersistenceBackend = (*Backend)(nil)

// Backend keeps documents in process memory. Contents are lost on restart.
type Backend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewBackend() *Backend {
	return &Backend{docs: make(map[string][]byte)}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Load(_ context.Context, collection string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	doc, ok := b.docs[collection]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (b *Backend) Save(_ context.Context, collection string, doc []byte) error {
	cp := make([]byte, len(doc))
	copy(cp, doc)
	b.mu.Lock()
	b.docs[collection] = cp
	b.mu.Unlock()
	return nil
}
