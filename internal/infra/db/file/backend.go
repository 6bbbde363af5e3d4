package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"course-membership/internal/domain"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/infra/security"
)

var _ repository.PersistenceBackend = (*Backend)(nil)

// Backend writes one file per collection under dir. Writes go to a temp file
// that is synced and renamed over the target, so readers see either the old
// or the new document.
type Backend struct {
	dir    string
	cipher *security.EncryptionService // optional
	mu     sync.Mutex
}

func NewBackend(dir string, cipher *security.EncryptionService) (*Backend, error) {
	if dir == "" {
		return nil, fmt.Errorf("file backend: %w: empty directory", domain.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("file backend: create %s: %w", dir, err)
	}
	return &Backend{dir: dir, cipher: cipher}, nil
}

func (b *Backend) Name() string { return "file" }

func (b *Backend) path(collection string) string {
	ext := ".json"
	if b.cipher != nil {
		ext = ".json.enc"
	}
	return filepath.Join(b.dir, collection+ext)
}

func (b *Backend) Load(_ context.Context, collection string) ([]byte, error) {
	raw, err := os.ReadFile(b.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	if b.cipher == nil {
		return raw, nil
	}
	// a corrupt or foreign document is not transient; callers must not retry it
	doc, err := b.cipher.Open(raw, collection)
	if err != nil {
		return nil, fmt.Errorf("file backend: decrypt %s: %w", collection, err)
	}
	return doc, nil
}

func (b *Backend) Save(ctx context.Context, collection string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload := doc
	if b.cipher != nil {
		sealed, err := b.cipher.Seal(doc, collection)
		if err != nil {
			return fmt.Errorf("%w: encrypt %s: %v", domain.ErrPersistenceFailure, collection, err)
		}
		payload = sealed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tmp, err := os.CreateTemp(b.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp file for %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	if err := os.Rename(tmpName, b.path(collection)); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return nil
}
