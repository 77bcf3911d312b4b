package storage

import (
	"context"
	"strconv"
	"sync"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

type memoryBlob struct {
	data    []byte
	version int64
}

// MemoryStore is an in-process VersionedStore, used by tests and local demos
// テスト・デモ用のメモリ上のストア
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

var _ inventory.VersionedStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob)}
}

// Get returns a copy of the named blob
func (s *MemoryStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	data, _, found, err := s.GetVersioned(ctx, name)
	return data, found, err
}

// GetVersioned returns a copy of the named blob with its version
func (s *MemoryStore) GetVersioned(_ context.Context, name string) ([]byte, string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[name]
	if !ok {
		return nil, "", false, nil
	}
	return append([]byte(nil), b.data...), strconv.FormatInt(b.version, 10), true, nil
}

// Put stores the blob unconditionally
func (s *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.blobs[name]
	s.blobs[name] = memoryBlob{data: append([]byte(nil), data...), version: b.version + 1}
	return nil
}

// PutIfVersion stores the blob if it is still at version ("" means absent)
func (s *MemoryStore) PutIfVersion(_ context.Context, name string, data []byte, version string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[name]
	current := ""
	if ok {
		current = strconv.FormatInt(b.version, 10)
	}
	if current != version {
		return "", inventory.ErrVersionMismatch
	}

	next := b.version + 1
	s.blobs[name] = memoryBlob{data: append([]byte(nil), data...), version: next}
	return strconv.FormatInt(next, 10), nil
}

// Names lists stored blob names
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.blobs))
	for n := range s.blobs {
		names = append(names, n)
	}
	return names
}
