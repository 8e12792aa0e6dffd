package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("document not found")

// Store persists rendered order documents keyed by purchase-order id and
// path within it.
type Store interface {
	Put(ctx context.Context, poID, path string, content []byte) error
	Get(ctx context.Context, poID, path string) ([]byte, error)
	List(ctx context.Context, poID string) ([]string, error)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func objectKey(poID, path string) string {
	return strings.TrimSpace(poID) + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

func (s *MemoryStore) Put(_ context.Context, poID, path string, content []byte) error {
	poID = strings.TrimSpace(poID)
	path = strings.TrimSpace(path)
	if poID == "" || path == "" {
		return fmt.Errorf("document: po id and path are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectKey(poID, path)] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, poID, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.data[objectKey(poID, path)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), content...), nil
}

func (s *MemoryStore) List(_ context.Context, poID string) ([]string, error) {
	prefix := strings.TrimSpace(poID) + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}
