package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("orders: not found")

// Store persists committed purchase orders. Commit writes the header and all
// items as one atomic unit; readers never observe a header without its lines.
type Store interface {
	Commit(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	Get(ctx context.Context, id string) (PurchaseOrder, error)
	List(ctx context.Context) ([]PurchaseOrder, error)
}

// MemoryStore keeps committed orders in process.
type MemoryStore struct {
	mu  sync.RWMutex
	pos map[string]PurchaseOrder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pos: make(map[string]PurchaseOrder)}
}

func (m *MemoryStore) Commit(_ context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	if len(po.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("orders: purchase order has no items")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(po.ID) == "" {
		po.ID = "po-" + uuid.NewString()
	}
	if _, ok := m.pos[po.ID]; ok {
		return PurchaseOrder{}, fmt.Errorf("orders: id %s already committed", po.ID)
	}
	po.Status = StatusCommitted
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}
	// Stored and returned copies must not share an items slice, or callers
	// could mutate the committed record through the return value.
	stored := po
	stored.Items = append([]PoItem(nil), po.Items...)
	m.pos[po.ID] = stored
	po.Items = append([]PoItem(nil), stored.Items...)
	return po, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (PurchaseOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	po, ok := m.pos[strings.TrimSpace(id)]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	po.Items = append([]PoItem(nil), po.Items...)
	return po, nil
}

func (m *MemoryStore) List(_ context.Context) ([]PurchaseOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PurchaseOrder, 0, len(m.pos))
	for _, po := range m.pos {
		po.Items = append([]PoItem(nil), po.Items...)
		out = append(out, po)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
