package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("catalog: not found")

// Store exposes the supplier / price-list / business-rule records. Reads for
// one generation or merge call go through Snapshot so the three collections
// are taken from the same catalog state.
type Store interface {
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	ListPriceRows(ctx context.Context) ([]PriceRow, error)
	ListBusinessRules(ctx context.Context) ([]BusinessRule, error)
	Snapshot(ctx context.Context) (Snapshot, error)

	CreateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error
	CreatePriceRow(ctx context.Context, r PriceRow) (PriceRow, error)
	DeletePriceRow(ctx context.Context, id string) error
	PutBusinessRule(ctx context.Context, rule BusinessRule) error
	DeleteBusinessRule(ctx context.Context, key string) error
}

// MemoryStore keeps the catalog in process. Used by tests and local runs
// without a configured database.
type MemoryStore struct {
	mu        sync.RWMutex
	suppliers map[string]Supplier
	priceRows map[string]PriceRow
	rules     map[string]string
	seq       int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		suppliers: make(map[string]Supplier),
		priceRows: make(map[string]PriceRow),
		rules:     make(map[string]string),
	}
}

func (m *MemoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *MemoryStore) ListSuppliers(_ context.Context) ([]Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.suppliersLocked(), nil
}

func (m *MemoryStore) ListPriceRows(_ context.Context) ([]PriceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.priceRowsLocked(), nil
}

func (m *MemoryStore) ListBusinessRules(_ context.Context) ([]BusinessRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rulesLocked(), nil
}

// Snapshot reads all three collections under one lock acquisition so the
// returned view is consistent.
func (m *MemoryStore) Snapshot(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Suppliers:     m.suppliersLocked(),
		PriceRows:     m.priceRowsLocked(),
		BusinessRules: m.rulesLocked(),
	}, nil
}

func (m *MemoryStore) suppliersLocked() []Supplier {
	out := make([]Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) priceRowsLocked() []PriceRow {
	out := make([]PriceRow, 0, len(m.priceRows))
	for _, r := range m.priceRows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) rulesLocked() []BusinessRule {
	out := make([]BusinessRule, 0, len(m.rules))
	for k, v := range m.rules {
		out = append(out, BusinessRule{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (m *MemoryStore) CreateSupplier(_ context.Context, s Supplier) (Supplier, error) {
	if strings.TrimSpace(s.Name) == "" {
		return Supplier{}, fmt.Errorf("catalog: supplier name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(s.ID) == "" {
		s.ID = m.nextID("sup")
	}
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *MemoryStore) DeleteSupplier(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[id]; !ok {
		return ErrNotFound
	}
	delete(m.suppliers, id)
	return nil
}

func (m *MemoryStore) CreatePriceRow(_ context.Context, r PriceRow) (PriceRow, error) {
	if strings.TrimSpace(r.SupplierID) == "" || strings.TrimSpace(r.SKU) == "" {
		return PriceRow{}, fmt.Errorf("catalog: price row requires supplier_id and sku")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[r.SupplierID]; !ok {
		return PriceRow{}, fmt.Errorf("catalog: supplier %s: %w", r.SupplierID, ErrNotFound)
	}
	if strings.TrimSpace(r.ID) == "" {
		r.ID = m.nextID("row")
	}
	m.priceRows[r.ID] = r
	return r, nil
}

func (m *MemoryStore) DeletePriceRow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.priceRows[id]; !ok {
		return ErrNotFound
	}
	delete(m.priceRows, id)
	return nil
}

func (m *MemoryStore) PutBusinessRule(_ context.Context, rule BusinessRule) error {
	if strings.TrimSpace(rule.Key) == "" {
		return fmt.Errorf("catalog: business rule key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.Key] = rule.Value
	return nil
}

func (m *MemoryStore) DeleteBusinessRule(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[key]; !ok {
		return ErrNotFound
	}
	delete(m.rules, key)
	return nil
}
