package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps the catalog in Postgres via the pgx stdlib driver.
// Snapshot reads run inside a REPEATABLE READ transaction so the three
// collections come from the same catalog state.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	// Snapshots are cached per write generation; any write bumps the
	// generation and later snapshot reads miss the cache.
	genMu         sync.Mutex
	generation    uint64
	snapshotCache *lru.Cache[uint64, Snapshot]
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[uint64, Snapshot](8)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, snapshotCache: cache}, nil
}

// NewFromEnv returns a Postgres-backed store when CATALOG_PG_DSN is set and
// reachable, otherwise an in-process memory store.
func NewFromEnv() Store {
	dsn := strings.TrimSpace(os.Getenv("CATALOG_PG_DSN"))
	if dsn == "" {
		return NewMemoryStore()
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return NewMemoryStore()
	}
	return s
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("catalog: store is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS suppliers (
  supplier_id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS price_rows (
  row_id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL REFERENCES suppliers (supplier_id) ON DELETE CASCADE,
  sku TEXT NOT NULL,
  product_name TEXT NOT NULL DEFAULT '',
  unit_type TEXT NOT NULL DEFAULT '',
  min_qty INTEGER,
  max_qty INTEGER,
  unit_price NUMERIC(12,2) NOT NULL,
  currency TEXT NOT NULL DEFAULT 'GBP',
  notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_price_rows_supplier_id ON price_rows (supplier_id);
CREATE INDEX IF NOT EXISTS idx_price_rows_sku ON price_rows (sku);

CREATE TABLE IF NOT EXISTS business_rules (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL DEFAULT ''
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) bumpGeneration() {
	s.genMu.Lock()
	s.generation++
	s.genMu.Unlock()
}

func (s *PostgresStore) currentGeneration() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation
}

func (s *PostgresStore) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return listSuppliers(ctx, s.db)
}

func (s *PostgresStore) ListPriceRows(ctx context.Context) ([]PriceRow, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return listPriceRows(ctx, s.db)
}

func (s *PostgresStore) ListBusinessRules(ctx context.Context) ([]BusinessRule, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return listBusinessRules(ctx, s.db)
}

func (s *PostgresStore) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := s.ensureSchema(); err != nil {
		return Snapshot{}, err
	}
	gen := s.currentGeneration()
	if cached, ok := s.snapshotCache.Get(gen); ok {
		return cached, nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	suppliers, err := listSuppliers(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	rows, err := listPriceRows(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	rules, err := listBusinessRules(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Suppliers: suppliers, PriceRows: rows, BusinessRules: rules}
	s.snapshotCache.Add(gen, snap)
	return snap, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listSuppliers(ctx context.Context, q querier) ([]Supplier, error) {
	rows, err := q.QueryContext(ctx, `SELECT supplier_id, name, email, phone, address
FROM suppliers ORDER BY supplier_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Phone, &sup.Address); err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

func listPriceRows(ctx context.Context, q querier) ([]PriceRow, error) {
	rows, err := q.QueryContext(ctx, `SELECT row_id, supplier_id, sku, product_name, unit_type,
min_qty, max_qty, unit_price, currency, notes
FROM price_rows ORDER BY row_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PriceRow
	for rows.Next() {
		var (
			r      PriceRow
			minQty sql.NullInt64
			maxQty sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.SupplierID, &r.SKU, &r.ProductName, &r.UnitType,
			&minQty, &maxQty, &r.UnitPrice, &r.Currency, &r.Notes); err != nil {
			return nil, err
		}
		if minQty.Valid {
			v := int(minQty.Int64)
			r.MinQty = &v
		}
		if maxQty.Valid {
			v := int(maxQty.Int64)
			r.MaxQty = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func listBusinessRules(ctx context.Context, q querier) ([]BusinessRule, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM business_rules ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BusinessRule
	for rows.Next() {
		var r BusinessRule
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateSupplier(ctx context.Context, sup Supplier) (Supplier, error) {
	if err := s.ensureSchema(); err != nil {
		return Supplier{}, err
	}
	if strings.TrimSpace(sup.Name) == "" {
		return Supplier{}, fmt.Errorf("catalog: supplier name is required")
	}
	if strings.TrimSpace(sup.ID) == "" {
		sup.ID = newID("sup")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO suppliers (supplier_id, name, email, phone, address)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (supplier_id)
DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email,
  phone=EXCLUDED.phone, address=EXCLUDED.address`,
		sup.ID, sup.Name, sup.Email, sup.Phone, sup.Address)
	if err != nil {
		return Supplier{}, err
	}
	s.bumpGeneration()
	return sup, nil
}

func (s *PostgresStore) DeleteSupplier(ctx context.Context, id string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE supplier_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.bumpGeneration()
	return nil
}

func (s *PostgresStore) CreatePriceRow(ctx context.Context, r PriceRow) (PriceRow, error) {
	if err := s.ensureSchema(); err != nil {
		return PriceRow{}, err
	}
	if strings.TrimSpace(r.SupplierID) == "" || strings.TrimSpace(r.SKU) == "" {
		return PriceRow{}, fmt.Errorf("catalog: price row requires supplier_id and sku")
	}
	if strings.TrimSpace(r.ID) == "" {
		r.ID = newID("row")
	}
	var minQty, maxQty any
	if r.MinQty != nil {
		minQty = *r.MinQty
	}
	if r.MaxQty != nil {
		maxQty = *r.MaxQty
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO price_rows (row_id, supplier_id, sku, product_name, unit_type,
  min_qty, max_qty, unit_price, currency, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (row_id)
DO UPDATE SET supplier_id=EXCLUDED.supplier_id, sku=EXCLUDED.sku,
  product_name=EXCLUDED.product_name, unit_type=EXCLUDED.unit_type,
  min_qty=EXCLUDED.min_qty, max_qty=EXCLUDED.max_qty,
  unit_price=EXCLUDED.unit_price, currency=EXCLUDED.currency,
  notes=EXCLUDED.notes`,
		r.ID, r.SupplierID, r.SKU, r.ProductName, r.UnitType,
		minQty, maxQty, r.UnitPrice, r.Currency, r.Notes)
	if err != nil {
		return PriceRow{}, err
	}
	s.bumpGeneration()
	return r, nil
}

func (s *PostgresStore) DeletePriceRow(ctx context.Context, id string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM price_rows WHERE row_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.bumpGeneration()
	return nil
}

func (s *PostgresStore) PutBusinessRule(ctx context.Context, rule BusinessRule) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	if strings.TrimSpace(rule.Key) == "" {
		return fmt.Errorf("catalog: business rule key is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO business_rules (key, value)
VALUES ($1,$2)
ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`,
		rule.Key, rule.Value)
	if err != nil {
		return err
	}
	s.bumpGeneration()
	return nil
}

func (s *PostgresStore) DeleteBusinessRule(ctx context.Context, key string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM business_rules WHERE key = $1`, strings.TrimSpace(key))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.bumpGeneration()
	return nil
}
