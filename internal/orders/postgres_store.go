package orders

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists committed orders via the pgx stdlib driver. The
// header and its items are written in one transaction.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
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
	return &PostgresStore{db: db}, nil
}

// NewFromEnv returns a Postgres-backed store when ORDERS_PG_DSN is set and
// reachable, otherwise an in-process memory store.
func NewFromEnv() Store {
	dsn := strings.TrimSpace(os.Getenv("ORDERS_PG_DSN"))
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
		return fmt.Errorf("orders: store is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS purchase_orders (
  po_id TEXT PRIMARY KEY,
  supplier_name TEXT NOT NULL,
  status TEXT NOT NULL,
  subtotal NUMERIC(14,2) NOT NULL,
  currency TEXT NOT NULL DEFAULT 'GBP',
  extra_notes TEXT NOT NULL DEFAULT '',
  delivery_instructions TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS purchase_order_items (
  po_id TEXT NOT NULL REFERENCES purchase_orders (po_id) ON DELETE CASCADE,
  line_no INTEGER NOT NULL,
  sku TEXT NOT NULL,
  product_name TEXT NOT NULL DEFAULT '',
  unit_type TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL,
  unit_price NUMERIC(12,2) NOT NULL,
  currency TEXT NOT NULL DEFAULT 'GBP',
  line_total NUMERIC(14,2) NOT NULL,
  price_source TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (po_id, line_no)
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Commit(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	if err := s.ensureSchema(); err != nil {
		return PurchaseOrder{}, err
	}
	if len(po.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("orders: purchase order has no items")
	}
	if strings.TrimSpace(po.ID) == "" {
		po.ID = "po-" + uuid.NewString()
	}
	po.Status = StatusCommitted
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO purchase_orders (po_id, supplier_name, status, subtotal, currency,
  extra_notes, delivery_instructions, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		po.ID, po.SupplierName, po.Status, po.Subtotal, po.Currency,
		po.ExtraNotesForSupplier, po.DeliveryInstructions, po.CreatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	for i, it := range po.Items {
		_, err = tx.ExecContext(ctx, `
INSERT INTO purchase_order_items (po_id, line_no, sku, product_name, unit_type,
  quantity, unit_price, currency, line_total, price_source, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			po.ID, i, it.SKU, it.ProductName, it.UnitType,
			it.Quantity, it.UnitPrice, it.Currency, it.LineTotal, it.PriceSource, it.Notes)
		if err != nil {
			return PurchaseOrder{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (PurchaseOrder, error) {
	if err := s.ensureSchema(); err != nil {
		return PurchaseOrder{}, err
	}
	id = strings.TrimSpace(id)
	var po PurchaseOrder
	err := s.db.QueryRowContext(ctx, `
SELECT po_id, supplier_name, status, subtotal, currency,
  extra_notes, delivery_instructions, created_at
FROM purchase_orders WHERE po_id = $1`, id).Scan(
		&po.ID, &po.SupplierName, &po.Status, &po.Subtotal, &po.Currency,
		&po.ExtraNotesForSupplier, &po.DeliveryInstructions, &po.CreatedAt)
	if err == sql.ErrNoRows {
		return PurchaseOrder{}, ErrNotFound
	}
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Items, err = s.listItems(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]PurchaseOrder, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT po_id, supplier_name, status, subtotal, currency,
  extra_notes, delivery_instructions, created_at
FROM purchase_orders ORDER BY created_at DESC, po_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.SupplierName, &po.Status, &po.Subtotal, &po.Currency,
			&po.ExtraNotesForSupplier, &po.DeliveryInstructions, &po.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.listItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *PostgresStore) listItems(ctx context.Context, poID string) ([]PoItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT sku, product_name, unit_type, quantity, unit_price, currency,
  line_total, price_source, notes
FROM purchase_order_items WHERE po_id = $1 ORDER BY line_no`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PoItem
	for rows.Next() {
		var it PoItem
		if err := rows.Scan(&it.SKU, &it.ProductName, &it.UnitType, &it.Quantity,
			&it.UnitPrice, &it.Currency, &it.LineTotal, &it.PriceSource, &it.Notes); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
