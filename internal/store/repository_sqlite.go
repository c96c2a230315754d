package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_entities (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	payload BLOB NOT NULL,
	UNIQUE (kind, id)
);
CREATE TABLE IF NOT EXISTS ledger_transactions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	tx_date TEXT NOT NULL,
	tx_type TEXT NOT NULL,
	items BLOB NOT NULL,
	total_amount TEXT NOT NULL,
	total_cost TEXT NOT NULL,
	entity_id TEXT NOT NULL DEFAULT '',
	entity_name TEXT NOT NULL DEFAULT '',
	warehouse_id TEXT NOT NULL DEFAULT '',
	from_warehouse_id TEXT NOT NULL DEFAULT '',
	to_warehouse_id TEXT NOT NULL DEFAULT '',
	safe_id TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT '',
	is_revenue INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS ledger_accounting_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	entry_date TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	safe_id TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT '',
	entity_id TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS ledger_salary_payments (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	employee_id TEXT NOT NULL,
	employee_name TEXT NOT NULL,
	month INTEGER NOT NULL,
	year INTEGER NOT NULL,
	bonus TEXT NOT NULL,
	deduction TEXT NOT NULL,
	net_salary TEXT NOT NULL,
	paid_on TEXT NOT NULL,
	safe_id TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT ''
);`

// itemRecord is the msgpack layout of a transaction line. Amounts are kept
// as decimal strings.
type itemRecord struct {
	ProductID     string `msgpack:"product_id"`
	ProductName   string `msgpack:"product_name"`
	Quantity      int    `msgpack:"quantity"`
	BoxQuantity   int    `msgpack:"box_quantity,omitempty"`
	PieceQuantity int    `msgpack:"piece_quantity,omitempty"`
	Price         string `msgpack:"price"`
	Cost          string `msgpack:"cost"`
	LossQuantity  int    `msgpack:"loss_quantity,omitempty"`
	Unit          string `msgpack:"unit,omitempty"`
	Packaging     string `msgpack:"packaging,omitempty"`
}

func encodeItems(items []ledger.TransactionItem) ([]byte, error) {
	records := make([]itemRecord, len(items))
	for i, item := range items {
		records[i] = itemRecord{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			BoxQuantity:   item.BoxQuantity,
			PieceQuantity: item.PieceQuantity,
			Price:         item.Price.String(),
			Cost:          item.Cost.String(),
			LossQuantity:  item.LossQuantity,
			Unit:          item.Unit,
			Packaging:     item.Packaging,
		}
	}
	return msgpack.Marshal(records)
}

func decodeItems(data []byte) ([]ledger.TransactionItem, error) {
	var records []itemRecord
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	items := make([]ledger.TransactionItem, len(records))
	for i, r := range records {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, err
		}
		cost, err := decimal.NewFromString(r.Cost)
		if err != nil {
			return nil, err
		}
		items[i] = ledger.TransactionItem{
			ProductID:     r.ProductID,
			ProductName:   r.ProductName,
			Quantity:      r.Quantity,
			BoxQuantity:   r.BoxQuantity,
			PieceQuantity: r.PieceQuantity,
			Price:         price,
			Cost:          cost,
			LossQuantity:  r.LossQuantity,
			Unit:          r.Unit,
			Packaging:     r.Packaging,
		}
	}
	return items, nil
}

// SQLiteRepository persists ledger state in a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate sqlite: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

// WithTx executes fn inside a database transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(ctx, &sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *sqliteTx) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	items, err := encodeItems(tx.Items)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO ledger_transactions
		(id, tx_date, tx_type, items, total_amount, total_cost, entity_id, entity_name,
		 warehouse_id, from_warehouse_id, to_warehouse_id, safe_id, branch_id, is_revenue)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		tx.ID, tx.Date, string(tx.Type), items, tx.TotalAmount.String(), tx.TotalCost.String(),
		tx.EntityID, tx.EntityName, tx.WarehouseID, tx.FromWarehouseID, tx.ToWarehouseID,
		tx.SafeID, tx.BranchID, tx.IsRevenue)
	return mapSQLiteError(err)
}

func (t *sqliteTx) InsertAccountingEntry(ctx context.Context, e ledger.AccountingEntry) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO ledger_accounting_entries
		(id, entry_date, entry_type, category, amount, safe_id, note, branch_id, entity_id, entity_type)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Date, string(e.Type), e.Category, e.Amount.String(), e.SafeID, e.Note,
		e.BranchID, e.EntityID, e.EntityType)
	return mapSQLiteError(err)
}

func (t *sqliteTx) InsertSalaryPayment(ctx context.Context, p ledger.SalaryPayment) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO ledger_salary_payments
		(id, employee_id, employee_name, month, year, bonus, deduction, net_salary, paid_on, safe_id, branch_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.EmployeeID, p.EmployeeName, p.Month, p.Year, p.Bonus.String(), p.Deduction.String(),
		p.NetSalary.String(), p.Date, p.SafeID, p.BranchID)
	return mapSQLiteError(err)
}

func (t *sqliteTx) UpsertEntity(ctx context.Context, record EntityRecord) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO ledger_entities (kind, id, payload) VALUES (?,?,?)
		ON CONFLICT (kind, id) DO UPDATE SET payload = excluded.payload`,
		string(record.Kind), record.ID, record.Payload)
	return err
}

func (t *sqliteTx) DeleteEntity(ctx context.Context, kind masterdata.Kind, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM ledger_entities WHERE kind = ? AND id = ?`, string(kind), id)
	return err
}

func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, sqliteErr.Error())
	}
	return err
}

// Load reads the full ledger in insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := r.db.QueryContext(ctx, `SELECT kind, id, payload FROM ledger_entities ORDER BY seq`)
	if err != nil {
		return Snapshot{}, err
	}
	for rows.Next() {
		var kind string
		var record EntityRecord
		if err := rows.Scan(&kind, &record.ID, &record.Payload); err != nil {
			rows.Close()
			return Snapshot{}, err
		}
		record.Kind = masterdata.Kind(kind)
		snap.Entities = append(snap.Entities, record)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	if snap.Transactions, err = r.loadTransactions(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.AccountingEntries, err = r.loadEntries(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.SalaryPayments, err = r.loadPayments(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, tx_date, tx_type, items, total_amount, total_cost,
		entity_id, entity_name, warehouse_id, from_warehouse_id, to_warehouse_id, safe_id, branch_id, is_revenue
		FROM ledger_transactions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var txType, total, cost string
		var items []byte
		if err := rows.Scan(&tx.ID, &tx.Date, &txType, &items, &total, &cost,
			&tx.EntityID, &tx.EntityName, &tx.WarehouseID, &tx.FromWarehouseID, &tx.ToWarehouseID,
			&tx.SafeID, &tx.BranchID, &tx.IsRevenue); err != nil {
			return nil, err
		}
		tx.Type = ledger.TransactionType(txType)
		if tx.Items, err = decodeItems(items); err != nil {
			return nil, fmt.Errorf("store: decode items of %s: %w", tx.ID, err)
		}
		if tx.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		if tx.TotalCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadEntries(ctx context.Context) ([]ledger.AccountingEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, entry_date, entry_type, category, amount, safe_id, note,
		branch_id, entity_id, entity_type FROM ledger_accounting_entries ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.AccountingEntry
	for rows.Next() {
		var e ledger.AccountingEntry
		var entryType, amount string
		if err := rows.Scan(&e.ID, &e.Date, &entryType, &e.Category, &amount, &e.SafeID, &e.Note,
			&e.BranchID, &e.EntityID, &e.EntityType); err != nil {
			return nil, err
		}
		e.Type = ledger.EntryType(entryType)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadPayments(ctx context.Context) ([]ledger.SalaryPayment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, employee_id, employee_name, month, year, bonus,
		deduction, net_salary, paid_on, safe_id, branch_id FROM ledger_salary_payments ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.SalaryPayment
	for rows.Next() {
		var p ledger.SalaryPayment
		var bonus, deduction, net string
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.EmployeeName, &p.Month, &p.Year, &bonus,
			&deduction, &net, &p.Date, &p.SafeID, &p.BranchID); err != nil {
			return nil, err
		}
		if p.Bonus, err = decimal.NewFromString(bonus); err != nil {
			return nil, err
		}
		if p.Deduction, err = decimal.NewFromString(deduction); err != nil {
			return nil, err
		}
		if p.NetSalary, err = decimal.NewFromString(net); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
