package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
	"github.com/manara-erp/manara/internal/platform/db"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_entities (
	seq BIGSERIAL UNIQUE,
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	payload JSONB NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE TABLE IF NOT EXISTS ledger_transactions (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	tx_date TEXT NOT NULL,
	tx_type TEXT NOT NULL,
	items JSONB NOT NULL,
	total_amount NUMERIC NOT NULL,
	total_cost NUMERIC NOT NULL,
	entity_id TEXT NOT NULL DEFAULT '',
	entity_name TEXT NOT NULL DEFAULT '',
	warehouse_id TEXT NOT NULL DEFAULT '',
	from_warehouse_id TEXT NOT NULL DEFAULT '',
	to_warehouse_id TEXT NOT NULL DEFAULT '',
	safe_id TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT '',
	is_revenue BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS ledger_accounting_entries (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	entry_date TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	amount NUMERIC NOT NULL,
	safe_id TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT '',
	entity_id TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS ledger_salary_payments (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	employee_id TEXT NOT NULL,
	employee_name TEXT NOT NULL,
	month INT NOT NULL,
	year INT NOT NULL,
	bonus NUMERIC NOT NULL,
	deduction NUMERIC NOT NULL,
	net_salary NUMERIC NOT NULL,
	paid_on TEXT NOT NULL,
	safe_id TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT ''
);`

// PostgresRepository persists ledger state in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository backed by pgx.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the ledger tables when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

func (t *pgTx) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	items, err := json.Marshal(tx.Items)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO ledger_transactions
		(id, tx_date, tx_type, items, total_amount, total_cost, entity_id, entity_name,
		 warehouse_id, from_warehouse_id, to_warehouse_id, safe_id, branch_id, is_revenue)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		tx.ID, tx.Date, string(tx.Type), items, tx.TotalAmount.String(), tx.TotalCost.String(),
		tx.EntityID, tx.EntityName, tx.WarehouseID, tx.FromWarehouseID, tx.ToWarehouseID,
		tx.SafeID, tx.BranchID, tx.IsRevenue)
	return mapPgError(err)
}

func (t *pgTx) InsertAccountingEntry(ctx context.Context, e ledger.AccountingEntry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO ledger_accounting_entries
		(id, entry_date, entry_type, category, amount, safe_id, note, branch_id, entity_id, entity_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.Date, string(e.Type), e.Category, e.Amount.String(), e.SafeID, e.Note,
		e.BranchID, e.EntityID, e.EntityType)
	return mapPgError(err)
}

func (t *pgTx) InsertSalaryPayment(ctx context.Context, p ledger.SalaryPayment) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO ledger_salary_payments
		(id, employee_id, employee_name, month, year, bonus, deduction, net_salary, paid_on, safe_id, branch_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.EmployeeID, p.EmployeeName, p.Month, p.Year, p.Bonus.String(), p.Deduction.String(),
		p.NetSalary.String(), p.Date, p.SafeID, p.BranchID)
	return mapPgError(err)
}

func (t *pgTx) UpsertEntity(ctx context.Context, record EntityRecord) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO ledger_entities (kind, id, payload) VALUES ($1,$2,$3)
		ON CONFLICT (kind, id) DO UPDATE SET payload = EXCLUDED.payload`,
		string(record.Kind), record.ID, record.Payload)
	return err
}

func (t *pgTx) DeleteEntity(ctx context.Context, kind masterdata.Kind, id string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM ledger_entities WHERE kind = $1 AND id = $2`, string(kind), id)
	return err
}

func mapPgError(err error) error {
	if detail, ok := db.UniqueViolation(err); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, detail)
	}
	return err
}

// Load reads the full ledger in insertion order.
func (r *PostgresRepository) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Entities, err = r.loadEntities(ctx); err != nil {
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

func (r *PostgresRepository) loadEntities(ctx context.Context) ([]EntityRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT kind, id, payload FROM ledger_entities ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntityRecord
	for rows.Next() {
		var kind string
		var record EntityRecord
		if err := rows.Scan(&kind, &record.ID, &record.Payload); err != nil {
			return nil, err
		}
		record.Kind = masterdata.Kind(kind)
		out = append(out, record)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) loadTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tx_date, tx_type, items, total_amount::text, total_cost::text,
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
		if err := json.Unmarshal(items, &tx.Items); err != nil {
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

func (r *PostgresRepository) loadEntries(ctx context.Context) ([]ledger.AccountingEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, entry_date, entry_type, category, amount::text, safe_id, note,
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

func (r *PostgresRepository) loadPayments(ctx context.Context) ([]ledger.SalaryPayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, employee_id, employee_name, month, year, bonus::text,
		deduction::text, net_salary::text, paid_on, safe_id, branch_id FROM ledger_salary_payments ORDER BY seq`)
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
