package store

import (
	"context"
	"sync"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

type entityKey struct {
	kind masterdata.Kind
	id   string
}

// MemoryRepository keeps ledger state in process memory. Writes staged inside
// WithTx become visible only when fn returns nil.
type MemoryRepository struct {
	mu           sync.Mutex
	entityOrder  []entityKey
	entities     map[entityKey][]byte
	transactions []ledger.Transaction
	entries      []ledger.AccountingEntry
	payments     []ledger.SalaryPayment
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entities: make(map[entityKey][]byte)}
}

type memoryTx struct {
	ops []func(*MemoryRepository)
}

func (t *memoryTx) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	tx = tx.Clone()
	t.ops = append(t.ops, func(r *MemoryRepository) { r.transactions = append(r.transactions, tx) })
	return nil
}

func (t *memoryTx) InsertAccountingEntry(ctx context.Context, entry ledger.AccountingEntry) error {
	t.ops = append(t.ops, func(r *MemoryRepository) { r.entries = append(r.entries, entry) })
	return nil
}

func (t *memoryTx) InsertSalaryPayment(ctx context.Context, payment ledger.SalaryPayment) error {
	t.ops = append(t.ops, func(r *MemoryRepository) { r.payments = append(r.payments, payment) })
	return nil
}

func (t *memoryTx) UpsertEntity(ctx context.Context, record EntityRecord) error {
	payload := append([]byte(nil), record.Payload...)
	key := entityKey{kind: record.Kind, id: record.ID}
	t.ops = append(t.ops, func(r *MemoryRepository) {
		if _, exists := r.entities[key]; !exists {
			r.entityOrder = append(r.entityOrder, key)
		}
		r.entities[key] = payload
	})
	return nil
}

func (t *memoryTx) DeleteEntity(ctx context.Context, kind masterdata.Kind, id string) error {
	key := entityKey{kind: kind, id: id}
	t.ops = append(t.ops, func(r *MemoryRepository) {
		if _, exists := r.entities[key]; !exists {
			return
		}
		delete(r.entities, key)
		for i, k := range r.entityOrder {
			if k == key {
				r.entityOrder = append(r.entityOrder[:i:i], r.entityOrder[i+1:]...)
				break
			}
		}
	})
	return nil
}

// WithTx runs fn and applies its writes atomically.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, op := range tx.ops {
		op(r)
	}
	return nil
}

// Load returns a copy of the committed state.
func (r *MemoryRepository) Load(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		Entities:          make([]EntityRecord, 0, len(r.entityOrder)),
		Transactions:      make([]ledger.Transaction, 0, len(r.transactions)),
		AccountingEntries: append([]ledger.AccountingEntry(nil), r.entries...),
		SalaryPayments:    append([]ledger.SalaryPayment(nil), r.payments...),
	}
	for _, key := range r.entityOrder {
		snap.Entities = append(snap.Entities, EntityRecord{
			Kind:    key.kind,
			ID:      key.id,
			Payload: append([]byte(nil), r.entities[key]...),
		})
	}
	for _, tx := range r.transactions {
		snap.Transactions = append(snap.Transactions, tx.Clone())
	}
	return snap, nil
}
