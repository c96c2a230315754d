package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// Repository persists ledger state.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Load(ctx context.Context) (Snapshot, error)
}

// TxRepository exposes the writes performed inside one persistence transaction.
type TxRepository interface {
	InsertTransaction(ctx context.Context, tx ledger.Transaction) error
	InsertAccountingEntry(ctx context.Context, entry ledger.AccountingEntry) error
	InsertSalaryPayment(ctx context.Context, payment ledger.SalaryPayment) error
	UpsertEntity(ctx context.Context, record EntityRecord) error
	DeleteEntity(ctx context.Context, kind masterdata.Kind, id string) error
}

// EntityRecord is the persisted form of a registry record.
type EntityRecord struct {
	Kind    masterdata.Kind
	ID      string
	Payload []byte
}

// Snapshot is everything needed to rebuild a store. Slices are in insertion order.
type Snapshot struct {
	Entities          []EntityRecord
	Transactions      []ledger.Transaction
	AccountingEntries []ledger.AccountingEntry
	SalaryPayments    []ledger.SalaryPayment
}

func encodeEntity(e masterdata.Entity) (EntityRecord, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return EntityRecord{}, fmt.Errorf("store: encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return EntityRecord{Kind: e.EntityKind(), ID: e.EntityID(), Payload: payload}, nil
}

func decodeEntity(record EntityRecord) (masterdata.Entity, error) {
	target, err := masterdata.New(record.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(record.Payload, target); err != nil {
		return nil, fmt.Errorf("store: decode %s %s: %w", record.Kind, record.ID, err)
	}
	return masterdata.Deref(target), nil
}
