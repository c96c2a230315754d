// Package store owns the entity registry, the stock and cash ledgers and the
// transaction log, and is the only path through which they change.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manara-erp/manara/internal/cash"
	"github.com/manara-erp/manara/internal/inventory"
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

var (
	// ErrDuplicateTransaction is returned when a transaction id is already in the log.
	ErrDuplicateTransaction = errors.New("store: duplicate transaction id")
	// ErrAccountingViaEntry is returned when an accounting transaction is appended directly.
	ErrAccountingViaEntry = errors.New("store: accounting transactions must be recorded as entries")
	// ErrReferencedID is returned when a new product or safe would reuse an id
	// that logged transactions already point at.
	ErrReferencedID = errors.New("store: id referenced by the transaction log")
)

// AppendHook observes committed appends.
type AppendHook func(ctx context.Context, outcome ledger.Outcome)

// EntityHook observes committed registry changes.
type EntityHook func(ctx context.Context, kind masterdata.Kind, id string)

// Store serialises every mutation behind one mutex and persists it through
// the repository before making it visible.
type Store struct {
	mu       sync.RWMutex
	repo     Repository
	logger   *slog.Logger
	registry *masterdata.Registry
	log      []ledger.Transaction
	ids      map[string]struct{}
	entries  []ledger.AccountingEntry
	payments []ledger.SalaryPayment

	appendHooks []AppendHook
	entityHooks []EntityHook
	now         func() time.Time
}

// New constructs an empty store. A nil repository keeps state in memory.
func New(repo Repository, logger *slog.Logger) *Store {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:     repo,
		logger:   logger,
		registry: masterdata.NewRegistry(),
		ids:      make(map[string]struct{}),
		now:      time.Now,
	}
}

// WithClock overrides the clock used for default dates.
func (s *Store) WithClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// OnAppend registers an observer run after each committed append.
func (s *Store) OnAppend(h AppendHook) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendHooks = append(s.appendHooks, h)
}

// OnEntityChange registers an observer run after each committed registry change.
func (s *Store) OnEntityChange(h EntityHook) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityHooks = append(s.entityHooks, h)
}

// Load replaces in-memory state with the repository snapshot.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	registry := masterdata.NewRegistry()
	for _, record := range snap.Entities {
		entity, err := decodeEntity(record)
		if err != nil {
			return err
		}
		if err := registry.Add(entity); err != nil {
			return fmt.Errorf("store: load: %w", err)
		}
	}
	ids := make(map[string]struct{}, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		ids[tx.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = registry
	s.log = snap.Transactions
	s.ids = ids
	s.entries = snap.AccountingEntries
	s.payments = snap.SalaryPayments
	s.logger.Info("ledger loaded",
		slog.Int("transactions", len(s.log)),
		slog.Int("entities", len(snap.Entities)))
	return nil
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

// Append records a stock or cash movement and applies its effects.
func (s *Store) Append(ctx context.Context, tx ledger.Transaction) (ledger.Outcome, error) {
	if tx.Type == ledger.TypeAccounting {
		return ledger.Outcome{}, ErrAccountingViaEntry
	}
	return s.append(ctx, tx.Clone(), nil, nil)
}

// AppendAccountingEntry records a manual revenue or expense together with its
// mirror transaction.
func (s *Store) AppendAccountingEntry(ctx context.Context, entry ledger.AccountingEntry) (ledger.Outcome, error) {
	if entry.ID == "" {
		entry.ID = ledger.NewTransactionID()
	}
	if entry.Date == "" {
		entry.Date = s.today()
	}
	if err := entry.Validate(); err != nil {
		return ledger.Outcome{}, err
	}
	persist := func(ctx context.Context, repo TxRepository) error {
		return repo.InsertAccountingEntry(ctx, entry)
	}
	commit := func() { s.entries = append(s.entries, entry) }
	return s.append(ctx, entry.Mirror(), persist, commit)
}

// PaySalary records a salary payment and its log transaction.
func (s *Store) PaySalary(ctx context.Context, payment ledger.SalaryPayment) (ledger.Outcome, error) {
	if payment.ID == "" {
		payment.ID = ledger.NewTransactionID()
	}
	if payment.Date == "" {
		payment.Date = s.today()
	}
	persist := func(ctx context.Context, repo TxRepository) error {
		return repo.InsertSalaryPayment(ctx, payment)
	}
	commit := func() { s.payments = append(s.payments, payment) }
	return s.append(ctx, payment.Transaction(), persist, commit)
}

func (s *Store) append(ctx context.Context, tx ledger.Transaction, persist func(context.Context, TxRepository) error, commit func()) (ledger.Outcome, error) {
	if tx.ID == "" {
		tx.ID = ledger.NewTransactionID()
	}
	if tx.Date == "" {
		tx.Date = s.today()
	}
	if tx.Items == nil {
		tx.Items = []ledger.TransactionItem{}
	}
	if err := tx.Validate(); err != nil {
		return ledger.Outcome{}, err
	}

	s.mu.Lock()
	if _, dup := s.ids[tx.ID]; dup {
		s.mu.Unlock()
		return ledger.Outcome{}, fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.ID)
	}

	products := s.workingProducts(tx)
	safes := s.workingSafes(tx)
	warnings := inventory.ApplyInventoryEffect(products, tx)
	warnings = append(warnings, cash.ApplyCashEffect(safes, tx)...)

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		if err := repo.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		if persist != nil {
			if err := persist(ctx, repo); err != nil {
				return err
			}
		}
		for _, p := range products {
			if err := upsert(ctx, repo, *p); err != nil {
				return err
			}
		}
		for _, safe := range safes {
			if err := upsert(ctx, repo, *safe); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return ledger.Outcome{}, fmt.Errorf("store: append %s: %w", tx.ID, err)
	}

	for _, p := range products {
		_ = s.registry.Update(*p)
	}
	for _, safe := range safes {
		_ = s.registry.Update(*safe)
	}
	s.log = append(s.log, tx)
	s.ids[tx.ID] = struct{}{}
	if commit != nil {
		commit()
	}
	hooks := append([]AppendHook(nil), s.appendHooks...)
	s.mu.Unlock()

	outcome := ledger.Outcome{Transaction: tx.Clone(), Warnings: warnings}
	for _, w := range warnings {
		s.logger.Warn("ledger warning",
			slog.String("transaction_id", tx.ID),
			slog.String("kind", string(w.Kind)),
			slog.String("detail", w.String()))
	}
	for _, h := range hooks {
		h(ctx, outcome)
	}
	return outcome, nil
}

func upsert(ctx context.Context, repo TxRepository, e masterdata.Entity) error {
	record, err := encodeEntity(e)
	if err != nil {
		return err
	}
	return repo.UpsertEntity(ctx, record)
}

// workingProducts clones the registered products referenced by tx. Callers hold s.mu.
func (s *Store) workingProducts(tx ledger.Transaction) inventory.ProductSet {
	set := inventory.ProductSet{}
	if !tx.Type.MovesStock() {
		return set
	}
	for _, item := range tx.Items {
		if _, seen := set[item.ProductID]; seen {
			continue
		}
		if p, ok := masterdata.Get[masterdata.Product](s.registry, item.ProductID); ok {
			set[p.ID] = &p
		}
	}
	return set
}

// workingSafes copies the safe tx touches, if registered. Callers hold s.mu.
func (s *Store) workingSafes(tx ledger.Transaction) cash.SafeSet {
	if tx.SafeID == "" || cash.SafeDelta(tx).IsZero() {
		return cash.SafeSet{}
	}
	if safe, ok := masterdata.Get[masterdata.Safe](s.registry, tx.SafeID); ok {
		return cash.NewSafeSet(safe)
	}
	return cash.SafeSet{}
}

// AddEntity registers a new record. Stocks and balances supplied on creation
// become the opening position used by replay. An empty id is generated.
func (s *Store) AddEntity(ctx context.Context, e masterdata.Entity) (masterdata.Entity, error) {
	if e == nil {
		return nil, masterdata.ErrInvalidEntity
	}
	e = masterdata.Deref(e)
	if e.EntityID() == "" {
		e = masterdata.WithID(e, uuid.NewString())
	}
	switch v := e.(type) {
	case masterdata.Product:
		v.OpeningStocks = append([]masterdata.WarehouseStock(nil), v.Stocks...)
		e = v
	case masterdata.Safe:
		v.OpeningBalance = v.Balance
		e = v
	}

	s.mu.Lock()
	if _, exists := s.registry.Get(e.EntityKind(), e.EntityID()); exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s %s", masterdata.ErrDuplicateID, e.EntityKind(), e.EntityID())
	}
	if s.referencedLocked(e.EntityKind(), e.EntityID()) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s %s", ErrReferencedID, e.EntityKind(), e.EntityID())
	}
	if err := s.persistEntity(ctx, e); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.registry.Add(e); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	hooks := append([]EntityHook(nil), s.entityHooks...)
	s.mu.Unlock()

	s.notifyEntity(ctx, hooks, e.EntityKind(), e.EntityID())
	return e, nil
}

// referencedLocked reports whether the log moves stock or cash for the given
// product or safe. A fresh opening position under such an id would be
// replayed against history it never saw. Callers hold s.mu.
func (s *Store) referencedLocked(kind masterdata.Kind, id string) bool {
	switch kind {
	case masterdata.KindProduct:
		for _, tx := range s.log {
			if !tx.Type.MovesStock() {
				continue
			}
			for _, item := range tx.Items {
				if item.ProductID == id {
					return true
				}
			}
		}
	case masterdata.KindSafe:
		for _, tx := range s.log {
			if tx.SafeID == id {
				return true
			}
		}
	}
	return false
}

// UpdateEntity replaces a record by identity. Ledger-owned fields (product
// stocks, safe balances) and empty password hashes keep their current values.
func (s *Store) UpdateEntity(ctx context.Context, e masterdata.Entity) (masterdata.Entity, error) {
	if e == nil {
		return nil, masterdata.ErrInvalidEntity
	}
	e = masterdata.Deref(e)

	s.mu.Lock()
	current, exists := s.registry.Get(e.EntityKind(), e.EntityID())
	if !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s %s", masterdata.ErrNotFound, e.EntityKind(), e.EntityID())
	}
	switch v := e.(type) {
	case masterdata.Product:
		cur := current.(masterdata.Product)
		v.Stocks = cur.Stocks
		v.OpeningStocks = cur.OpeningStocks
		e = v
	case masterdata.Safe:
		cur := current.(masterdata.Safe)
		v.Balance = cur.Balance
		v.OpeningBalance = cur.OpeningBalance
		e = v
	case masterdata.User:
		if v.PasswordHash == "" {
			v.PasswordHash = current.(masterdata.User).PasswordHash
		}
		e = v
	}
	if err := s.persistEntity(ctx, e); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.registry.Update(e); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	hooks := append([]EntityHook(nil), s.entityHooks...)
	s.mu.Unlock()

	s.notifyEntity(ctx, hooks, e.EntityKind(), e.EntityID())
	return e, nil
}

// RemoveEntity deletes a record. Transactions that reference it are kept.
func (s *Store) RemoveEntity(ctx context.Context, kind masterdata.Kind, id string) error {
	s.mu.Lock()
	if _, exists := s.registry.Get(kind, id); !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s %s", masterdata.ErrNotFound, kind, id)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		return repo.DeleteEntity(ctx, kind, id)
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store: remove %s %s: %w", kind, id, err)
	}
	if err := s.registry.Remove(kind, id); err != nil {
		s.mu.Unlock()
		return err
	}
	hooks := append([]EntityHook(nil), s.entityHooks...)
	s.mu.Unlock()

	s.notifyEntity(ctx, hooks, kind, id)
	return nil
}

func (s *Store) persistEntity(ctx context.Context, e masterdata.Entity) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		return upsert(ctx, repo, e)
	})
	if err != nil {
		return fmt.Errorf("store: save %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return nil
}

func (s *Store) notifyEntity(ctx context.Context, hooks []EntityHook, kind masterdata.Kind, id string) {
	for _, h := range hooks {
		h(ctx, kind, id)
	}
}
