package store

import (
	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// Transactions returns the log in append order.
func (s *Store) Transactions() []ledger.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, len(s.log))
	for i, tx := range s.log {
		out[i] = tx.Clone()
	}
	return out
}

// RecentTransactions returns up to limit transactions, newest first. A
// non-positive limit returns the whole log.
func (s *Store) RecentTransactions(limit int) []ledger.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.log)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ledger.Transaction, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.log[i].Clone())
	}
	return out
}

// Transaction looks up one log entry.
func (s *Store) Transaction(id string) (ledger.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ids[id]; !ok {
		return ledger.Transaction{}, false
	}
	for i := len(s.log) - 1; i >= 0; i-- {
		if s.log[i].ID == id {
			return s.log[i].Clone(), true
		}
	}
	return ledger.Transaction{}, false
}

// AccountingEntries returns manual entries in the order they were recorded.
func (s *Store) AccountingEntries() []ledger.AccountingEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.AccountingEntry(nil), s.entries...)
}

// SalaryPayments returns recorded payroll payments.
func (s *Store) SalaryPayments() []ledger.SalaryPayment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.SalaryPayment(nil), s.payments...)
}

// Entity returns a copy of one registry record.
func (s *Store) Entity(kind masterdata.Kind, id string) (masterdata.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Get(kind, id)
}

// Entities returns copies of every record of kind.
func (s *Store) Entities(kind masterdata.Kind) []masterdata.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.List(kind)
}

// Products returns every product with its current stocks.
func (s *Store) Products() []masterdata.Product {
	return List[masterdata.Product](s)
}

// Safes returns every safe with its current balance.
func (s *Store) Safes() []masterdata.Safe {
	return List[masterdata.Safe](s)
}

// SafeBalance returns the current balance of a safe.
func (s *Store) SafeBalance(id string) (decimal.Decimal, bool) {
	safe, ok := Get[masterdata.Safe](s, id)
	if !ok {
		return decimal.Zero, false
	}
	return safe.Balance, true
}

// Get returns a typed registry record.
func Get[T masterdata.Entity](s *Store, id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return masterdata.Get[T](s.registry, id)
}

// List returns typed registry records in insertion order.
func List[T masterdata.Entity](s *Store) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return masterdata.List[T](s.registry)
}
