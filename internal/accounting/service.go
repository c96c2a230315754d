// Package accounting records manual revenue and expense entries and serves
// account statements and their settlement.
package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/manara-erp/manara/internal/accounting/statement"
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// UnknownAccount names statements whose account is not in the registry.
const UnknownAccount = "unknown account"

// ErrAccountNotFound is returned when settling an account missing from the registry.
var ErrAccountNotFound = errors.New("accounting: account not found")

// Ledger is the store surface the service depends on.
type Ledger interface {
	Transactions() []ledger.Transaction
	AccountingEntries() []ledger.AccountingEntry
	AppendAccountingEntry(ctx context.Context, entry ledger.AccountingEntry) (ledger.Outcome, error)
	Entity(kind masterdata.Kind, id string) (masterdata.Entity, bool)
}

// Service coordinates accounting entries and statements.
type Service struct {
	ledger Ledger
}

// NewService constructs the accounting service.
func NewService(l Ledger) *Service {
	return &Service{ledger: l}
}

// RecordEntry books a manual revenue or expense.
func (s *Service) RecordEntry(ctx context.Context, entry ledger.AccountingEntry) (ledger.Outcome, error) {
	return s.ledger.AppendAccountingEntry(ctx, entry)
}

// Entries lists recorded entries in booking order.
func (s *Service) Entries() []ledger.AccountingEntry {
	return s.ledger.AccountingEntries()
}

// Statement builds the statement of q with the account's registry name.
func (s *Service) Statement(_ context.Context, q statement.Query) statement.Statement {
	st := statement.Build(s.ledger.Transactions(), q)
	st.AccountName = UnknownAccount
	if e, ok := s.ledger.Entity(entityKind(q.Kind), q.AccountID); ok {
		if name := masterdata.DisplayName(e); name != "" {
			st.AccountName = name
		}
	}
	return st
}

// Settle books the entry that clears the account of q, or the requested part of it.
func (s *Service) Settle(ctx context.Context, q statement.Query, in statement.SettleInput) (ledger.Outcome, error) {
	if _, ok := s.ledger.Entity(entityKind(q.Kind), q.AccountID); !ok {
		return ledger.Outcome{}, fmt.Errorf("%w: %s %s", ErrAccountNotFound, q.Kind, q.AccountID)
	}
	entry, err := statement.Settle(s.Statement(ctx, q), in)
	if err != nil {
		return ledger.Outcome{}, err
	}
	return s.ledger.AppendAccountingEntry(ctx, entry)
}

func entityKind(k statement.AccountKind) masterdata.Kind {
	switch k {
	case statement.AccountCustomer:
		return masterdata.KindCustomer
	case statement.AccountSupplier:
		return masterdata.KindSupplier
	default:
		return masterdata.KindSafe
	}
}
