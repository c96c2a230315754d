package statement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
)

// SettlementCategory is the accounting category of settlement entries.
const SettlementCategory = "account settlement"

var (
	// ErrSettlementUnsupported is returned when settling a safe statement.
	ErrSettlementUnsupported = errors.New("statement: only customer and supplier accounts can be settled")
	// ErrSafeRequired is returned when no safe receives or pays the settlement.
	ErrSafeRequired = errors.New("statement: settlement safe required")
	// ErrNothingToSettle is returned when the settlement amount is not positive.
	ErrNothingToSettle = errors.New("statement: settlement amount must be positive")
)

// SettleInput describes how an account balance is cleared. A nil Amount
// settles the absolute net balance.
type SettleInput struct {
	Amount   *decimal.Decimal
	SafeID   string
	BranchID string
	Date     string
	Note     string
}

// Settle builds the accounting entry that clears st. Customers pay in
// (revenue), suppliers are paid (expense).
func Settle(st Statement, in SettleInput) (ledger.AccountingEntry, error) {
	var entryType ledger.EntryType
	switch st.Kind {
	case AccountCustomer:
		entryType = ledger.EntryRevenue
	case AccountSupplier:
		entryType = ledger.EntryExpense
	default:
		return ledger.AccountingEntry{}, ErrSettlementUnsupported
	}
	if in.SafeID == "" {
		return ledger.AccountingEntry{}, ErrSafeRequired
	}
	amount := st.Net.Abs()
	if in.Amount != nil {
		amount = *in.Amount
	}
	if !amount.IsPositive() {
		return ledger.AccountingEntry{}, ErrNothingToSettle
	}
	note := in.Note
	if note == "" {
		name := st.AccountName
		if name == "" {
			name = st.AccountID
		}
		note = fmt.Sprintf("settlement: %s", name)
	}
	return ledger.AccountingEntry{
		ID:         "PAY-" + ledger.NewTransactionID(),
		Date:       in.Date,
		Type:       entryType,
		Category:   SettlementCategory,
		Amount:     amount,
		SafeID:     in.SafeID,
		Note:       note,
		BranchID:   in.BranchID,
		EntityID:   st.AccountID,
		EntityType: string(st.Kind),
	}, nil
}
