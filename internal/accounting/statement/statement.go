// Package statement reconstructs running-balance account statements from the
// transaction log.
package statement

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
)

// AccountKind selects the sign convention of a statement.
type AccountKind string

const (
	AccountCustomer AccountKind = "customer"
	AccountSupplier AccountKind = "supplier"
	AccountSafe     AccountKind = "safe"
)

// ErrUnknownKind is returned for account kinds without a statement.
var ErrUnknownKind = errors.New("statement: unknown account kind")

// ParseKind validates an account kind string.
func ParseKind(v string) (AccountKind, error) {
	switch k := AccountKind(v); k {
	case AccountCustomer, AccountSupplier, AccountSafe:
		return k, nil
	}
	return "", ErrUnknownKind
}

// Labels for the sign of the net balance.
const (
	LabelDebit  = "debit balance"
	LabelCredit = "credit balance"
)

// Query selects the account and the inclusive date window. Empty bounds
// impose no constraint.
type Query struct {
	Kind      AccountKind
	AccountID string
	From      string
	To        string
}

// Row is one log transaction with its statement effect.
type Row struct {
	TransactionID string                 `json:"transactionId"`
	Date          string                 `json:"date"`
	Type          ledger.TransactionType `json:"type"`
	Description   string                 `json:"description"`
	Debit         decimal.Decimal        `json:"debit"`
	Credit        decimal.Decimal        `json:"credit"`
	Balance       decimal.Decimal        `json:"balance"`
}

// Statement is the ordered running-balance view of one account.
type Statement struct {
	Kind        AccountKind     `json:"kind"`
	AccountID   string          `json:"accountId"`
	AccountName string          `json:"accountName"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	Rows        []Row           `json:"rows"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Net         decimal.Decimal `json:"net"`
	Label       string          `json:"label"`
}

// Build filters log for the queried account, orders it by date and walks it
// accumulating debit minus credit. It does not modify log.
func Build(log []ledger.Transaction, q Query) Statement {
	st := Statement{
		Kind:        q.Kind,
		AccountID:   q.AccountID,
		From:        q.From,
		To:          q.To,
		Rows:        []Row{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Net:         decimal.Zero,
		Label:       LabelDebit,
	}
	if q.AccountID == "" {
		return st
	}

	matched := make([]ledger.Transaction, 0)
	for _, tx := range log {
		if !matches(q, tx) {
			continue
		}
		matched = append(matched, tx)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Date < matched[j].Date })

	running := decimal.Zero
	for _, tx := range matched {
		debit, credit := effect(q.Kind, tx)
		running = running.Add(debit).Sub(credit)
		st.TotalDebit = st.TotalDebit.Add(debit)
		st.TotalCredit = st.TotalCredit.Add(credit)
		st.Rows = append(st.Rows, Row{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Type:          tx.Type,
			Description:   tx.EntityName,
			Debit:         debit,
			Credit:        credit,
			Balance:       running,
		})
	}
	st.Net = st.TotalDebit.Sub(st.TotalCredit)
	if st.Net.IsNegative() {
		st.Label = LabelCredit
	}
	return st
}

func matches(q Query, tx ledger.Transaction) bool {
	switch q.Kind {
	case AccountSafe:
		if tx.SafeID != q.AccountID {
			return false
		}
	case AccountCustomer, AccountSupplier:
		if tx.EntityID != q.AccountID {
			return false
		}
	default:
		return false
	}
	if q.From != "" && tx.Date < q.From {
		return false
	}
	if q.To != "" && tx.Date > q.To {
		return false
	}
	return true
}

func effect(kind AccountKind, tx ledger.Transaction) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	switch kind {
	case AccountCustomer:
		switch tx.Type {
		case ledger.TypeSale:
			debit = tx.TotalAmount
		case ledger.TypeAccounting:
			credit = tx.TotalAmount
		}
	case AccountSupplier:
		switch tx.Type {
		case ledger.TypePurchase:
			credit = tx.TotalAmount
		case ledger.TypeAccounting:
			debit = tx.TotalAmount
		}
	case AccountSafe:
		switch tx.Type {
		case ledger.TypeSale:
			debit = tx.TotalAmount
		case ledger.TypePurchase, ledger.TypeSalary:
			credit = tx.TotalAmount
		case ledger.TypeAccounting:
			if tx.IsRevenue {
				debit = tx.TotalAmount
			} else {
				credit = tx.TotalAmount
			}
		}
	}
	return debit, credit
}
