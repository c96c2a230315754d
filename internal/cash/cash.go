// Package cash applies transaction effects to safe balances.
package cash

import (
	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// SafeSet holds the mutable safe records touched by one transaction.
type SafeSet map[string]*masterdata.Safe

// NewSafeSet copies safes into a mutable working set.
func NewSafeSet(safes ...masterdata.Safe) SafeSet {
	set := make(SafeSet, len(safes))
	for _, s := range safes {
		set[s.ID] = &s
	}
	return set
}

// SafeDelta is the signed change tx makes to its safe.
func SafeDelta(tx ledger.Transaction) decimal.Decimal {
	switch tx.Type {
	case ledger.TypeSale:
		return tx.TotalAmount
	case ledger.TypePurchase, ledger.TypeSalary:
		return tx.TotalAmount.Neg()
	case ledger.TypeAccounting:
		if tx.IsRevenue {
			return tx.TotalAmount
		}
		return tx.TotalAmount.Neg()
	}
	return decimal.Zero
}

// ApplyCashEffect adjusts the referenced safe by SafeDelta. Transactions
// without a safe are ignored. Balances are not floored.
func ApplyCashEffect(set SafeSet, tx ledger.Transaction) []ledger.Warning {
	if tx.SafeID == "" {
		return nil
	}
	delta := SafeDelta(tx)
	if delta.IsZero() {
		return nil
	}
	safe, ok := set[tx.SafeID]
	if !ok || safe == nil {
		return []ledger.Warning{{
			Kind:          ledger.WarnReferenceNotFound,
			TransactionID: tx.ID,
			SafeID:        tx.SafeID,
		}}
	}
	safe.Balance = safe.Balance.Add(delta)
	return nil
}
