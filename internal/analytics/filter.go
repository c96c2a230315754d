package analytics

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/manara-erp/manara/internal/ledger"
)

// Filter narrows the log before aggregation. Empty fields impose no
// constraint; date bounds are inclusive ISO dates.
type Filter struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	BranchID string `json:"branchId,omitempty"`
	Search   string `json:"q,omitempty"`
}

func (f Filter) cacheParts() []string {
	return []string{token(f.From), token(f.To), token(f.BranchID), token(cases.Fold().String(strings.TrimSpace(f.Search)))}
}

func token(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// FilterTransactions returns the transactions matching f in log order. The
// search term is matched case-insensitively against the counterparty name
// and item product names.
func FilterTransactions(log []ledger.Transaction, f Filter) []ledger.Transaction {
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(f.Search))
	out := make([]ledger.Transaction, 0, len(log))
	for _, tx := range log {
		if f.From != "" && tx.Date < f.From {
			continue
		}
		if f.To != "" && tx.Date > f.To {
			continue
		}
		if f.BranchID != "" && tx.BranchID != f.BranchID {
			continue
		}
		if term != "" && !matchesTerm(fold, tx, term) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func matchesTerm(fold cases.Caser, tx ledger.Transaction, term string) bool {
	if strings.Contains(fold.String(tx.EntityName), term) {
		return true
	}
	for _, item := range tx.Items {
		if strings.Contains(fold.String(item.ProductName), term) {
			return true
		}
	}
	return false
}
