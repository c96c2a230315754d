package store

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/cash"
	"github.com/manara-erp/manara/internal/inventory"
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// ReplayResult is the stock and cash position derived from opening positions
// and the log alone.
type ReplayResult struct {
	Stocks   map[string]map[string]int
	Balances map[string]decimal.Decimal
	Warnings []ledger.Warning
}

// Replay rebuilds stock quantities and safe balances from each record's
// opening position by re-applying log in order.
func Replay(products []masterdata.Product, safes []masterdata.Safe, log []ledger.Transaction) ReplayResult {
	productSet := make(inventory.ProductSet, len(products))
	for _, p := range products {
		fresh := p.Clone()
		fresh.Stocks = append([]masterdata.WarehouseStock(nil), p.OpeningStocks...)
		productSet[p.ID] = &fresh
	}
	safeSet := make(cash.SafeSet, len(safes))
	for _, s := range safes {
		fresh := s
		fresh.Balance = s.OpeningBalance
		safeSet[s.ID] = &fresh
	}

	var warnings []ledger.Warning
	for _, tx := range log {
		warnings = append(warnings, inventory.ApplyInventoryEffect(productSet, tx)...)
		warnings = append(warnings, cash.ApplyCashEffect(safeSet, tx)...)
	}

	result := ReplayResult{
		Stocks:   make(map[string]map[string]int, len(productSet)),
		Balances: make(map[string]decimal.Decimal, len(safeSet)),
		Warnings: warnings,
	}
	for id, p := range productSet {
		result.Stocks[id] = stockMap(p.Stocks)
	}
	for id, s := range safeSet {
		result.Balances[id] = s.Balance
	}
	return result
}

func stockMap(stocks []masterdata.WarehouseStock) map[string]int {
	out := make(map[string]int, len(stocks))
	for _, s := range stocks {
		out[s.WarehouseID] += s.Quantity
	}
	return out
}

// Mismatch is a difference between current and replayed state.
type Mismatch struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	WarehouseID string `json:"warehouseId,omitempty"`
	Current     string `json:"current"`
	Replayed    string `json:"replayed"`
}

// Replay rebuilds the store's positions from its own log.
func (s *Store) Replay() ReplayResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Replay(masterdata.List[masterdata.Product](s.registry), masterdata.List[masterdata.Safe](s.registry), s.log)
}

// Verify compares current positions with a replay of the log. An empty
// result means every quantity and balance is reproducible.
func (s *Store) Verify() []Mismatch {
	s.mu.RLock()
	products := masterdata.List[masterdata.Product](s.registry)
	safes := masterdata.List[masterdata.Safe](s.registry)
	result := Replay(products, safes, s.log)
	s.mu.RUnlock()

	var mismatches []Mismatch
	for _, p := range products {
		current := stockMap(p.Stocks)
		replayed := result.Stocks[p.ID]
		for _, wh := range warehouseUnion(current, replayed) {
			if current[wh] != replayed[wh] {
				mismatches = append(mismatches, Mismatch{
					Kind:        "stock",
					ID:          p.ID,
					WarehouseID: wh,
					Current:     strconv.Itoa(current[wh]),
					Replayed:    strconv.Itoa(replayed[wh]),
				})
			}
		}
	}
	for _, safe := range safes {
		replayed := result.Balances[safe.ID]
		if !safe.Balance.Equal(replayed) {
			mismatches = append(mismatches, Mismatch{
				Kind:     "cash",
				ID:       safe.ID,
				Current:  safe.Balance.String(),
				Replayed: replayed.String(),
			})
		}
	}
	return mismatches
}

func warehouseUnion(a, b map[string]int) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
