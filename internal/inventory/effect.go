package inventory

import (
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// ApplyInventoryEffect applies the stock movement of tx to the products in set.
// Unknown products are skipped and decrements that would go below zero are
// clamped; both conditions come back as warnings.
func ApplyInventoryEffect(set ProductSet, tx ledger.Transaction) []ledger.Warning {
	if !tx.Type.MovesStock() {
		return nil
	}
	var warnings []ledger.Warning
	for _, item := range tx.Items {
		product, ok := set[item.ProductID]
		if !ok || product == nil {
			warnings = append(warnings, ledger.Warning{
				Kind:          ledger.WarnReferenceNotFound,
				TransactionID: tx.ID,
				ProductID:     item.ProductID,
			})
			continue
		}
		switch tx.Type {
		case ledger.TypeTransfer:
			if w, short := decrement(product, tx.FromWarehouseID, item.Quantity); short {
				w.TransactionID = tx.ID
				warnings = append(warnings, w)
			}
			increment(product, tx.ToWarehouseID, item.Quantity)
		case ledger.TypePurchase:
			increment(product, tx.WarehouseID, item.Quantity)
		case ledger.TypeSale, ledger.TypeLoss:
			if w, short := decrement(product, tx.WarehouseID, item.Outbound()); short {
				w.TransactionID = tx.ID
				warnings = append(warnings, w)
			}
		}
	}
	return warnings
}

func increment(p *masterdata.Product, warehouseID string, qty int) {
	for i := range p.Stocks {
		if p.Stocks[i].WarehouseID == warehouseID {
			p.Stocks[i].Quantity += qty
			return
		}
	}
	p.Stocks = append(p.Stocks, masterdata.WarehouseStock{WarehouseID: warehouseID, Quantity: qty})
}

// decrement lowers stock with a floor of zero. A missing stock row counts as
// zero available and is not created.
func decrement(p *masterdata.Product, warehouseID string, qty int) (ledger.Warning, bool) {
	available := 0
	idx := -1
	for i := range p.Stocks {
		if p.Stocks[i].WarehouseID == warehouseID {
			idx = i
			available = p.Stocks[i].Quantity
			break
		}
	}
	if idx >= 0 {
		p.Stocks[idx].Quantity = max(available-qty, 0)
	}
	if qty <= available {
		return ledger.Warning{}, false
	}
	return ledger.Warning{
		Kind:        ledger.WarnInsufficientStock,
		ProductID:   p.ID,
		WarehouseID: warehouseID,
		Requested:   qty,
		Available:   available,
	}, true
}

// Movement returns the quantity entering and leaving warehouseID for one
// product line, before any clamping.
func Movement(tx ledger.Transaction, item ledger.TransactionItem, warehouseID string) (in, out int) {
	switch tx.Type {
	case ledger.TypePurchase:
		if tx.WarehouseID == warehouseID {
			in = item.Quantity
		}
	case ledger.TypeSale, ledger.TypeLoss:
		if tx.WarehouseID == warehouseID {
			out = item.Outbound()
		}
	case ledger.TypeTransfer:
		if tx.FromWarehouseID == warehouseID {
			out = item.Quantity
		}
		if tx.ToWarehouseID == warehouseID {
			in = item.Quantity
		}
	}
	return in, out
}
