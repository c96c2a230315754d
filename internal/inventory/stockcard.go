package inventory

import (
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

// BuildStockCard replays log for one product and warehouse, starting from the
// product's opening stock. log must be in append order.
func BuildStockCard(log []ledger.Transaction, product masterdata.Product, warehouseID string) (StockCard, error) {
	if product.ID == "" {
		return StockCard{}, ErrProductRequired
	}
	if warehouseID == "" {
		return StockCard{}, ErrWarehouseRequired
	}
	opening := 0
	for _, s := range product.OpeningStocks {
		if s.WarehouseID == warehouseID {
			opening = s.Quantity
		}
	}
	card := StockCard{
		ProductID:   product.ID,
		ProductName: product.Name,
		WarehouseID: warehouseID,
		Opening:     opening,
		Entries:     []StockCardEntry{},
	}
	balance := opening
	for _, tx := range log {
		if !tx.Type.MovesStock() {
			continue
		}
		for _, item := range tx.Items {
			if item.ProductID != product.ID {
				continue
			}
			in, out := Movement(tx, item, warehouseID)
			if in == 0 && out == 0 {
				continue
			}
			clamped := out > balance
			balance = max(balance-out, 0) + in
			card.Entries = append(card.Entries, StockCardEntry{
				TxID:       tx.ID,
				TxType:     tx.Type,
				Date:       tx.Date,
				EntityName: tx.EntityName,
				QtyIn:      in,
				QtyOut:     out,
				BalanceQty: balance,
				Clamped:    clamped,
			})
		}
	}
	card.Closing = balance
	return card, nil
}
