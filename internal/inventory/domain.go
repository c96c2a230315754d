package inventory

import (
	"errors"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

var (
	// ErrProductRequired is returned when a stock card is requested without a product.
	ErrProductRequired = errors.New("inventory: product required")
	// ErrWarehouseRequired is returned when a stock card is requested without a warehouse.
	ErrWarehouseRequired = errors.New("inventory: warehouse required")
)

// ProductSet holds the mutable product records touched by one transaction.
type ProductSet map[string]*masterdata.Product

// NewProductSet clones the given products into a mutable working set.
func NewProductSet(products ...masterdata.Product) ProductSet {
	set := make(ProductSet, len(products))
	for _, p := range products {
		clone := p.Clone()
		set[p.ID] = &clone
	}
	return set
}

// StockCardEntry is one movement on a product card for a single warehouse.
type StockCardEntry struct {
	TxID       string                 `json:"txId"`
	TxType     ledger.TransactionType `json:"txType"`
	Date       string                 `json:"date"`
	EntityName string                 `json:"entityName"`
	QtyIn      int                    `json:"qtyIn"`
	QtyOut     int                    `json:"qtyOut"`
	BalanceQty int                    `json:"balanceQty"`
	Clamped    bool                   `json:"clamped,omitempty"`
}

// StockCard is the movement history of a product in one warehouse.
type StockCard struct {
	ProductID   string           `json:"productId"`
	ProductName string           `json:"productName"`
	WarehouseID string           `json:"warehouseId"`
	Opening     int              `json:"opening"`
	Closing     int              `json:"closing"`
	Entries     []StockCardEntry `json:"entries"`
}
