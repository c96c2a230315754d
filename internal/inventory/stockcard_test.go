package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

func TestBuildStockCardMatchesAppliedStock(t *testing.T) {
	product := masterdata.Product{
		ID:            "p1",
		Name:          "Tea",
		Stocks:        []masterdata.WarehouseStock{{WarehouseID: "w1", Quantity: 2}},
		OpeningStocks: []masterdata.WarehouseStock{{WarehouseID: "w1", Quantity: 2}},
	}
	log := []ledger.Transaction{
		{ID: "t1", Date: "2024-01-01", Type: ledger.TypePurchase, WarehouseID: "w1", EntityName: "Supplier A",
			Items: []ledger.TransactionItem{{ProductID: "p1", Quantity: 10}}},
		{ID: "t2", Date: "2024-01-02", Type: ledger.TypeSale, WarehouseID: "w1",
			Items: []ledger.TransactionItem{{ProductID: "p1", Quantity: 4, LossQuantity: 1}}},
		{ID: "t3", Date: "2024-01-03", Type: ledger.TypeTransfer, FromWarehouseID: "w1", ToWarehouseID: "w2",
			Items: []ledger.TransactionItem{{ProductID: "p1", Quantity: 3}}},
		{ID: "t4", Date: "2024-01-04", Type: ledger.TypeSale, WarehouseID: "w2",
			Items: []ledger.TransactionItem{{ProductID: "p1", Quantity: 1}}},
		{ID: "t5", Date: "2024-01-05", Type: ledger.TypeLoss, WarehouseID: "w1",
			Items: []ledger.TransactionItem{{ProductID: "p1", Quantity: 9}}},
		{ID: "t6", Date: "2024-01-06", Type: ledger.TypeSalary},
	}

	card, err := BuildStockCard(log, product, "w1")
	require.NoError(t, err)
	require.Equal(t, 2, card.Opening)
	require.Len(t, card.Entries, 4)
	require.Equal(t, 12, card.Entries[0].BalanceQty)
	require.Equal(t, 7, card.Entries[1].BalanceQty)
	require.Equal(t, 5, card.Entries[1].QtyOut)
	require.Equal(t, 4, card.Entries[2].BalanceQty)
	require.Equal(t, 0, card.Entries[3].BalanceQty)
	require.True(t, card.Entries[3].Clamped)

	set := NewProductSet(masterdata.Product{ID: "p1", Stocks: product.OpeningStocks})
	for _, tx := range log {
		ApplyInventoryEffect(set, tx)
	}
	qty, _ := set["p1"].StockAt("w1")
	require.Equal(t, qty, card.Closing)
}

func TestBuildStockCardRequiresProductAndWarehouse(t *testing.T) {
	_, err := BuildStockCard(nil, masterdata.Product{}, "w1")
	require.ErrorIs(t, err, ErrProductRequired)
	_, err = BuildStockCard(nil, masterdata.Product{ID: "p1"}, "")
	require.ErrorIs(t, err, ErrWarehouseRequired)
}
