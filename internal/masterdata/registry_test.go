package masterdata

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(Customer{ID: "c2", Name: "Zed"}))
	require.NoError(t, reg.Add(Customer{ID: "c1", Name: "Amal"}))

	customers := List[Customer](reg)
	require.Len(t, customers, 2)
	require.Equal(t, "c2", customers[0].ID)
	require.Equal(t, "c1", customers[1].ID)
}

func TestRegistryRejectsDuplicateAndEmptyIDs(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(Branch{ID: "b1", Name: "Main"}))
	require.ErrorIs(t, reg.Add(Branch{ID: "b1", Name: "Other"}), ErrDuplicateID)
	require.ErrorIs(t, reg.Add(Branch{Name: "No id"}), ErrInvalidEntity)
}

func TestRegistryUpdateReplacesByIdentity(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(&Supplier{ID: "s1", Name: "Old"}))
	require.NoError(t, reg.Update(Supplier{ID: "s1", Name: "New", Rating: 4}))

	got, ok := Get[Supplier](reg, "s1")
	require.True(t, ok)
	require.Equal(t, "New", got.Name)
	require.Equal(t, 4, got.Rating)

	require.ErrorIs(t, reg.Update(Supplier{ID: "missing"}), ErrNotFound)
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(Warehouse{ID: "w1"}))
	require.NoError(t, reg.Add(Warehouse{ID: "w2"}))
	require.NoError(t, reg.Add(Warehouse{ID: "w3"}))

	require.NoError(t, reg.Remove(KindWarehouse, "w2"))
	require.ErrorIs(t, reg.Remove(KindWarehouse, "w2"), ErrNotFound)

	ids := []string{}
	for _, w := range List[Warehouse](reg) {
		ids = append(ids, w.ID)
	}
	require.Equal(t, []string{"w1", "w3"}, ids)
	require.Equal(t, 2, reg.Len(KindWarehouse))
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(Product{ID: "p1", Stocks: []WarehouseStock{{WarehouseID: "w1", Quantity: 5}}}))

	p, ok := Get[Product](reg, "p1")
	require.True(t, ok)
	p.Stocks[0].Quantity = 99

	again, _ := Get[Product](reg, "p1")
	require.Equal(t, 5, again.Stocks[0].Quantity)
}

func TestProductHelpers(t *testing.T) {
	cost := decimal.NewFromInt(7)
	p := Product{
		ID:          "p1",
		Cost:        &cost,
		ItemsPerBox: 12,
		Stocks:      []WarehouseStock{{WarehouseID: "w1", Quantity: 3}, {WarehouseID: "w2", Quantity: 4}},
	}
	require.Equal(t, 7, p.TotalStock())
	qty, ok := p.StockAt("w2")
	require.True(t, ok)
	require.Equal(t, 4, qty)
	_, ok = p.StockAt("w9")
	require.False(t, ok)
	require.Equal(t, 29, p.QuantityFromPacks(2, 5))
	require.Equal(t, 5, Product{}.QuantityFromPacks(2, 3))

	clone := p.Clone()
	*clone.Cost = decimal.NewFromInt(1)
	require.True(t, p.Cost.Equal(decimal.NewFromInt(7)))
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(Kind("ghost"))
	require.ErrorIs(t, err, ErrInvalidEntity)
	require.False(t, Kind("ghost").Valid())
	require.True(t, KindSafe.Valid())
}
