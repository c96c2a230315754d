package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

const topEntityLimit = 5

// EntityActivity is the total transacted with one named counterparty.
type EntityActivity struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// LowStockItem is a product at or below its reorder level.
type LowStockItem struct {
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	SKU          string `json:"sku,omitempty"`
	CurrentStock int    `json:"currentStock"`
	MinThreshold int    `json:"minThreshold"`
}

// Dashboard is the headline view over the whole log.
type Dashboard struct {
	Sales       decimal.Decimal  `json:"sales"`
	Purchases   decimal.Decimal  `json:"purchases"`
	Net         decimal.Decimal  `json:"net"`
	UnitsSold   int              `json:"unitsSold"`
	COGS        *decimal.Decimal `json:"cogs,omitempty"`
	GrossProfit *decimal.Decimal `json:"grossProfit,omitempty"`
	TopEntities []EntityActivity `json:"topEntities"`
	LowStock    []LowStockItem   `json:"lowStock"`
}

// BuildDashboard aggregates log and flags low stock in products.
func BuildDashboard(log []ledger.Transaction, products []masterdata.Product) Dashboard {
	sales, purchases, cogs := decimal.Zero, decimal.Zero, decimal.Zero
	units := 0
	var order []string
	activity := map[string]decimal.Decimal{}

	for _, tx := range log {
		switch tx.Type {
		case ledger.TypeSale:
			sales = sales.Add(tx.TotalAmount)
			for _, item := range tx.Items {
				units += item.Quantity
				cogs = cogs.Add(item.LineCost())
			}
		case ledger.TypePurchase:
			purchases = purchases.Add(tx.TotalAmount)
		}
		if tx.EntityName == "" {
			continue
		}
		current, seen := activity[tx.EntityName]
		if !seen {
			order = append(order, tx.EntityName)
			current = decimal.Zero
		}
		activity[tx.EntityName] = current.Add(tx.TotalAmount)
	}

	top := make([]EntityActivity, 0, len(order))
	for _, name := range order {
		top = append(top, EntityActivity{Name: name, Value: activity[name]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Value.GreaterThan(top[j].Value) })
	if len(top) > topEntityLimit {
		top = top[:topEntityLimit]
	}

	gross := sales.Sub(cogs)
	return Dashboard{
		Sales:       sales,
		Purchases:   purchases,
		Net:         sales.Sub(purchases),
		UnitsSold:   units,
		COGS:        &cogs,
		GrossProfit: &gross,
		TopEntities: top,
		LowStock:    LowStock(products),
	}
}

// Redact removes cost and profit figures.
func (d Dashboard) Redact(canViewCosts, canViewProfit bool) Dashboard {
	if !canViewCosts {
		d.COGS = nil
	}
	if !canViewProfit {
		d.GrossProfit = nil
	}
	return d
}

// LowStock lists products whose total stock across warehouses is at or
// below MinThreshold, in registry order.
func LowStock(products []masterdata.Product) []LowStockItem {
	out := make([]LowStockItem, 0)
	for _, p := range products {
		total := p.TotalStock()
		if total > p.MinThreshold {
			continue
		}
		out = append(out, LowStockItem{
			ProductID:    p.ID,
			Name:         p.Name,
			SKU:          p.SKU,
			CurrentStock: total,
			MinThreshold: p.MinThreshold,
		})
	}
	return out
}
