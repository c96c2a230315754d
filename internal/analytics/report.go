package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
)

// ProductProfit aggregates sale lines of one product.
type ProductProfit struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	Revenue   decimal.Decimal  `json:"revenue"`
	Cost      *decimal.Decimal `json:"cost,omitempty"`
	Profit    *decimal.Decimal `json:"profit,omitempty"`
}

// CustomerProfit aggregates sales to one counterparty.
type CustomerProfit struct {
	EntityID string           `json:"entityId"`
	Name     string           `json:"name"`
	Orders   int              `json:"orders"`
	Revenue  decimal.Decimal  `json:"revenue"`
	Profit   *decimal.Decimal `json:"profit,omitempty"`
}

// Report is the profitability view over a filtered log. Cost and profit
// fields are nil once redacted.
type Report struct {
	Filter           Filter           `json:"filter"`
	TransactionCount int              `json:"transactionCount"`
	TotalSales       decimal.Decimal  `json:"totalSales"`
	TotalPurchases   decimal.Decimal  `json:"totalPurchases"`
	COGS             *decimal.Decimal `json:"cogs,omitempty"`
	GrossProfit      *decimal.Decimal `json:"grossProfit,omitempty"`
	Margin           *decimal.Decimal `json:"margin,omitempty"`
	Products         []ProductProfit  `json:"products"`
	Customers        []CustomerProfit `json:"customers"`
}

const unknownCustomer = "unknown customer"

// BuildReport folds the transactions matching f. COGS uses the unit cost
// captured on each sale line; margin is gross profit over sales and zero
// without sales. Rankings are by profit, descending, ties in encounter order.
func BuildReport(log []ledger.Transaction, f Filter) Report {
	txs := FilterTransactions(log, f)
	sales, purchases, cogs := decimal.Zero, decimal.Zero, decimal.Zero

	var productOrder []string
	products := map[string]*ProductProfit{}
	var customerOrder []string
	customers := map[string]*CustomerProfit{}

	for _, tx := range txs {
		switch tx.Type {
		case ledger.TypePurchase:
			purchases = purchases.Add(tx.TotalAmount)
		case ledger.TypeSale:
			sales = sales.Add(tx.TotalAmount)
			invoiceProfit := decimal.Zero
			for _, item := range tx.Items {
				revenue := item.LineTotal()
				cost := item.LineCost()
				profit := revenue.Sub(cost)
				invoiceProfit = invoiceProfit.Add(profit)
				cogs = cogs.Add(cost)

				p, ok := products[item.ProductID]
				if !ok {
					p = &ProductProfit{ProductID: item.ProductID, Name: item.ProductName, Revenue: decimal.Zero, Cost: zero(), Profit: zero()}
					products[item.ProductID] = p
					productOrder = append(productOrder, item.ProductID)
				}
				p.Quantity += item.Quantity
				p.Revenue = p.Revenue.Add(revenue)
				*p.Cost = p.Cost.Add(cost)
				*p.Profit = p.Profit.Add(profit)
			}
			if tx.EntityID == "" {
				continue
			}
			c, ok := customers[tx.EntityID]
			if !ok {
				name := tx.EntityName
				if name == "" {
					name = unknownCustomer
				}
				c = &CustomerProfit{EntityID: tx.EntityID, Name: name, Revenue: decimal.Zero, Profit: zero()}
				customers[tx.EntityID] = c
				customerOrder = append(customerOrder, tx.EntityID)
			}
			c.Orders++
			c.Revenue = c.Revenue.Add(tx.TotalAmount)
			*c.Profit = c.Profit.Add(invoiceProfit)
		}
	}

	gross := sales.Sub(cogs)
	margin := decimal.Zero
	if sales.IsPositive() {
		margin = gross.DivRound(sales, 4)
	}

	report := Report{
		Filter:           f,
		TransactionCount: len(txs),
		TotalSales:       sales,
		TotalPurchases:   purchases,
		COGS:             &cogs,
		GrossProfit:      &gross,
		Margin:           &margin,
		Products:         make([]ProductProfit, 0, len(productOrder)),
		Customers:        make([]CustomerProfit, 0, len(customerOrder)),
	}
	for _, id := range productOrder {
		report.Products = append(report.Products, *products[id])
	}
	for _, id := range customerOrder {
		report.Customers = append(report.Customers, *customers[id])
	}
	sort.SliceStable(report.Products, func(i, j int) bool {
		return report.Products[i].Profit.GreaterThan(*report.Products[j].Profit)
	})
	sort.SliceStable(report.Customers, func(i, j int) bool {
		return report.Customers[i].Profit.GreaterThan(*report.Customers[j].Profit)
	})
	return report
}

// Redact removes figures the caller may not see. Rankings stay ordered by
// profit either way.
func (r Report) Redact(canViewCosts, canViewProfit bool) Report {
	out := r
	out.Products = append([]ProductProfit(nil), r.Products...)
	out.Customers = append([]CustomerProfit(nil), r.Customers...)
	if !canViewCosts {
		out.COGS = nil
		for i := range out.Products {
			out.Products[i].Cost = nil
		}
	}
	if !canViewProfit {
		out.GrossProfit = nil
		out.Margin = nil
		for i := range out.Products {
			out.Products[i].Profit = nil
		}
		for i := range out.Customers {
			out.Customers[i].Profit = nil
		}
	}
	return out
}

func zero() *decimal.Decimal {
	z := decimal.Zero
	return &z
}
