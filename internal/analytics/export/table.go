// Package export renders statements, reports and the transaction registry as
// CSV or XLSX downloads.
package export

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/accounting/statement"
	"github.com/manara-erp/manara/internal/analytics"
	"github.com/manara-erp/manara/internal/ledger"
)

// Format is a download format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for unknown formats.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ParseFormat validates a format query value.
func ParseFormat(v string) (Format, error) {
	switch f := Format(v); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, v)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns base with the format extension.
func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

// Table is a titled grid of cells. Cells hold strings, ints or decimals.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case int:
		return strconv.Itoa(c)
	case decimal.Decimal:
		return c.String()
	case *decimal.Decimal:
		if c == nil {
			return ""
		}
		return c.String()
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprint(c)
	}
}

// StatementTable lays out a statement with a closing totals row.
func StatementTable(st statement.Statement) Table {
	t := Table{
		Title:   fmt.Sprintf("%s %s", st.Kind, st.AccountName),
		Headers: []string{"Date", "Reference", "Type", "Description", "Debit", "Credit", "Balance"},
	}
	for _, row := range st.Rows {
		t.Rows = append(t.Rows, []any{row.Date, row.TransactionID, string(row.Type), describe(row.Description), row.Debit, row.Credit, row.Balance})
	}
	t.Rows = append(t.Rows, []any{"", "", "", st.Label, st.TotalDebit, st.TotalCredit, st.Net})
	return t
}

// TransactionsTable lists log entries.
func TransactionsTable(txs []ledger.Transaction) Table {
	t := Table{
		Title:   "transactions",
		Headers: []string{"Date", "Reference", "Type", "Counterparty", "Amount"},
	}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []any{tx.Date, tx.ID, string(tx.Type), counterparty(tx.EntityName), tx.TotalAmount})
	}
	return t
}

// ReportTable summarises a report. Redacted figures render empty.
func ReportTable(r analytics.Report) Table {
	t := Table{
		Title:   "report",
		Headers: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Transactions", r.TransactionCount},
			{"Total sales", r.TotalSales},
			{"Total purchases", r.TotalPurchases},
			{"Cost of goods sold", r.COGS},
			{"Gross profit", r.GrossProfit},
			{"Margin", r.Margin},
		},
	}
	for _, p := range r.Products {
		t.Rows = append(t.Rows, []any{"Product: " + p.Name, p.Profit})
	}
	for _, c := range r.Customers {
		t.Rows = append(t.Rows, []any{"Customer: " + c.Name, c.Profit})
	}
	return t
}

func describe(v string) string {
	if v == "" {
		return "ledger entry"
	}
	return v
}

func counterparty(v string) string {
	if v == "" {
		return "internal"
	}
	return v
}
