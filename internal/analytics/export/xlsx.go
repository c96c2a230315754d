package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// WriteXLSX renders t as a single-sheet workbook. Decimal cells are written
// as numbers.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headers := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = xlsxValue(cell)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return err
		}
	}
	if t.Title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: t.Title}); err != nil {
			return fmt.Errorf("export: doc props: %w", err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func xlsxValue(v any) any {
	switch c := v.(type) {
	case decimal.Decimal:
		return c.InexactFloat64()
	case *decimal.Decimal:
		if c == nil {
			return nil
		}
		return c.InexactFloat64()
	}
	return v
}
