package export

import (
	"encoding/csv"
	"io"
)

// utf8BOM marks the file as UTF-8 for spreadsheet tools.
const utf8BOM = "\ufeff"

// WriteCSV serialises t as CSV with a UTF-8 byte order mark.
func WriteCSV(w io.Writer, t Table) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = cellString(cell)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
