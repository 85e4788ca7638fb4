// Package export renders company records as CSV and JSON documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

// csvColumns fixes the column order of exported rows.
var csvColumns = []string{
	"url", "name", "description", "type",
	"emails", "phones", "addresses", "logo",
	"product_name", "product_url", "product_category", "product_subcategory",
	"product_family", "price", "quantity", "product_description",
	"specifications", "images",
	"extracted_at", "status",
}

// WriteCSV writes one flattened row per company record.
func WriteCSV(w io.Writer, records []extraction.CompanyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		flat := rec.Flatten()
		row := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			row[i] = flat[col]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", rec.URL, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
