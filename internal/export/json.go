package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

// WriteJSON writes the full nested records as an indented JSON array.
func WriteJSON(w io.Writer, records []extraction.CompanyRecord) error {
	if records == nil {
		records = []extraction.CompanyRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
