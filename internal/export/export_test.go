package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

func sampleRecords() []extraction.CompanyRecord {
	return []extraction.CompanyRecord{
		{
			URL:         "https://acme.com",
			Name:        "Acme Foods",
			Type:        "Food & Beverage",
			Emails:      []string{"info@acme.com", "sales@acme.com"},
			Phones:      []string{"(555) 123-4567"},
			ExtractedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Status:      extraction.StatusCompleted,
			Products: []extraction.ProductRecord{
				{Name: "Classic Tofu", URL: "https://acme.com/product/tofu", Price: "$3.49"},
				{Name: "Tempeh"},
			},
		},
		{
			URL:    "https://widgets.com",
			Name:   "Widget Co",
			Status: extraction.StatusFailed,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, csvColumns, rows[0])

	first := rows[1]
	require.Len(t, first, len(csvColumns))
	require.Equal(t, "https://acme.com", first[0])
	require.Equal(t, "Acme Foods", first[1])
	require.Equal(t, "info@acme.com, sales@acme.com", first[4])
	// Only the first product is flattened into the row.
	require.Equal(t, "Classic Tofu", first[8])
	require.Equal(t, "$3.49", first[13])
	require.Equal(t, "2025-06-01T12:00:00Z", first[18])
	require.Equal(t, "completed", first[19])

	// Records without products leave the product columns empty.
	require.Empty(t, rows[2][8])
	require.Equal(t, "failed", rows[2][19])
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRecords()))

	var decoded []extraction.CompanyRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "Acme Foods", decoded[0].Name)
	require.Len(t, decoded[0].Products, 2)
	require.Equal(t, "Tempeh", decoded[0].Products[1].Name)
}

func TestWriteJSONNilRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	require.Equal(t, "[]", strings.TrimSpace(buf.String()))
}
