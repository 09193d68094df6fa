package enrichment

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sales-analytics/internal/types"
)

func sampleRecords() []types.Transaction {
	return []types.Transaction{
		{TransactionID: "T1", Date: "2025-01-01", ProductID: "P101", ProductName: "Laptop", Quantity: 1, UnitPrice: decimal.RequireFromString("999.99"), Region: "North", CustomerID: "C1"},
		{TransactionID: "T2", Date: "2025-01-02", ProductID: "P999", ProductName: "Unknown", Quantity: 2, UnitPrice: decimal.NewFromInt(5), Region: "South", CustomerID: "C2"},
		{TransactionID: "T3", Date: "2025-01-02", ProductID: "P5", ProductName: "Mouse", Quantity: 3, UnitPrice: decimal.RequireFromString("19.5"), Region: "East", CustomerID: "C1"},
	}
}

func sampleCatalog() CatalogResult {
	return Fetched([]types.CatalogEntry{
		{ID: 101, Title: "Laptop Pro", Category: "laptops", Brand: "Acme", Rating: 4.5},
		{ID: 5, Title: "Mouse", Category: "accessories", Brand: "Clicky", Rating: 3.9},
	})
}

func TestCatalogID(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"P101", 101, true},
		{"P007", 7, true},
		{"p-12-a", 12, true},
		{"PX", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CatalogID(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnrich(t *testing.T) {
	out := Enrich(sampleRecords(), sampleCatalog())

	require.Len(t, out.Records, 3)
	assert.True(t, out.Records[0].Matched)
	assert.Equal(t, "laptops", out.Records[0].Catalog.Category)
	assert.False(t, out.Records[1].Matched, "P999 has no catalog entry")
	assert.Empty(t, out.Records[1].Catalog.Brand)
	assert.True(t, out.Records[2].Matched)

	for i, r := range out.Records {
		assert.Equal(t, sampleRecords()[i].TransactionID, r.TransactionID, "order preserved")
	}

	assert.Equal(t, Stats{
		Total:             3,
		Matched:           2,
		Unmatched:         1,
		MatchRate:         float64(2) / 3 * 100,
		UnmatchedProducts: []string{"P999"},
	}, out.Stats)
}

func TestEnrich_CatalogUnavailable(t *testing.T) {
	out := Enrich(sampleRecords(), Unavailable(errors.New("timeout")))

	require.Len(t, out.Records, 3)
	for _, r := range out.Records {
		assert.False(t, r.Matched)
	}
	assert.Equal(t, 0, out.Stats.Matched)
	assert.Equal(t, 3, out.Stats.Unmatched)
	assert.Zero(t, out.Stats.MatchRate)
	assert.Equal(t, []string{"P101", "P5", "P999"}, out.Stats.UnmatchedProducts)
}

func TestEnrich_Empty(t *testing.T) {
	out := Enrich(nil, sampleCatalog())
	assert.Empty(t, out.Records)
	assert.Zero(t, out.Stats.Total)
	assert.Zero(t, out.Stats.MatchRate)
	assert.Empty(t, out.Stats.UnmatchedProducts)
}

func TestWriteEnriched(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnriched(&buf, Enrich(sampleRecords(), sampleCatalog()).Records))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, EnrichedHeader, lines[0])
	assert.Equal(t, "T1|2025-01-01|P101|Laptop|1|999.99|North|C1|laptops|Acme|4.5|True", lines[1])
	assert.Equal(t, "T2|2025-01-02|P999|Unknown|2|5|South|C2||||False", lines[2])

	for _, line := range lines {
		assert.Len(t, strings.Split(line, "|"), 12)
	}
}

func TestWriteEnrichedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "enriched_sales_data.txt")

	require.NoError(t, WriteEnrichedFile(path, Enrich(sampleRecords(), sampleCatalog()).Records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), EnrichedHeader+"\n"))
}
