package salesfile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	record, err := ParseLine("T1|2025-01-01|P10|Widget|3|50.0|North|C1")
	require.NoError(t, err)

	assert.Equal(t, "T1", record.TransactionID)
	assert.Equal(t, "2025-01-01", record.Date)
	assert.Equal(t, "P10", record.ProductID)
	assert.Equal(t, "Widget", record.ProductName)
	assert.Equal(t, 3, record.Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(record.UnitPrice))
	assert.Equal(t, "North", record.Region)
	assert.Equal(t, "C1", record.CustomerID)
	assert.True(t, decimal.NewFromInt(150).Equal(record.Revenue()))
}

func TestParseLine_Normalizes(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		quantity int
		price    string
		region   string
		customer string
		product  string
	}{
		{
			name:     "thousands separators",
			line:     "T1|2025-01-01|P10|Widget|1,200|45,000.50|North|C1",
			quantity: 1200, price: "45000.5", region: "North", customer: "C1", product: "Widget",
		},
		{
			name:     "stray whitespace and lowercase region",
			line:     " T1 | 2025-01-01 | P10 |  Laptop   Pro | 2 | 10 | south | C7 ",
			quantity: 2, price: "10", region: "South", customer: "C7", product: "Laptop Pro",
		},
		{
			name:     "customer before region",
			line:     "T1|2025-01-01|P10|Widget|2|10|C9|East",
			quantity: 2, price: "10", region: "East", customer: "C9", product: "Widget",
		},
		{
			name:     "extra trailing fields",
			line:     "T1|2025-01-01|P10|Widget|2|10|West|C1|ignored",
			quantity: 2, price: "10", region: "West", customer: "C1", product: "Widget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.quantity, record.Quantity)
			assert.Equal(t, tt.price, record.UnitPrice.String())
			assert.Equal(t, tt.region, record.Region)
			assert.Equal(t, tt.customer, record.CustomerID)
			assert.Equal(t, tt.product, record.ProductName)
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"non-numeric quantity", "T3|bad-date|P11||abc|50.0|East|C3"},
		{"non-numeric price", "T3|2025-01-01|P11|Gadget|1|fifty|East|C3"},
		{"fractional quantity", "T3|2025-01-01|P11|Gadget|1.5|50|East|C3"},
		{"empty quantity", "T3|2025-01-01|P11|Gadget||50|East|C3"},
		{"too few fields", "T3|2025-01-01|P11|Gadget|1|50"},
		{"wrong delimiter", "T3,2025-01-01,P11,Gadget,1,50,East,C3"},
		{"exponent price", "T3|2025-01-01|P11|Gadget|1|1e5000|East|C3"},
		{"upper-case exponent price", "T3|2025-01-01|P11|Gadget|1|1E3|East|C3"},
		{"hex price", "T3|2025-01-01|P11|Gadget|1|0x10|East|C3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.Error(t, err)
		})
	}
}

func TestParseLines_CountsMalformed(t *testing.T) {
	lines := []string{
		"T1|2025-01-01|P10|Widget|3|50.0|North|C1",
		"",
		"T2|2025-01-01|P10|Widget|2|50.0|North|C2",
		"T3|bad-date|P11||abc|50.0|East|C3",
		"   ",
	}

	result := ParseLines(lines)

	require.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.Malformed)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, 4, result.Issues[0].LineNumber)
	assert.Contains(t, result.Issues[0].Error(), "line 4")
	assert.Equal(t, 1, result.Records[0].LineNumber)
	assert.Equal(t, 3, result.Records[1].LineNumber)
}

func TestParseLines_ExponentPriceIsMalformed(t *testing.T) {
	result := ParseLines([]string{
		"T1|2025-01-01|P10|Widget|3|50.0|North|C1",
		"T2|2025-01-01|P10|Widget|1|1e5000|North|C2",
	})

	require.Len(t, result.Records, 1)
	assert.Equal(t, "T1", result.Records[0].TransactionID)
	assert.Equal(t, 1, result.Malformed)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, 2, result.Issues[0].LineNumber)
	assert.Contains(t, result.Issues[0].Error(), "1e5000")
}

func TestParseLines_CountInvariant(t *testing.T) {
	batches := [][]string{
		{},
		{"", " "},
		{"garbage"},
		{"T1|2025-01-01|P10|Widget|3|50.0|North|C1", "x|y", "T2|2025-01-02|P11|Gadget|-1|5|West|C2"},
		{"T1|2025-01-01|P10|Widget|3|50.0|North|C1", "T1|2025-01-01|P10|Widget|3|oops|North|C1", ""},
	}

	for _, lines := range batches {
		nonEmpty := 0
		for _, l := range lines {
			if len(l) > 0 && l != " " {
				nonEmpty++
			}
		}
		result := ParseLines(lines)
		assert.Equal(t, nonEmpty, len(result.Records)+result.Malformed, "lines: %q", lines)
	}
}

func TestParseLines_Empty(t *testing.T) {
	result := ParseLines(nil)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.Malformed)
}
