package validation

import (
	"testing"

	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleRecords() []types.Transaction {
	return []types.Transaction{
		txn("T1", "North", 3, "50"),  // 150
		txn("T2", "North", 2, "50"),  // 100
		txn("T3", "South", 10, "20"), // 200
		txn("T4", "East", 1, "1000"), // 1000
		txn("T5", "West", 1, "5"),    // 5
	}
}

func ids(records []types.Transaction) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.TransactionID
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"T1", "T2", "T3", "T4", "T5"}},
		{"region", Filter{Region: ptr("north")}, []string{"T1", "T2"}},
		{"min inclusive", Filter{MinAmount: ptr(decimal.NewFromInt(150))}, []string{"T1", "T3", "T4"}},
		{"max inclusive", Filter{MaxAmount: ptr(decimal.NewFromInt(150))}, []string{"T1", "T2", "T5"}},
		{"range", Filter{MinAmount: ptr(decimal.NewFromInt(100)), MaxAmount: ptr(decimal.NewFromInt(200))}, []string{"T1", "T2", "T3"}},
		{"region and range", Filter{Region: ptr("NORTH"), MinAmount: ptr(decimal.NewFromInt(120))}, []string{"T1"}},
		{"no match", Filter{Region: ptr("Central")}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sampleRecords(), tt.filter)))
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	filters := []Filter{
		{},
		{Region: ptr("South")},
		{MinAmount: ptr(decimal.NewFromInt(100)), MaxAmount: ptr(decimal.NewFromInt(999))},
	}

	for _, f := range filters {
		once := Apply(sampleRecords(), f)
		twice := Apply(once, f)
		assert.Equal(t, ids(once), ids(twice))
	}
}

func TestValidateAndFilter_Summary(t *testing.T) {
	records := append(sampleRecords(), txn("T6", "North", -1, "5"))

	out := ValidateAndFilter(records, Filter{
		Region:    ptr("North"),
		MinAmount: ptr(decimal.NewFromInt(120)),
	})

	assert.Len(t, out.Valid, 5)
	assert.Equal(t, []string{"T1"}, ids(out.Filtered))
	assert.Equal(t, 1, out.Invalid)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, Summary{
		TotalInput:       6,
		Invalid:          1,
		FilteredByRegion: 3,
		FilteredByAmount: 1,
		FinalCount:       1,
	}, out.Summary)
}

func TestValidateAndFilter_FilteredSubsetOfValid(t *testing.T) {
	out := ValidateAndFilter(sampleRecords(), Filter{MaxAmount: ptr(decimal.NewFromInt(150))})

	validIDs := make(map[string]bool)
	for _, r := range out.Valid {
		validIDs[r.TransactionID] = true
	}
	for _, r := range out.Filtered {
		assert.True(t, validIDs[r.TransactionID])
	}
}

func TestOptions(t *testing.T) {
	opts := Options(sampleRecords())

	assert.Equal(t, []string{"East", "North", "South", "West"}, opts.Regions)
	assert.Equal(t, "5", opts.MinAmount.String())
	assert.Equal(t, "1000", opts.MaxAmount.String())

	empty := Options(nil)
	assert.Empty(t, empty.Regions)
	assert.True(t, empty.MinAmount.IsZero())
}

func TestParseFilter(t *testing.T) {
	known := []string{"East", "North"}

	f := ParseFilter(" north ", "100", "1,500.50", known)
	require.NotNil(t, f.Region)
	assert.Equal(t, "North", *f.Region)
	require.NotNil(t, f.MinAmount)
	assert.Equal(t, "100", f.MinAmount.String())
	require.NotNil(t, f.MaxAmount)
	assert.Equal(t, "1500.5", f.MaxAmount.String())

	f = ParseFilter("Mars", "abc", "-3", known)
	assert.True(t, f.IsEmpty())

	f = ParseFilter("", "1e9", "2E3", known)
	assert.True(t, f.IsEmpty())

	f = ParseFilter("", "", "", known)
	assert.True(t, f.IsEmpty())
}
