package validation

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// FILTER
// =============================================================================

// Filter holds the optional restrictions chosen by the user. A nil field
// means "no restriction on that dimension".
type Filter struct {
	// Region keeps records whose region equals this label (case-insensitive).
	Region *string

	// MinAmount keeps records whose line revenue is >= MinAmount.
	MinAmount *decimal.Decimal

	// MaxAmount keeps records whose line revenue is <= MaxAmount.
	MaxAmount *decimal.Decimal
}

// IsEmpty reports whether the filter restricts nothing.
func (f Filter) IsEmpty() bool {
	return f.Region == nil && f.MinAmount == nil && f.MaxAmount == nil
}

// matchesRegion reports whether the record passes the region restriction.
func (f Filter) matchesRegion(t types.Transaction) bool {
	return f.Region == nil || strings.EqualFold(strings.TrimSpace(*f.Region), t.Region)
}

// matchesAmount reports whether the record passes the amount restriction.
func (f Filter) matchesAmount(t types.Transaction) bool {
	revenue := t.Revenue()
	if f.MinAmount != nil && revenue.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && revenue.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

// Apply returns the records that satisfy every restriction in f, in input
// order. Applying the same filter twice yields the same result.
func Apply(records []types.Transaction, f Filter) []types.Transaction {
	out := make([]types.Transaction, 0, len(records))
	for _, t := range records {
		if f.matchesRegion(t) && f.matchesAmount(t) {
			out = append(out, t)
		}
	}
	return out
}

// =============================================================================
// COMBINED VALIDATE + FILTER
// =============================================================================

// Summary counts what happened to the input records.
type Summary struct {
	TotalInput       int
	Invalid          int
	FilteredByRegion int
	FilteredByAmount int
	FinalCount       int
}

// Outcome is the result of ValidateAndFilter.
type Outcome struct {
	// Valid contains every record that passed validation.
	Valid []types.Transaction

	// Filtered is the subset of Valid that also satisfies the filter.
	Filtered []types.Transaction

	// Invalid is the number of records rejected by validation.
	Invalid int

	// Errors describes each validation failure.
	Errors []*ValidationError

	Summary Summary
}

// ValidateAndFilter validates records, then applies f to the valid ones.
// The region restriction is applied before the amount restriction so that
// the summary attributes each exclusion to exactly one dimension.
func (v *Validator) ValidateAndFilter(records []types.Transaction, f Filter) Outcome {
	valid, errs := v.ValidateWithErrors(records)

	byRegion := Apply(valid, Filter{Region: f.Region})
	filtered := Apply(byRegion, Filter{MinAmount: f.MinAmount, MaxAmount: f.MaxAmount})

	invalid := len(records) - len(valid)
	return Outcome{
		Valid:    valid,
		Filtered: filtered,
		Invalid:  invalid,
		Errors:   errs,
		Summary: Summary{
			TotalInput:       len(records),
			Invalid:          invalid,
			FilteredByRegion: len(valid) - len(byRegion),
			FilteredByAmount: len(byRegion) - len(filtered),
			FinalCount:       len(filtered),
		},
	}
}

// ValidateAndFilter runs the default validator.
func ValidateAndFilter(records []types.Transaction, f Filter) Outcome {
	return defaultValidator.ValidateAndFilter(records, f)
}

// =============================================================================
// FILTER OPTIONS
// =============================================================================

// FilterOptions describes the values a user can filter on.
type FilterOptions struct {
	// Regions are the distinct regions present, sorted.
	Regions []string

	// MinAmount and MaxAmount bound the line revenue of the records.
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// Options computes the available filter values for records.
func Options(records []types.Transaction) FilterOptions {
	opts := FilterOptions{Regions: []string{}}
	seen := make(map[string]bool)

	for i, t := range records {
		if !seen[t.Region] {
			seen[t.Region] = true
			opts.Regions = append(opts.Regions, t.Region)
		}

		revenue := t.Revenue()
		if i == 0 || revenue.LessThan(opts.MinAmount) {
			opts.MinAmount = revenue
		}
		if i == 0 || revenue.GreaterThan(opts.MaxAmount) {
			opts.MaxAmount = revenue
		}
	}

	sort.Strings(opts.Regions)
	return opts
}

// ParseFilter builds a Filter from free-text user input. A region not in
// known (case-insensitive) and amounts that are not non-negative numbers are
// treated as absent.
func ParseFilter(region, minAmount, maxAmount string, known []string) Filter {
	var f Filter

	if region = strings.TrimSpace(region); region != "" {
		for _, k := range known {
			if strings.EqualFold(k, region) {
				label := k
				f.Region = &label
				break
			}
		}
	}

	f.MinAmount = parseAmount(minAmount)
	f.MaxAmount = parseAmount(maxAmount)
	return f
}

func parseAmount(value string) *decimal.Decimal {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	d, err := types.ParseDecimal(value)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}
