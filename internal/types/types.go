// =============================================================================
// Sales Analytics - Shared Types
// =============================================================================
//
// This package contains the record types shared across the pipeline stages.
// They live here to avoid import cycles between:
//   - salesfile   (produces Transaction)
//   - validation  (filters Transaction)
//   - analytics   (aggregates Transaction)
//   - enrichment  (produces EnrichedTransaction from CatalogEntry)
//   - report      (renders all of the above)
//
// =============================================================================

package types

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REGIONS
// =============================================================================

// Regions is the fixed set of sales regions, in display order.
var Regions = []string{"North", "South", "East", "West"}

// CanonicalRegion returns the canonical spelling of a region label and
// whether it belongs to the fixed set. Matching is case-insensitive.
func CanonicalRegion(label string) (string, bool) {
	label = strings.TrimSpace(label)
	for _, r := range Regions {
		if strings.EqualFold(r, label) {
			return r, true
		}
	}
	return label, false
}

// =============================================================================
// AMOUNTS
// =============================================================================

// ErrNotPlainDecimal is returned by ParseDecimal for anything other than an
// optionally signed run of digits with an optional fraction.
var ErrNotPlainDecimal = errors.New("not a plain decimal number")

// plainDecimal rejects exponent forms ("1e5"), which would let a short field
// expand into an arbitrarily long value.
var plainDecimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseDecimal parses a money or price field. Surrounding whitespace and
// thousands separators ("1,200.50") are removed first.
func ParseDecimal(value string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if !plainDecimal.MatchString(cleaned) {
		return decimal.Zero, ErrNotPlainDecimal
	}
	return decimal.NewFromString(cleaned)
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// Transaction represents one sales line item read from the input file.
// Values are set once by the parser and never modified afterwards.
type Transaction struct {
	// TransactionID is the transaction identifier (e.g. "T001").
	TransactionID string `validate:"required,startswith=T"`

	// Date is the sale date as it appears in the file (YYYY-MM-DD).
	Date string `validate:"required,datetime=2006-01-02"`

	// ProductID is the product identifier (e.g. "P101").
	ProductID string `validate:"required,startswith=P"`

	// ProductName is the human-readable product name.
	ProductName string `validate:"required"`

	// Quantity is the number of units sold.
	Quantity int `validate:"gte=0"`

	// UnitPrice is the price of a single unit.
	UnitPrice decimal.Decimal `validate:"-"`

	// Region is the sales region label.
	Region string `validate:"required,region"`

	// CustomerID is the customer identifier (e.g. "C001").
	CustomerID string `validate:"required,startswith=C"`

	// LineNumber is the 1-based position of the source line among the data
	// lines of the input file. Useful for error reporting.
	LineNumber int `validate:"-"`
}

// Revenue returns the line revenue (Quantity x UnitPrice).
func (t Transaction) Revenue() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(int64(t.Quantity)))
}

// =============================================================================
// CATALOG TYPES
// =============================================================================

// CatalogEntry is one product returned by the external product catalog.
type CatalogEntry struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
	Stock    int     `json:"stock"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
}

// EnrichedTransaction pairs a transaction with its catalog entry.
// When Matched is false the catalog fields are zero values.
type EnrichedTransaction struct {
	Transaction

	// Matched is true when a catalog entry was found for the product id.
	Matched bool

	// Catalog holds the matched catalog entry.
	Catalog CatalogEntry
}
