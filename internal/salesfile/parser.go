package salesfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/shopspring/decimal"
)

// Delimiter separates fields in a sales line.
const Delimiter = "|"

// FieldCount is the minimum number of fields in a sales line.
const FieldCount = 8

// Field positions in a sales line.
const (
	colTransactionID = iota
	colDate
	colProductID
	colProductName
	colQuantity
	colUnitPrice
	colRegion
	colCustomerID
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// Issue describes a line the parser could not turn into a record.
type Issue struct {
	// LineNumber is the 1-based index of the line in the parsed input.
	LineNumber int

	// Line is the raw line.
	Line string

	// Reason is a human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("line %d: %s", i.LineNumber, i.Reason)
}

// ParseResult is the outcome of parsing a batch of lines.
type ParseResult struct {
	// Records contains the successfully parsed transactions, in input order.
	Records []types.Transaction

	// Malformed is the number of non-empty lines that were skipped.
	Malformed int

	// Issues explains each skipped line.
	Issues []Issue
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseLines turns raw sales lines into transactions. A bad line never stops
// the batch: it is counted in Malformed and described in Issues. Blank lines
// are skipped without being counted.
func ParseLines(lines []string) ParseResult {
	result := ParseResult{Records: make([]types.Transaction, 0, len(lines))}

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		record, err := ParseLine(line)
		if err != nil {
			result.Malformed++
			result.Issues = append(result.Issues, Issue{
				LineNumber: i + 1,
				Line:       line,
				Reason:     err.Error(),
			})
			continue
		}

		record.LineNumber = i + 1
		result.Records = append(result.Records, record)
	}

	return result
}

// ParseLine parses a single sales line.
//
// Every field is trimmed. Quantity must be an integer and unit price a
// decimal; thousands separators ("1,200") are accepted in both. Files that
// carry CustomerID before Region are recognized and swapped back.
func ParseLine(line string) (types.Transaction, error) {
	fields := strings.Split(line, Delimiter)
	if len(fields) < FieldCount {
		return types.Transaction{}, fmt.Errorf("expected %d fields, got %d", FieldCount, len(fields))
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	quantity, err := parseQuantity(fields[colQuantity])
	if err != nil {
		return types.Transaction{}, err
	}

	price, err := parsePrice(fields[colUnitPrice])
	if err != nil {
		return types.Transaction{}, err
	}

	region, customer := fields[colRegion], fields[colCustomerID]
	if _, ok := types.CanonicalRegion(region); !ok {
		if _, swapped := types.CanonicalRegion(customer); swapped {
			region, customer = customer, region
		}
	}
	region, _ = types.CanonicalRegion(region)

	return types.Transaction{
		TransactionID: fields[colTransactionID],
		Date:          fields[colDate],
		ProductID:     fields[colProductID],
		ProductName:   cleanName(fields[colProductName]),
		Quantity:      quantity,
		UnitPrice:     price,
		Region:        region,
		CustomerID:    customer,
	}, nil
}

// parseQuantity coerces the quantity field to an integer.
func parseQuantity(value string) (int, error) {
	cleaned := stripThousands(value)
	if cleaned == "" {
		return 0, fmt.Errorf("quantity is empty")
	}
	q, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not an integer", value)
	}
	return q, nil
}

// parsePrice coerces the unit price field to a decimal.
func parsePrice(value string) (decimal.Decimal, error) {
	cleaned := stripThousands(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("unit price is empty")
	}
	p, err := types.ParseDecimal(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unit price %q is not a number", value)
	}
	return p, nil
}

func stripThousands(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), ",", "")
}

// cleanName collapses runs of internal whitespace in product names.
func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
