package enrichment

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/ginjaninja78/sales-analytics/pkg/utils"
)

// EnrichedHeader is the first line of the enriched data file.
const EnrichedHeader = "TransactionID|Date|ProductID|ProductName|Quantity|UnitPrice|Region|CustomerID|API_Category|API_Brand|API_Rating|API_Match"

// Stats summarizes an enrichment pass.
type Stats struct {
	Total     int
	Matched   int
	Unmatched int

	// MatchRate is Matched/Total as a percentage (0 when Total is 0).
	MatchRate float64

	// UnmatchedProducts lists the distinct unmatched product ids, sorted.
	UnmatchedProducts []string
}

// Enrichment is the result of Enrich.
type Enrichment struct {
	Records []types.EnrichedTransaction
	Stats   Stats
}

// CatalogID extracts the numeric catalog id from a product id by keeping
// its digits ("P101" -> 101). ok is false when there are no digits.
func CatalogID(productID string) (int, bool) {
	var digits strings.Builder
	for _, r := range productID {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return id, true
}

// Enrich pairs each record with its catalog entry. The output has the same
// length and order as records. An unavailable catalog leaves every record
// unmatched.
func Enrich(records []types.Transaction, catalog CatalogResult) Enrichment {
	out := Enrichment{Records: make([]types.EnrichedTransaction, 0, len(records))}
	unmatched := make(map[string]bool)

	for _, t := range records {
		enriched := types.EnrichedTransaction{Transaction: t}

		if catalog.State == CatalogFetched {
			if id, ok := CatalogID(t.ProductID); ok {
				if entry, found := catalog.Mapping[id]; found {
					enriched.Matched = true
					enriched.Catalog = entry
				}
			}
		}

		if enriched.Matched {
			out.Stats.Matched++
		} else {
			out.Stats.Unmatched++
			unmatched[t.ProductID] = true
		}
		out.Records = append(out.Records, enriched)
	}

	out.Stats.Total = len(records)
	if out.Stats.Total > 0 {
		out.Stats.MatchRate = float64(out.Stats.Matched) / float64(out.Stats.Total) * 100
	}

	out.Stats.UnmatchedProducts = make([]string, 0, len(unmatched))
	for id := range unmatched {
		out.Stats.UnmatchedProducts = append(out.Stats.UnmatchedProducts, id)
	}
	sort.Strings(out.Stats.UnmatchedProducts)

	return out
}

// WriteEnriched writes the enriched records in the pipe-delimited format.
// Unmatched records carry empty catalog fields and API_Match=False.
func WriteEnriched(w io.Writer, records []types.EnrichedTransaction) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, EnrichedHeader)

	for _, r := range records {
		category, brand, rating := "", "", ""
		match := "False"
		if r.Matched {
			category = sanitize(r.Catalog.Category)
			brand = sanitize(r.Catalog.Brand)
			rating = strconv.FormatFloat(r.Catalog.Rating, 'f', -1, 64)
			match = "True"
		}

		fields := []string{
			r.TransactionID,
			r.Date,
			r.ProductID,
			sanitize(r.ProductName),
			strconv.Itoa(r.Quantity),
			r.UnitPrice.String(),
			r.Region,
			r.CustomerID,
			category,
			brand,
			rating,
			match,
		}
		fmt.Fprintln(bw, strings.Join(fields, "|"))
	}

	return bw.Flush()
}

// WriteEnrichedFile writes the enriched data file atomically.
func WriteEnrichedFile(path string, records []types.EnrichedTransaction) error {
	if err := utils.WriteAtomic(path, func(w io.Writer) error {
		return WriteEnriched(w, records)
	}); err != nil {
		return fmt.Errorf("write enriched file: %w", err)
	}
	return nil
}

// sanitize keeps free text from breaking the delimited format.
func sanitize(s string) string {
	return strings.NewReplacer("|", "/", "\n", " ", "\r", " ").Replace(s)
}
