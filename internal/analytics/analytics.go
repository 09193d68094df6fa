// =============================================================================
// Sales Analytics - Analytics Engine
// =============================================================================
//
// This module computes the aggregate views used by the report.
//
// RULES:
//   - Every function is pure: the input slice is never modified
//   - Empty input yields zero values or empty slices, never a panic
//   - Every ordering is total (ties are broken by an identifier) so that
//     output is deterministic for any input order
//
// =============================================================================

package analytics

import (
	"sort"

	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTopN is used when a negative n is passed to TopProducts.
	DefaultTopN = 5

	// DefaultLowThreshold is used when a negative threshold is passed to
	// LowPerformers.
	DefaultLowThreshold = 10
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// RESULT TYPES
// =============================================================================

// RegionSales is the revenue of one region.
type RegionSales struct {
	Region  string
	Revenue decimal.Decimal
	Count   int

	// Percentage is the share of total revenue, rounded to 2 decimal places.
	Percentage decimal.Decimal
}

// ProductSales is the total quantity and revenue of one product.
type ProductSales struct {
	ProductID   string
	ProductName string
	Quantity    int
	Revenue     decimal.Decimal
}

// CustomerSummary describes the purchases of one customer.
type CustomerSummary struct {
	CustomerID        string
	TotalSpent        decimal.Decimal
	PurchaseCount     int
	AverageOrderValue decimal.Decimal

	// Products lists the distinct product names bought, sorted.
	Products []string
}

// DailySales is the activity of one calendar day.
type DailySales struct {
	Date            string
	Revenue         decimal.Decimal
	Count           int
	UniqueCustomers int
}

// Result bundles every analytics view.
type Result struct {
	TotalRevenue      decimal.Decimal
	TransactionCount  int
	AverageOrderValue decimal.Decimal

	// FirstDate and LastDate bound the dates seen. Empty when there are no
	// records.
	FirstDate string
	LastDate  string

	Regions       []RegionSales
	TopProducts   []ProductSales
	Customers     []CustomerSummary
	DailyTrend    []DailySales
	PeakDay       DailySales
	HasPeakDay    bool
	LowPerformers []ProductSales

	// RegionAverages maps each region to its average transaction value.
	RegionAverages map[string]decimal.Decimal
}

// Options tunes Compute. Values are passed through to TopProducts and
// LowPerformers, so the zero Options yields empty product tables.
type Options struct {
	TopN         int
	LowThreshold int
}

// =============================================================================
// AGGREGATES
// =============================================================================

// TotalRevenue returns the sum of line revenue over records.
func TotalRevenue(records []types.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range records {
		total = total.Add(t.Revenue())
	}
	return total
}

// RegionWiseSales groups revenue by region, ordered by revenue descending
// and then by region name.
func RegionWiseSales(records []types.Transaction) []RegionSales {
	byRegion := make(map[string]*RegionSales)
	total := decimal.Zero

	for _, t := range records {
		rs, ok := byRegion[t.Region]
		if !ok {
			rs = &RegionSales{Region: t.Region, Revenue: decimal.Zero}
			byRegion[t.Region] = rs
		}
		revenue := t.Revenue()
		rs.Revenue = rs.Revenue.Add(revenue)
		rs.Count++
		total = total.Add(revenue)
	}

	out := make([]RegionSales, 0, len(byRegion))
	for _, rs := range byRegion {
		rs.Percentage = decimal.Zero
		if !total.IsZero() {
			rs.Percentage = rs.Revenue.Mul(hundred).Div(total).Round(2)
		}
		out = append(out, *rs)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// productTotals groups records by product id. The name kept is the first
// one seen for the id.
func productTotals(records []types.Transaction) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	order := make([]string, 0)

	for _, t := range records {
		ps, ok := byProduct[t.ProductID]
		if !ok {
			ps = &ProductSales{ProductID: t.ProductID, ProductName: t.ProductName, Revenue: decimal.Zero}
			byProduct[t.ProductID] = ps
			order = append(order, t.ProductID)
		}
		ps.Quantity += t.Quantity
		ps.Revenue = ps.Revenue.Add(t.Revenue())
	}

	out := make([]ProductSales, 0, len(order))
	for _, id := range order {
		out = append(out, *byProduct[id])
	}
	return out
}

// TopProducts returns the n products with the highest total quantity, ties
// broken by product id ascending. Zero returns no products; a negative n
// means DefaultTopN.
func TopProducts(records []types.Transaction, n int) []ProductSales {
	if n < 0 {
		n = DefaultTopN
	}

	products := productTotals(records)
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].ProductID < products[j].ProductID
	})

	if len(products) > n {
		products = products[:n]
	}
	return products
}

// LowPerformers returns products whose total quantity is below threshold,
// ascending by quantity then product id. Zero matches nothing, since no
// product sells a negative quantity; a negative threshold means
// DefaultLowThreshold.
func LowPerformers(records []types.Transaction, threshold int) []ProductSales {
	if threshold < 0 {
		threshold = DefaultLowThreshold
	}

	low := make([]ProductSales, 0)
	for _, ps := range productTotals(records) {
		if ps.Quantity < threshold {
			low = append(low, ps)
		}
	}

	sort.Slice(low, func(i, j int) bool {
		if low[i].Quantity != low[j].Quantity {
			return low[i].Quantity < low[j].Quantity
		}
		return low[i].ProductID < low[j].ProductID
	})
	return low
}

// CustomerAnalysis summarizes each customer, ordered by total spend
// descending and then by customer id.
func CustomerAnalysis(records []types.Transaction) []CustomerSummary {
	type acc struct {
		summary  CustomerSummary
		products map[string]bool
	}
	byCustomer := make(map[string]*acc)

	for _, t := range records {
		a, ok := byCustomer[t.CustomerID]
		if !ok {
			a = &acc{
				summary:  CustomerSummary{CustomerID: t.CustomerID, TotalSpent: decimal.Zero},
				products: make(map[string]bool),
			}
			byCustomer[t.CustomerID] = a
		}
		a.summary.TotalSpent = a.summary.TotalSpent.Add(t.Revenue())
		a.summary.PurchaseCount++
		a.products[t.ProductName] = true
	}

	out := make([]CustomerSummary, 0, len(byCustomer))
	for _, a := range byCustomer {
		s := a.summary
		s.AverageOrderValue = s.TotalSpent.Div(decimal.NewFromInt(int64(s.PurchaseCount)))
		s.Products = make([]string, 0, len(a.products))
		for name := range a.products {
			s.Products = append(s.Products, name)
		}
		sort.Strings(s.Products)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalSpent.Cmp(out[j].TotalSpent); c != 0 {
			return c > 0
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

// DailyTrend returns per-day activity in chronological order. Dates are
// ISO formatted so lexical order is chronological.
func DailyTrend(records []types.Transaction) []DailySales {
	byDate := make(map[string]*DailySales)
	customers := make(map[string]map[string]bool)

	for _, t := range records {
		ds, ok := byDate[t.Date]
		if !ok {
			ds = &DailySales{Date: t.Date, Revenue: decimal.Zero}
			byDate[t.Date] = ds
			customers[t.Date] = make(map[string]bool)
		}
		ds.Revenue = ds.Revenue.Add(t.Revenue())
		ds.Count++
		customers[t.Date][t.CustomerID] = true
	}

	out := make([]DailySales, 0, len(byDate))
	for date, ds := range byDate {
		ds.UniqueCustomers = len(customers[date])
		out = append(out, *ds)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// PeakDay returns the day with the highest revenue, the earliest one on a
// tie. ok is false when records is empty.
func PeakDay(records []types.Transaction) (DailySales, bool) {
	trend := DailyTrend(records)
	if len(trend) == 0 {
		return DailySales{}, false
	}

	peak := trend[0]
	for _, ds := range trend[1:] {
		if ds.Revenue.GreaterThan(peak.Revenue) {
			peak = ds
		}
	}
	return peak, true
}

// RegionAverages maps each region to its average transaction value.
func RegionAverages(records []types.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, rs := range RegionWiseSales(records) {
		out[rs.Region] = rs.Revenue.Div(decimal.NewFromInt(int64(rs.Count)))
	}
	return out
}

// =============================================================================
// COMPUTE
// =============================================================================

// Compute runs every analytics view over records.
func Compute(records []types.Transaction, opts Options) Result {
	result := Result{
		TotalRevenue:      TotalRevenue(records),
		TransactionCount:  len(records),
		AverageOrderValue: decimal.Zero,
		Regions:           RegionWiseSales(records),
		TopProducts:       TopProducts(records, opts.TopN),
		Customers:         CustomerAnalysis(records),
		DailyTrend:        DailyTrend(records),
		LowPerformers:     LowPerformers(records, opts.LowThreshold),
		RegionAverages:    RegionAverages(records),
	}

	if result.TransactionCount > 0 {
		result.AverageOrderValue = result.TotalRevenue.Div(decimal.NewFromInt(int64(result.TransactionCount)))
	}

	if n := len(result.DailyTrend); n > 0 {
		result.FirstDate = result.DailyTrend[0].Date
		result.LastDate = result.DailyTrend[n-1].Date
	}

	result.PeakDay, result.HasPeakDay = PeakDay(records)
	return result
}
