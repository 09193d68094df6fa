// =============================================================================
// Sales Analytics - Report Formatter
// =============================================================================
//
// This module renders the plain-text sales report.
//
// LAYOUT:
//   - Header (title, generation time, run id, records processed)
//   - OVERALL SUMMARY
//   - REGION-WISE PERFORMANCE
//   - TOP N PRODUCTS / TOP N CUSTOMERS
//   - DAILY SALES TREND
//   - PRODUCT PERFORMANCE ANALYSIS
//   - API ENRICHMENT SUMMARY
//
// Render is deterministic: generation time and run id are part of the input,
// and every table comes from an already-ordered analytics result.
//
// =============================================================================

package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sales-analytics/internal/analytics"
	"github.com/ginjaninja78/sales-analytics/internal/enrichment"
	"github.com/ginjaninja78/sales-analytics/internal/validation"
	"github.com/ginjaninja78/sales-analytics/pkg/utils"
)

const (
	// lineWidth is the width of the section separators.
	lineWidth = 60

	// defaultTopCustomers is the number of rows in the customers table.
	defaultTopCustomers = 5
)

var (
	heavyRule = strings.Repeat("=", lineWidth)
	lightRule = strings.Repeat("-", lineWidth)
)

// =============================================================================
// INPUT
// =============================================================================

// Input carries everything the report shows.
type Input struct {
	GeneratedAt time.Time
	RunID       string
	SourceFile  string

	// DataLines is the number of data lines read from the input file.
	DataLines int

	// Malformed is the number of lines the parser could not decode.
	Malformed int

	// Filtering holds the validation and filter counts.
	Filtering validation.Summary

	Analytics  analytics.Result
	Enrichment enrichment.Stats

	// CatalogStatus is a one-line catalog description.
	CatalogStatus string

	// CurrencySymbol prefixes money values. Empty means no symbol.
	CurrencySymbol string

	// TopCustomers limits the customers table. Negative means 5.
	TopCustomers int
}

// =============================================================================
// RENDERING
// =============================================================================

// Render produces the full report text.
func Render(in Input) string {
	var b strings.Builder
	r := renderer{in: in, b: &b}

	r.header()
	r.summary()
	r.regions()
	r.topProducts()
	r.topCustomers()
	r.dailyTrend()
	r.performance()
	r.enrichment()

	return b.String()
}

type renderer struct {
	in Input
	b  *strings.Builder
}

func (r renderer) line(format string, args ...any) {
	fmt.Fprintf(r.b, format+"\n", args...)
}

func (r renderer) section(title string) {
	r.line("%s", title)
	r.line("%s", lightRule)
}

func (r renderer) endSection() {
	r.line("%s", lightRule)
	r.line("")
}

func (r renderer) money(d decimal.Decimal) string {
	return FormatMoney(r.in.CurrencySymbol, d)
}

func (r renderer) header() {
	r.line("%s", heavyRule)
	r.line("                 SALES ANALYTICS REPORT")
	r.line("                 Generated: %s", r.in.GeneratedAt.Format("2006-01-02 15:04:05"))
	if r.in.RunID != "" {
		r.line("                 Run ID: %s", r.in.RunID)
	}
	r.line("                 Records Processed: %d", r.in.Analytics.TransactionCount)
	r.line("%s", heavyRule)
	r.line("")
}

func (r renderer) summary() {
	a := r.in.Analytics
	f := r.in.Filtering

	dateRange := "N/A"
	if a.FirstDate != "" {
		dateRange = a.FirstDate + " to " + a.LastDate
	}

	r.section("OVERALL SUMMARY")
	r.line("Total Revenue:          %s", r.money(a.TotalRevenue))
	r.line("Total Transactions:     %d", a.TransactionCount)
	r.line("Average Order Value:    %s", r.money(a.AverageOrderValue))
	r.line("Date Range:             %s", dateRange)
	r.line("")
	if r.in.SourceFile != "" {
		r.line("Source File:            %s", r.in.SourceFile)
	}
	r.line("Data Lines Read:        %d", r.in.DataLines)
	r.line("Malformed Lines:        %d", r.in.Malformed)
	r.line("Invalid Records:        %d", f.Invalid)
	r.line("Filtered by Region:     %d", f.FilteredByRegion)
	r.line("Filtered by Amount:     %d", f.FilteredByAmount)
	r.endSection()
}

func (r renderer) regions() {
	r.section("REGION-WISE PERFORMANCE")
	r.line("%-15s%-20s%-15s%-15s", "Region", "Sales", "% of Total", "Transactions")
	for _, rs := range r.in.Analytics.Regions {
		r.line("%-15s%-20s%-15s%-15d", rs.Region, r.money(rs.Revenue), rs.Percentage.StringFixed(2)+"%", rs.Count)
	}
	r.endSection()
}

func (r renderer) topProducts() {
	products := r.in.Analytics.TopProducts

	r.section(fmt.Sprintf("TOP %d PRODUCTS", len(products)))
	r.line("%-10s%-20s%-15s%-15s", "Rank", "Product Name", "Qty Sold", "Revenue")
	for i, ps := range products {
		r.line("%-10d%-20s%-15d%-15s", i+1, truncate(ps.ProductName, 19), ps.Quantity, r.money(ps.Revenue))
	}
	r.endSection()
}

func (r renderer) topCustomers() {
	n := r.in.TopCustomers
	if n < 0 {
		n = defaultTopCustomers
	}
	customers := r.in.Analytics.Customers
	if len(customers) > n {
		customers = customers[:n]
	}

	r.section(fmt.Sprintf("TOP %d CUSTOMERS", len(customers)))
	r.line("%-10s%-15s%-15s%-15s", "Rank", "Customer ID", "Total Spent", "Order Count")
	for i, cs := range customers {
		r.line("%-10d%-15s%-15s%-15d", i+1, cs.CustomerID, r.money(cs.TotalSpent), cs.PurchaseCount)
	}
	r.endSection()
}

func (r renderer) dailyTrend() {
	r.section("DAILY SALES TREND")
	r.line("%-15s%-20s%-15s%-15s", "Date", "Revenue", "Transactions", "Unique Customers")
	for _, ds := range r.in.Analytics.DailyTrend {
		r.line("%-15s%-20s%-15d%-15d", ds.Date, r.money(ds.Revenue), ds.Count, ds.UniqueCustomers)
	}
	r.endSection()
}

func (r renderer) performance() {
	a := r.in.Analytics

	peak := "N/A"
	if a.HasPeakDay {
		peak = fmt.Sprintf("%s (%s, %d transactions)", a.PeakDay.Date, r.money(a.PeakDay.Revenue), a.PeakDay.Count)
	}

	low := "None"
	if len(a.LowPerformers) > 0 {
		names := make([]string, len(a.LowPerformers))
		for i, ps := range a.LowPerformers {
			names[i] = fmt.Sprintf("%s (%d)", ps.ProductName, ps.Quantity)
		}
		low = strings.Join(names, ", ")
	}

	r.section("PRODUCT PERFORMANCE ANALYSIS")
	r.line("Best Selling Day:        %s", peak)
	r.line("Low Performing Products: %s", low)
	r.line("")
	r.line("Average Transaction Value per Region:")

	regions := make([]string, 0, len(a.RegionAverages))
	for region := range a.RegionAverages {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	for _, region := range regions {
		r.line("  %-7s:   %s", region, r.money(a.RegionAverages[region]))
	}
	r.endSection()
}

func (r renderer) enrichment() {
	e := r.in.Enrichment

	notEnriched := "None"
	if len(e.UnmatchedProducts) > 0 {
		notEnriched = strings.Join(e.UnmatchedProducts, ", ")
	}

	status := r.in.CatalogStatus
	if status == "" {
		status = "N/A"
	}

	r.section("API ENRICHMENT SUMMARY")
	r.line("Catalog Status:          %s", status)
	r.line("Total Products Enriched: %d", e.Matched)
	r.line("Records Not Enriched:    %d", e.Unmatched)
	r.line("Success Rate:            %.2f%%", e.MatchRate)
	r.line("Products Not Enriched:   %s", notEnriched)
	r.line("%s", lightRule)
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteReport writes the report text atomically.
func WriteReport(path, text string) error {
	if err := utils.WriteAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// FormatMoney renders d with two decimals and comma-grouped thousands,
// prefixed by symbol ("₹1,234.50").
func FormatMoney(symbol string, d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}

	return sign + symbol + grouped.String() + "." + fracPart
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
