package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sales-analytics/pkg/utils"
)

// Sheet names of the analytics workbook, in order.
const (
	SheetSummary    = "Summary"
	SheetRegions    = "Regions"
	SheetProducts   = "Products"
	SheetCustomers  = "Customers"
	SheetDaily      = "Daily"
	SheetEnrichment = "Enrichment"
)

// BuildWorkbook lays the report input out as an XLSX workbook. The caller
// owns the returned file and must Close it.
func BuildWorkbook(in Input) (*excelize.File, error) {
	f := excelize.NewFile()

	// The default sheet becomes the summary.
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetRegions, SheetProducts, SheetCustomers, SheetDaily, SheetEnrichment} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sheets := map[string][][]any{
		SheetSummary:    summaryRows(in),
		SheetRegions:    regionRows(in),
		SheetProducts:   productRows(in),
		SheetCustomers:  customerRows(in),
		SheetDaily:      dailyRows(in),
		SheetEnrichment: enrichmentRows(in),
	}

	for sheet, rows := range sheets {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
			}
		}
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("style %s header: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, "A", "F", 18); err != nil {
			f.Close()
			return nil, fmt.Errorf("size %s columns: %w", sheet, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook writes the analytics workbook atomically.
func WriteWorkbook(path string, in Input) error {
	f, err := BuildWorkbook(in)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if err := utils.WriteAtomic(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	}); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func summaryRows(in Input) [][]any {
	a := in.Analytics
	return [][]any{
		{"Metric", "Value"},
		{"Generated", in.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Run ID", in.RunID},
		{"Total Revenue", a.TotalRevenue.InexactFloat64()},
		{"Total Transactions", a.TransactionCount},
		{"Average Order Value", a.AverageOrderValue.Round(2).InexactFloat64()},
		{"First Date", a.FirstDate},
		{"Last Date", a.LastDate},
		{"Data Lines Read", in.DataLines},
		{"Malformed Lines", in.Malformed},
		{"Invalid Records", in.Filtering.Invalid},
		{"Filtered by Region", in.Filtering.FilteredByRegion},
		{"Filtered by Amount", in.Filtering.FilteredByAmount},
	}
}

func regionRows(in Input) [][]any {
	rows := [][]any{{"Region", "Sales", "% of Total", "Transactions", "Average Transaction"}}
	for _, rs := range in.Analytics.Regions {
		avg := in.Analytics.RegionAverages[rs.Region]
		rows = append(rows, []any{
			rs.Region,
			rs.Revenue.InexactFloat64(),
			rs.Percentage.InexactFloat64(),
			rs.Count,
			avg.Round(2).InexactFloat64(),
		})
	}
	return rows
}

func productRows(in Input) [][]any {
	rows := [][]any{{"Rank", "Product ID", "Product Name", "Qty Sold", "Revenue", "Low Performer"}}

	low := make(map[string]bool, len(in.Analytics.LowPerformers))
	for _, ps := range in.Analytics.LowPerformers {
		low[ps.ProductID] = true
	}

	for i, ps := range in.Analytics.TopProducts {
		rows = append(rows, []any{i + 1, ps.ProductID, ps.ProductName, ps.Quantity, ps.Revenue.InexactFloat64(), low[ps.ProductID]})
	}
	return rows
}

func customerRows(in Input) [][]any {
	rows := [][]any{{"Rank", "Customer ID", "Total Spent", "Order Count", "Average Order", "Products"}}
	for i, cs := range in.Analytics.Customers {
		rows = append(rows, []any{
			i + 1,
			cs.CustomerID,
			cs.TotalSpent.InexactFloat64(),
			cs.PurchaseCount,
			cs.AverageOrderValue.Round(2).InexactFloat64(),
			strings.Join(cs.Products, ", "),
		})
	}
	return rows
}

func dailyRows(in Input) [][]any {
	rows := [][]any{{"Date", "Revenue", "Transactions", "Unique Customers"}}
	for _, ds := range in.Analytics.DailyTrend {
		rows = append(rows, []any{ds.Date, ds.Revenue.InexactFloat64(), ds.Count, ds.UniqueCustomers})
	}
	return rows
}

func enrichmentRows(in Input) [][]any {
	e := in.Enrichment
	rows := [][]any{
		{"Metric", "Value"},
		{"Catalog Status", in.CatalogStatus},
		{"Total Records", e.Total},
		{"Matched", e.Matched},
		{"Unmatched", e.Unmatched},
		{"Success Rate (%)", e.MatchRate},
	}
	for _, id := range e.UnmatchedProducts {
		rows = append(rows, []any{"Not Enriched", id})
	}
	return rows
}
