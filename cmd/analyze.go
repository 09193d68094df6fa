// =============================================================================
// Sales Analytics - Analyze Command
// =============================================================================
//
// This file defines the 'analyze' command, which runs the full pipeline.
//
// COMMAND USAGE:
//   salesanalytics analyze [flags]
//
// FLAGS:
//   --region       : Keep only one region (North, South, East, West)
//   --min-amount   : Keep records with line revenue >= amount
//   --max-amount   : Keep records with line revenue <= amount
//   --interactive  : Show the available regions and amount range, then prompt
//   --workbook     : Also write an XLSX workbook (overrides report.workbook_file)
//   --archive      : Copy the input file into the output archive afterwards
//
// =============================================================================

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-analytics/internal/logger"
	"github.com/ginjaninja78/sales-analytics/internal/pipeline"
	"github.com/ginjaninja78/sales-analytics/internal/report"
	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/ginjaninja78/sales-analytics/internal/validation"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	regionFlag    string
	minAmountFlag string
	maxAmountFlag string
	interactive   bool
)

// analyzeCmd represents the 'analyze' command.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the sales data file and write the report",
	Long: `The analyze command reads the configured sales file, drops malformed and
invalid records, applies the optional filters, computes analytics, enriches the
records from the product catalog, and writes:

  - the enriched data file (enriched_file)
  - the text report (output_dir/report_file)
  - an optional XLSX workbook (report.workbook_file)
  - an issue log and a run summary in the output directory

If the product catalog cannot be fetched the run still completes; every record
is reported as not enriched.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()
	flags.StringVar(&regionFlag, "region", "", "Only analyze this region")
	flags.StringVar(&minAmountFlag, "min-amount", "", "Minimum line revenue (inclusive)")
	flags.StringVar(&maxAmountFlag, "max-amount", "", "Maximum line revenue (inclusive)")
	flags.BoolVarP(&interactive, "interactive", "i", false, "Prompt for filters after reading the data")

	flags.String("workbook", "", "Also write an XLSX workbook with this name")
	flags.Bool("archive", false, "Copy the input file into the output archive")
	_ = v.BindPFlag("report.workbook_file", flags.Lookup("workbook"))
	_ = v.BindPFlag("archive_input", flags.Lookup("archive"))
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runAnalyze(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	var opts []pipeline.Option
	var filter validation.Filter

	if interactive {
		opts = append(opts, pipeline.WithFilterChooser(promptFilter(cmd.InOrStdin(), out)))
	} else {
		f, err := flagFilter(regionFlag, minAmountFlag, maxAmountFlag)
		if err != nil {
			return err
		}
		filter = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Fprintln(out, "=== Sales Analytics ===")
	fmt.Fprintf(out, "Input: %s\n\n", appConfig.InputFile)

	log := logger.FromContext(ctx).With().Str("command", "analyze").Logger()

	result, err := pipeline.New(appConfig, log, opts...).Run(ctx, filter)
	if err != nil {
		return err
	}

	printResult(out, result)
	return nil
}

// flagFilter builds a filter from command-line flags. Unlike the interactive
// prompt, a bad value is an error.
func flagFilter(region, minAmount, maxAmount string) (validation.Filter, error) {
	var f validation.Filter

	if region != "" {
		canonical, ok := types.CanonicalRegion(region)
		if !ok {
			return f, fmt.Errorf("unknown region %q (expected one of %s)", region, strings.Join(types.Regions, ", "))
		}
		f.Region = &canonical
	}

	var err error
	if f.MinAmount, err = amountFlag("min-amount", minAmount); err != nil {
		return f, err
	}
	if f.MaxAmount, err = amountFlag("max-amount", maxAmount); err != nil {
		return f, err
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return f, fmt.Errorf("--min-amount is greater than --max-amount")
	}
	return f, nil
}

func amountFlag(name, value string) (*decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := types.ParseDecimal(value)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("--%s must be a non-negative number, got %q", name, value)
	}
	return &d, nil
}

// promptFilter returns a chooser that shows the available filter values and
// reads the user's choice. Blank or unrecognized answers mean "no filter".
func promptFilter(in io.Reader, out io.Writer) pipeline.FilterChooser {
	reader := bufio.NewReader(in)

	ask := func(question string) (string, error) {
		fmt.Fprint(out, question)
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimSpace(answer), nil
	}

	return func(opts validation.FilterOptions) (validation.Filter, error) {
		fmt.Fprintln(out, "Filter Options:")
		fmt.Fprintf(out, "  Regions:      %s\n", strings.Join(opts.Regions, ", "))
		fmt.Fprintf(out, "  Amount range: %s - %s\n\n",
			report.FormatMoney(appConfig.Report.CurrencySymbol, opts.MinAmount),
			report.FormatMoney(appConfig.Report.CurrencySymbol, opts.MaxAmount))

		answer, err := ask("Do you want to filter the data? (y/n): ")
		if err != nil {
			return validation.Filter{}, err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			return validation.Filter{}, nil
		}

		region, err := ask("Region (blank for all): ")
		if err != nil {
			return validation.Filter{}, err
		}
		minAmount, err := ask("Minimum amount (blank for none): ")
		if err != nil {
			return validation.Filter{}, err
		}
		maxAmount, err := ask("Maximum amount (blank for none): ")
		if err != nil {
			return validation.Filter{}, err
		}
		fmt.Fprintln(out)

		return validation.ParseFilter(region, minAmount, maxAmount, opts.Regions), nil
	}
}

// describeFilter renders the applied filter for the run summary.
func describeFilter(f validation.Filter) string {
	if f.IsEmpty() {
		return "no filter applied"
	}
	var parts []string
	if f.Region != nil {
		parts = append(parts, "region "+*f.Region)
	}
	if f.MinAmount != nil {
		parts = append(parts, "amount >= "+f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		parts = append(parts, "amount <= "+f.MaxAmount.String())
	}
	return strings.Join(parts, ", ")
}

// printResult prints the run summary.
func printResult(out io.Writer, result *pipeline.Result) {
	symbol := appConfig.Report.CurrencySymbol

	fmt.Fprintln(out, "=== Analysis Complete ===")
	fmt.Fprintf(out, "Run ID:          %s\n", result.RunID)
	fmt.Fprintf(out, "Data lines:      %d (%s)\n", result.DataLines, result.Encoding)
	fmt.Fprintf(out, "Filter:          %s\n", describeFilter(result.Filter))
	fmt.Fprintf(out, "Malformed:       %d\n", result.Malformed)
	fmt.Fprintf(out, "Invalid:         %d\n", result.Filtering.Invalid)
	fmt.Fprintf(out, "Filtered out:    %d\n", result.Filtering.FilteredByRegion+result.Filtering.FilteredByAmount)
	fmt.Fprintf(out, "Analyzed:        %d\n", result.Filtering.FinalCount)
	fmt.Fprintf(out, "Total revenue:   %s\n", report.FormatMoney(symbol, result.Analytics.TotalRevenue))
	fmt.Fprintf(out, "Enriched:        %d/%d (%s)\n", result.Enrichment.Matched, result.Enrichment.Total, result.CatalogStatus)
	fmt.Fprintf(out, "Time elapsed:    %s\n\n", result.EndTime.Sub(result.StartTime))

	o := result.Outputs
	fmt.Fprintln(out, "Outputs:")
	for _, line := range [][2]string{
		{"Report", o.ReportFile},
		{"Enriched data", o.EnrichedFile},
		{"Workbook", o.WorkbookFile},
		{"Issue log", o.IssueLog},
		{"Run summary", o.SummaryLog},
		{"Archived input", o.ArchivedFile},
	} {
		if line[1] != "" {
			fmt.Fprintf(out, "  ✓ %-15s %s\n", line[0]+":", line[1])
		}
	}
}
