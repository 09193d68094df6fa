// =============================================================================
// Sales Analytics - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which reads, parses, and validates
// the input file and prints what it found. Nothing is written and the product
// catalog is not contacted.
//
// COMMAND USAGE:
//   salesanalytics inspect [--issues]
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-analytics/internal/pipeline"
	"github.com/ginjaninja78/sales-analytics/internal/report"
	"github.com/ginjaninja78/sales-analytics/internal/validation"
)

// showIssues prints every rejected line.
var showIssues bool

// inspectCmd represents the 'inspect' command.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Check the sales data file without running the analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ins, err := pipeline.Inspect(appConfig)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		symbol := appConfig.Report.CurrencySymbol

		fmt.Fprintln(out, "=== Sales File Inspection ===")
		fmt.Fprintf(out, "File:           %s\n", ins.SourceFile)
		fmt.Fprintf(out, "Encoding:       %s\n", ins.Encoding)
		fmt.Fprintf(out, "Header skipped: %t\n", ins.HeaderSkipped)
		fmt.Fprintf(out, "Data lines:     %d\n", ins.DataLines)
		fmt.Fprintf(out, "Parsed:         %d\n", ins.Parsed)
		fmt.Fprintf(out, "Malformed:      %d\n", ins.Malformed)
		fmt.Fprintf(out, "Valid:          %d\n", ins.Valid)
		fmt.Fprintf(out, "Invalid:        %d\n", ins.Invalid)
		fmt.Fprintf(out, "Regions:        %v\n", ins.Options.Regions)
		fmt.Fprintf(out, "Amount range:   %s - %s\n",
			report.FormatMoney(symbol, ins.Options.MinAmount),
			report.FormatMoney(symbol, ins.Options.MaxAmount))

		if ins.LineCountErr != nil {
			fmt.Fprintf(out, "\n✗ %v\n", ins.LineCountErr)
		}

		if showIssues {
			fmt.Fprintf(out, "\nMalformed lines: %d\n", len(ins.ParseIssues))
			for _, issue := range ins.ParseIssues {
				fmt.Fprintf(out, "  - %v\n", issue)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, strings.TrimSuffix(validation.FormatErrors(ins.ValidationErrors), "\n"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&showIssues, "issues", false, "List every malformed line and validation error")
}
