// =============================================================================
// Sales Analytics - Pipeline Module
// =============================================================================
//
// This module orchestrates one analysis run over a sales data file.
//
// PIPELINE:
//   1. Read the sales file (encoding detection, header skip, line window)
//   2. Parse lines into transactions
//   3. Validate records and apply the user's filter
//   4. Compute analytics over the filtered records
//   5. Fetch the product catalog and enrich the filtered records
//   6. Write the enriched data file
//   7. Render and write the report (and optional workbook)
//   8. Write the issue log and run summary, archive the input
//
// FAILURE MODEL:
//   - Bad lines and invalid records are counted and logged, never fatal
//   - An unavailable catalog is logged at warn; the run continues unenriched
//   - I/O failures and an out-of-window line count abort the run
//
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/sales-analytics/internal/analytics"
	"github.com/ginjaninja78/sales-analytics/internal/config"
	"github.com/ginjaninja78/sales-analytics/internal/enrichment"
	"github.com/ginjaninja78/sales-analytics/internal/report"
	"github.com/ginjaninja78/sales-analytics/internal/salesfile"
	"github.com/ginjaninja78/sales-analytics/internal/validation"
	"github.com/ginjaninja78/sales-analytics/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one run.
type Result struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	// Encoding is the encoding the input file was decoded with.
	Encoding string

	// DataLines is the number of non-empty data lines read.
	DataLines int

	// Malformed is the number of lines the parser rejected.
	Malformed int

	// Filter is the filter that was applied.
	Filter validation.Filter

	// Filtering holds the validation and filter counts.
	Filtering validation.Summary

	Analytics     analytics.Result
	Enrichment    enrichment.Stats
	CatalogStatus string

	Outputs Outputs
}

// Outputs lists the artifacts written by a run. Empty fields were not
// written.
type Outputs struct {
	EnrichedFile string
	ReportFile   string
	WorkbookFile string
	IssueLog     string
	SummaryLog   string
	ArchivedFile string
}

// list returns every non-empty output path.
func (o Outputs) list() []string {
	var out []string
	for _, p := range []string{o.EnrichedFile, o.ReportFile, o.WorkbookFile, o.IssueLog, o.ArchivedFile} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// FilterChooser picks the filter once the available values are known.
type FilterChooser func(opts validation.FilterOptions) (validation.Filter, error)

// Pipeline runs the analysis for a configuration.
type Pipeline struct {
	cfg       *config.Config
	log       zerolog.Logger
	fetcher   enrichment.Fetcher
	validator *validation.Validator
	now       func() time.Time
	chooser   FilterChooser
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFetcher replaces the HTTP catalog client.
func WithFetcher(f enrichment.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithFilterChooser asks chooser for the filter after validation, instead of
// using the filter passed to Run.
func WithFilterChooser(chooser FilterChooser) Option {
	return func(p *Pipeline) { p.chooser = chooser }
}

// New creates a Pipeline. Without WithFetcher the catalog is fetched with an
// HTTP client built from cfg.API.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		log:       logger,
		validator: validation.NewValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = enrichment.NewClient(enrichment.ClientConfig{
			BaseURL:  cfg.API.BaseURL,
			Limit:    cfg.API.Limit,
			Timeout:  cfg.API.Timeout,
			Attempts: cfg.API.Attempts,
		}, logger)
	}
	return p
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline with filter.
func (p *Pipeline) Run(ctx context.Context, filter validation.Filter) (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		StartTime: p.now(),
	}
	log := p.log.With().Str("run_id", result.RunID).Logger()
	fm := utils.NewFileManager(p.cfg.OutputDir)
	fm.UseTimestampSubdirs = p.cfg.ArchiveTimestampSubdirs

	// =========================================================================
	// STEP 1: READ SALES FILE
	// =========================================================================

	log.Info().Str("file", p.cfg.InputFile).Msg("[1/8] reading sales data")

	raw, err := salesfile.ReadLines(p.cfg.InputFile, salesfile.ReadOptions{
		MinLines: p.cfg.MinLines,
		MaxLines: p.cfg.MaxLines,
	})
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	result.Encoding = raw.Encoding
	result.DataLines = len(raw.Lines)

	log.Info().
		Int("lines", result.DataLines).
		Str("encoding", raw.Encoding).
		Bool("header_skipped", raw.HeaderSkipped).
		Msg("sales data read")

	// =========================================================================
	// STEP 2: PARSE TRANSACTIONS
	// =========================================================================

	log.Info().Msg("[2/8] parsing transactions")

	parsed := salesfile.ParseLines(raw.Lines)
	result.Malformed = parsed.Malformed
	for _, issue := range parsed.Issues {
		log.Debug().Int("line", issue.LineNumber).Str("reason", issue.Reason).Msg("malformed line skipped")
	}

	log.Info().Int("records", len(parsed.Records)).Int("malformed", parsed.Malformed).Msg("transactions parsed")

	// =========================================================================
	// STEP 3: VALIDATE AND FILTER
	// =========================================================================

	log.Info().Msg("[3/8] validating and filtering")

	if p.chooser != nil {
		valid, _ := p.validator.Validate(parsed.Records)
		filter, err = p.chooser(validation.Options(valid))
		if err != nil {
			return nil, fmt.Errorf("choose filter: %w", err)
		}
	}
	result.Filter = filter
	if filter.IsEmpty() {
		log.Info().Msg("no filter applied")
	}

	outcome := p.validator.ValidateAndFilter(parsed.Records, filter)
	result.Filtering = outcome.Summary
	for _, verr := range outcome.Errors {
		log.Debug().Err(verr).Msg("record rejected")
	}

	log.Info().
		Int("total", outcome.Summary.TotalInput).
		Int("invalid", outcome.Summary.Invalid).
		Int("filtered_by_region", outcome.Summary.FilteredByRegion).
		Int("filtered_by_amount", outcome.Summary.FilteredByAmount).
		Int("final", outcome.Summary.FinalCount).
		Msg("records validated")

	// =========================================================================
	// STEP 4: ANALYTICS
	// =========================================================================

	log.Info().Msg("[4/8] computing analytics")

	result.Analytics = analytics.Compute(outcome.Filtered, analytics.Options{
		TopN:         p.cfg.Analytics.TopN,
		LowThreshold: p.cfg.Analytics.LowThreshold,
	})

	log.Info().
		Str("revenue", result.Analytics.TotalRevenue.StringFixed(2)).
		Int("regions", len(result.Analytics.Regions)).
		Int("customers", len(result.Analytics.Customers)).
		Msg("analytics computed")

	// =========================================================================
	// STEP 5: FETCH CATALOG AND ENRICH
	// =========================================================================

	log.Info().Msg("[5/8] fetching product catalog")

	catalog := p.fetcher.FetchCatalog(ctx)
	result.CatalogStatus = catalog.Describe()
	if catalog.State != enrichment.CatalogFetched {
		log.Warn().Err(catalog.Reason).Msg("continuing without catalog enrichment")
	}

	enriched := enrichment.Enrich(outcome.Filtered, catalog)
	result.Enrichment = enriched.Stats

	log.Info().
		Int("matched", enriched.Stats.Matched).
		Int("unmatched", enriched.Stats.Unmatched).
		Msg("records enriched")

	// =========================================================================
	// STEP 6: WRITE ENRICHED DATA
	// =========================================================================

	log.Info().Str("file", p.cfg.EnrichedFile).Msg("[6/8] writing enriched data")

	if err := enrichment.WriteEnrichedFile(p.cfg.EnrichedFile, enriched.Records); err != nil {
		return nil, err
	}
	result.Outputs.EnrichedFile = p.cfg.EnrichedFile

	// =========================================================================
	// STEP 7: WRITE REPORT
	// =========================================================================

	reportPath := p.cfg.ReportPath()
	log.Info().Str("file", reportPath).Msg("[7/8] generating report")

	input := report.Input{
		GeneratedAt:    p.now(),
		RunID:          result.RunID,
		SourceFile:     p.cfg.InputFile,
		DataLines:      result.DataLines,
		Malformed:      result.Malformed,
		Filtering:      result.Filtering,
		Analytics:      result.Analytics,
		Enrichment:     result.Enrichment,
		CatalogStatus:  result.CatalogStatus,
		CurrencySymbol: p.cfg.Report.CurrencySymbol,
		TopCustomers:   p.cfg.Analytics.TopN,
	}

	if err := report.WriteReport(reportPath, report.Render(input)); err != nil {
		return nil, err
	}
	result.Outputs.ReportFile = reportPath

	if workbookPath := p.cfg.WorkbookPath(); workbookPath != "" {
		if err := report.WriteWorkbook(workbookPath, input); err != nil {
			return nil, err
		}
		result.Outputs.WorkbookFile = workbookPath
		log.Info().Str("file", workbookPath).Msg("workbook written")
	}

	// =========================================================================
	// STEP 8: ISSUE LOG, ARCHIVE, SUMMARY
	// =========================================================================

	log.Info().Msg("[8/8] finishing run")

	issueLog, err := fm.WriteIssueLog(issueEntries(parsed.Issues, outcome.Errors), result.RunID, result.StartTime)
	if err != nil {
		return nil, err
	}
	result.Outputs.IssueLog = issueLog

	if p.cfg.ArchiveInput {
		archived, err := fm.ArchiveInputFile(p.cfg.InputFile, result.StartTime)
		if err != nil {
			return nil, err
		}
		result.Outputs.ArchivedFile = archived
	}

	result.EndTime = p.now()

	summaryLog, err := fm.WriteSummaryLog(utils.RunSummary{
		RunID:            result.RunID,
		StartTime:        result.StartTime,
		EndTime:          result.EndTime,
		InputFile:        p.cfg.InputFile,
		Encoding:         result.Encoding,
		DataLines:        result.DataLines,
		Malformed:        result.Malformed,
		Invalid:          result.Filtering.Invalid,
		FilteredByRegion: result.Filtering.FilteredByRegion,
		FilteredByAmount: result.Filtering.FilteredByAmount,
		FinalCount:       result.Filtering.FinalCount,
		CatalogStatus:    result.CatalogStatus,
		Matched:          result.Enrichment.Matched,
		Unmatched:        result.Enrichment.Unmatched,
		Outputs:          result.Outputs.list(),
	})
	if err != nil {
		return nil, err
	}
	result.Outputs.SummaryLog = summaryLog

	log.Info().Dur("elapsed", result.EndTime.Sub(result.StartTime)).Msg("run complete")

	return result, nil
}

// issueEntries converts parse issues and validation errors into log entries.
func issueEntries(issues []salesfile.Issue, errs []*validation.ValidationError) []utils.IssueLogEntry {
	entries := make([]utils.IssueLogEntry, 0, len(issues)+len(errs))
	for _, issue := range issues {
		entries = append(entries, utils.IssueLogEntry{
			Stage:      "parse",
			LineNumber: issue.LineNumber,
			Message:    issue.Reason,
		})
	}
	for _, e := range errs {
		entries = append(entries, utils.IssueLogEntry{
			Stage:         "validate",
			LineNumber:    e.LineNumber,
			TransactionID: e.TransactionID,
			FieldName:     e.Field,
			FieldValue:    e.Value,
			Message:       "failed " + e.Rule,
		})
	}
	return entries
}

// =============================================================================
// INSPECTION
// =============================================================================

// Inspection describes an input file without running the full pipeline.
type Inspection struct {
	SourceFile    string
	Encoding      string
	HeaderSkipped bool
	DataLines     int
	Parsed        int
	Malformed     int
	Valid         int
	Invalid       int

	// ParseIssues explains each malformed line.
	ParseIssues []salesfile.Issue

	// ValidationErrors lists every rule a parsed record failed.
	ValidationErrors []*validation.ValidationError

	// Options lists the values available for filtering the valid records.
	Options validation.FilterOptions

	// LineCountErr is set when the line count is outside the configured
	// window. Inspection still reports the counts.
	LineCountErr error
}

// Inspect reads, parses, and validates the input file. Nothing is written
// and the catalog is not fetched.
func Inspect(cfg *config.Config) (*Inspection, error) {
	raw, err := salesfile.ReadLines(cfg.InputFile, salesfile.ReadOptions{
		MinLines: cfg.MinLines,
		MaxLines: cfg.MaxLines,
	})
	if raw == nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	parsed := salesfile.ParseLines(raw.Lines)
	valid, errs := validation.NewValidator().ValidateWithErrors(parsed.Records)

	ins := &Inspection{
		SourceFile:    raw.SourceFile,
		Encoding:      raw.Encoding,
		HeaderSkipped: raw.HeaderSkipped,
		DataLines:     len(raw.Lines),
		Parsed:        len(parsed.Records),
		Malformed:     parsed.Malformed,
		Valid:         len(valid),
		Invalid:       len(parsed.Records) - len(valid),
		Options:       validation.Options(valid),
		LineCountErr:  err,

		ParseIssues:      parsed.Issues,
		ValidationErrors: errs,
	}
	return ins, nil
}
