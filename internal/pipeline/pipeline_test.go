package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sales-analytics/internal/config"
	"github.com/ginjaninja78/sales-analytics/internal/enrichment"
	"github.com/ginjaninja78/sales-analytics/internal/salesfile"
	"github.com/ginjaninja78/sales-analytics/internal/types"
	"github.com/ginjaninja78/sales-analytics/internal/validation"
)

const salesData = `TransactionID|Date|ProductID|ProductName|Quantity|UnitPrice|Region|CustomerID
T1|2025-01-01|P10|Mouse|2|50.0|North|C1
T2|2025-01-01|P10|Mouse|3|50.0|North|C2

T3|bad-date|P11||abc|50.0|East|C3
T4|2025-01-02|P999|Laptop|1|45,000|South|C1
T5|2025-01-03|P10|Mouse|-1|50.0|West|C2
T6|2025-01-03|P11|Keyboard|4|25|C3|East
`

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchCatalog(ctx context.Context) enrichment.CatalogResult {
	args := m.Called(ctx)
	return args.Get(0).(enrichment.CatalogResult)
}

var fixedTime = time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

func setup(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	input := filepath.Join(dir, "data", "sales_data.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(input), 0755))
	require.NoError(t, os.WriteFile(input, []byte(salesData), 0644))

	cfg := config.Default()
	cfg.InputFile = input
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.EnrichedFile = filepath.Join(dir, "data", "enriched_sales_data.txt")
	cfg.LogFile = ""
	return cfg
}

func catalog() enrichment.CatalogResult {
	return enrichment.Fetched([]types.CatalogEntry{
		{ID: 10, Title: "Wireless Mouse", Category: "accessories", Brand: "Clicky", Rating: 4.2},
		{ID: 11, Title: "Keyboard", Category: "accessories", Brand: "Keys", Rating: 3.1},
	})
}

func newPipeline(cfg *config.Config, fetcher enrichment.Fetcher, opts ...Option) *Pipeline {
	opts = append([]Option{WithFetcher(fetcher), WithClock(func() time.Time { return fixedTime })}, opts...)
	return New(cfg, zerolog.Nop(), opts...)
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := setup(t)
	cfg.Report.WorkbookFile = "sales_report.xlsx"
	cfg.ArchiveInput = true

	fetcher := &mockFetcher{}
	fetcher.On("FetchCatalog", mock.Anything).Return(catalog()).Once()

	result, err := newPipeline(cfg, fetcher).Run(context.Background(), validation.Filter{})
	require.NoError(t, err)
	fetcher.AssertExpectations(t)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "utf-8", result.Encoding)
	assert.Equal(t, 6, result.DataLines)
	assert.Equal(t, 1, result.Malformed)
	assert.Equal(t, validation.Summary{TotalInput: 5, Invalid: 1, FinalCount: 4}, result.Filtering)

	assert.True(t, result.Analytics.TotalRevenue.Equal(decimal.NewFromInt(45350)))
	assert.Equal(t, 4, result.Analytics.TransactionCount)
	assert.Equal(t, 3, result.Enrichment.Matched)
	assert.Equal(t, []string{"P999"}, result.Enrichment.UnmatchedProducts)
	assert.Equal(t, "fetched (2 products)", result.CatalogStatus)

	for _, path := range []string{
		result.Outputs.EnrichedFile,
		result.Outputs.ReportFile,
		result.Outputs.WorkbookFile,
		result.Outputs.IssueLog,
		result.Outputs.SummaryLog,
		result.Outputs.ArchivedFile,
	} {
		require.NotEmpty(t, path)
		assert.FileExists(t, path)
	}
	assert.Equal(t, filepath.Join(cfg.OutputDir, "sales_report.txt"), result.Outputs.ReportFile)

	enriched, err := os.ReadFile(result.Outputs.EnrichedFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(enriched)), "\n")
	assert.Len(t, lines, 5, "header plus one line per filtered record")
	assert.Equal(t, enrichment.EnrichedHeader, lines[0])
	assert.Contains(t, lines[4], "T6|2025-01-03|P11|Keyboard|4|25|East|C3|accessories|Keys|3.1|True")

	text, err := os.ReadFile(result.Outputs.ReportFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Run ID: "+result.RunID)
	assert.Contains(t, string(text), "Total Revenue:          ₹45,350.00")
}

func TestRun_ArchiveTimestampSubdirs(t *testing.T) {
	cfg := setup(t)
	cfg.ArchiveInput = true
	cfg.ArchiveTimestampSubdirs = true

	fetcher := &mockFetcher{}
	fetcher.On("FetchCatalog", mock.Anything).Return(catalog())

	var logs bytes.Buffer
	p := New(cfg, zerolog.New(&logs), WithFetcher(fetcher), WithClock(func() time.Time { return fixedTime }))
	result, err := p.Run(context.Background(), validation.Filter{})
	require.NoError(t, err)

	want := filepath.Join(cfg.OutputDir, "archive", "2025", "02", "01", "sales_data.txt")
	assert.Equal(t, want, result.Outputs.ArchivedFile)
	assert.FileExists(t, want)
	assert.Contains(t, logs.String(), "no filter applied")
}

func TestRun_Filter(t *testing.T) {
	cfg := setup(t)
	region := "north"

	fetcher := &mockFetcher{}
	fetcher.On("FetchCatalog", mock.Anything).Return(catalog())

	result, err := newPipeline(cfg, fetcher).Run(context.Background(), validation.Filter{Region: &region})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Filtering.FinalCount)
	assert.Equal(t, 2, result.Filtering.FilteredByRegion)
	assert.True(t, result.Analytics.TotalRevenue.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 2, result.Enrichment.Total)
}

func TestRun_FilterChooser(t *testing.T) {
	cfg := setup(t)

	fetcher := &mockFetcher{}
	fetcher.On("FetchCatalog", mock.Anything).Return(catalog())

	var offered validation.FilterOptions
	chooser := func(opts validation.FilterOptions) (validation.Filter, error) {
		offered = opts
		return validation.ParseFilter("", "1000", "", opts.Regions), nil
	}

	result, err := newPipeline(cfg, fetcher, WithFilterChooser(chooser)).Run(context.Background(), validation.Filter{})
	require.NoError(t, err)

	assert.Equal(t, []string{"East", "North", "South"}, offered.Regions)
	assert.Equal(t, "45000", offered.MaxAmount.String())
	assert.Equal(t, 1, result.Filtering.FinalCount)
	assert.Equal(t, 3, result.Filtering.FilteredByAmount)
}

func TestRun_FilterChooserError(t *testing.T) {
	cfg := setup(t)
	boom := errors.New("input closed")

	_, err := newPipeline(cfg, &mockFetcher{}, WithFilterChooser(func(validation.FilterOptions) (validation.Filter, error) {
		return validation.Filter{}, boom
	})).Run(context.Background(), validation.Filter{})

	assert.ErrorIs(t, err, boom)
}

func TestRun_CatalogUnavailable(t *testing.T) {
	cfg := setup(t)

	fetcher := &mockFetcher{}
	fetcher.On("FetchCatalog", mock.Anything).Return(enrichment.Unavailable(errors.New("timeout")))

	result, err := newPipeline(cfg, fetcher).Run(context.Background(), validation.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Enrichment.Matched)
	assert.Equal(t, 4, result.Enrichment.Unmatched)
	assert.Contains(t, result.CatalogStatus, "unavailable")
	assert.FileExists(t, result.Outputs.ReportFile)
	assert.Empty(t, result.Outputs.WorkbookFile)
	assert.Empty(t, result.Outputs.ArchivedFile)
}

func TestRun_LineCountOutOfRange(t *testing.T) {
	cfg := setup(t)
	cfg.MinLines = 50

	_, err := newPipeline(cfg, &mockFetcher{}).Run(context.Background(), validation.Filter{})

	assert.ErrorIs(t, err, salesfile.ErrLineCount)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestRun_MissingInput(t *testing.T) {
	cfg := setup(t)
	cfg.InputFile = filepath.Join(t.TempDir(), "missing.txt")

	_, err := newPipeline(cfg, &mockFetcher{}).Run(context.Background(), validation.Filter{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInspect(t *testing.T) {
	cfg := setup(t)
	cfg.MaxLines = 3

	ins, err := Inspect(cfg)
	require.NoError(t, err)

	assert.True(t, ins.HeaderSkipped)
	assert.Equal(t, 6, ins.DataLines)
	assert.Equal(t, 5, ins.Parsed)
	assert.Equal(t, 1, ins.Malformed)
	assert.Equal(t, 4, ins.Valid)
	assert.Equal(t, 1, ins.Invalid)
	require.Len(t, ins.ParseIssues, 1)
	require.Len(t, ins.ValidationErrors, 1)
	assert.ErrorIs(t, ins.LineCountErr, salesfile.ErrLineCount)
	assert.Equal(t, []string{"East", "North", "South"}, ins.Options.Regions)
	assert.NoDirExists(t, cfg.OutputDir)
}
