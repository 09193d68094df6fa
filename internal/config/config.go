// =============================================================================
// Sales Analytics - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// SOURCES (later wins):
//   1. Built-in defaults (Default)
//   2. The YAML config file (config.yaml), if present
//   3. Environment variables prefixed SALES_ and command-line flags, resolved
//      through viper in cmd/root.go and applied with ApplyOverrides
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// InputFile is the pipe-delimited sales data file.
	// Default: "./data/sales_data.txt"
	InputFile string `yaml:"input_file"`

	// OutputDir is the directory where the report and run summary are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// EnrichedFile is the path of the enriched data file.
	// Default: "./data/enriched_sales_data.txt"
	EnrichedFile string `yaml:"enriched_file"`

	// ReportFile is the name of the text report. Relative names are placed
	// inside OutputDir.
	// Default: "sales_report.txt"
	ReportFile string `yaml:"report_file"`

	// ArchiveInput copies the input file into OutputDir/archive after a
	// successful run.
	// Default: false
	ArchiveInput bool `yaml:"archive_input"`

	// ArchiveTimestampSubdirs files archived inputs under
	// OutputDir/archive/YYYY/MM/DD instead of directly in OutputDir/archive.
	// Default: false
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`

	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// MinLines and MaxLines bound the number of data lines accepted from the
	// input file. Zero disables the bound.
	MinLines int `yaml:"min_lines"`
	MaxLines int `yaml:"max_lines"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file. Empty disables it.
	// Default: "./logs/sales_analysis.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// SECTIONS
	// =========================================================================

	API       APIConfig       `yaml:"api"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Report    ReportConfig    `yaml:"report"`
}

// APIConfig holds settings for the product catalog API.
type APIConfig struct {
	// BaseURL is the catalog API root. Products are read from {BaseURL}/products.
	// Default: "https://dummyjson.com"
	BaseURL string `yaml:"base_url"`

	// Limit is passed as the "limit" query parameter.
	// Default: 100
	Limit int `yaml:"limit"`

	// Timeout bounds the single catalog request.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Attempts is the number of tries for the catalog request (1 or 2).
	// Default: 1
	Attempts int `yaml:"attempts"`
}

// AnalyticsConfig holds the analytics parameters.
type AnalyticsConfig struct {
	// TopN is the number of products in the top products table.
	// Default: 5
	TopN int `yaml:"top_n"`

	// LowThreshold is the quantity below which a product is low-performing.
	// Default: 10
	LowThreshold int `yaml:"low_threshold"`
}

// ReportConfig holds report rendering settings.
type ReportConfig struct {
	// CurrencySymbol prefixes money values in the text report.
	// Default: "₹"
	CurrencySymbol string `yaml:"currency_symbol"`

	// WorkbookFile is an optional XLSX export of the analytics. Relative names
	// are placed inside OutputDir. Empty disables the export.
	WorkbookFile string `yaml:"workbook_file"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. A missing file is not
//     an error; defaults are used instead.
//
// RETURNS:
//   - A pointer to the Config struct with defaults applied.
//   - An error if the file exists but cannot be read or parsed.
func Load(configPath string) (*Config, error) {
	config := *Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Fall through to defaults.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	config := Config{
		Analytics: AnalyticsConfig{TopN: 5, LowThreshold: 10},
	}
	applyDefaults(&config)
	return &config
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.InputFile == "" {
		config.InputFile = "./data/sales_data.txt"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.EnrichedFile == "" {
		config.EnrichedFile = "./data/enriched_sales_data.txt"
	}
	if config.ReportFile == "" {
		config.ReportFile = "sales_report.txt"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/sales_analysis.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.API.BaseURL == "" {
		config.API.BaseURL = "https://dummyjson.com"
	}
	if config.API.Limit == 0 {
		config.API.Limit = 100
	}
	if config.API.Timeout == 0 {
		config.API.Timeout = 10 * time.Second
	}
	if config.API.Attempts == 0 {
		config.API.Attempts = 1
	}

	if config.Report.CurrencySymbol == "" {
		config.Report.CurrencySymbol = "₹"
	}
}

// Validate checks value ranges. It does not touch the filesystem.
func (c *Config) Validate() error {
	if c.MinLines < 0 || c.MaxLines < 0 {
		return fmt.Errorf("min_lines and max_lines must not be negative")
	}
	if c.MaxLines > 0 && c.MinLines > c.MaxLines {
		return fmt.Errorf("min_lines (%d) is greater than max_lines (%d)", c.MinLines, c.MaxLines)
	}
	if c.API.Attempts < 1 || c.API.Attempts > 2 {
		return fmt.Errorf("api.attempts must be 1 or 2, got %d", c.API.Attempts)
	}
	if c.API.Limit < 0 {
		return fmt.Errorf("api.limit must not be negative")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Analytics.TopN < 0 || c.Analytics.LowThreshold < 0 {
		return fmt.Errorf("analytics.top_n and analytics.low_threshold must not be negative")
	}
	return nil
}

// =============================================================================
// OVERRIDES
// =============================================================================

// ApplyOverrides copies every key that is set in v (through environment
// variables or bound flags) over the loaded configuration, then validates the
// result. Keys use the same dotted names as the YAML file.
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	if v == nil {
		return nil
	}

	stringKeys := map[string]*string{
		"input_file":             &c.InputFile,
		"output_dir":             &c.OutputDir,
		"enriched_file":          &c.EnrichedFile,
		"report_file":            &c.ReportFile,
		"log_file":               &c.LogFile,
		"log_level":              &c.LogLevel,
		"api.base_url":           &c.API.BaseURL,
		"report.currency_symbol": &c.Report.CurrencySymbol,
		"report.workbook_file":   &c.Report.WorkbookFile,
	}
	for key, dst := range stringKeys {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	intKeys := map[string]*int{
		"min_lines":               &c.MinLines,
		"max_lines":               &c.MaxLines,
		"api.limit":               &c.API.Limit,
		"api.attempts":            &c.API.Attempts,
		"analytics.top_n":         &c.Analytics.TopN,
		"analytics.low_threshold": &c.Analytics.LowThreshold,
	}
	for key, dst := range intKeys {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	if v.IsSet("api.timeout") {
		c.API.Timeout = v.GetDuration("api.timeout")
	}
	boolKeys := map[string]*bool{
		"archive_input":             &c.ArchiveInput,
		"archive_timestamp_subdirs": &c.ArchiveTimestampSubdirs,
	}
	for key, dst := range boolKeys {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	return c.Validate()
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ReportPath returns the report file path, resolved against OutputDir.
func (c *Config) ReportPath() string {
	return c.inOutputDir(c.ReportFile)
}

// WorkbookPath returns the workbook path resolved against OutputDir, or ""
// when the workbook export is disabled.
func (c *Config) WorkbookPath() string {
	if c.Report.WorkbookFile == "" {
		return ""
	}
	return c.inOutputDir(c.Report.WorkbookFile)
}

func (c *Config) inOutputDir(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}
