// =============================================================================
// Sales Analytics - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (salesanalytics)
//   ├── analyzeCmd (salesanalytics analyze)
//   ├── inspectCmd (salesanalytics inspect)
//   └── versionCmd (salesanalytics version, defined below)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the YAML config file (--config, or SALES_CONFIG)
//   2. Applies SALES_* environment variables and explicit flags via viper
//   3. Sets up logging (console + optional JSON log file)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/sales-analytics/internal/config"
	"github.com/ginjaninja78/sales-analytics/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging when set to true.
var verbose bool

// v resolves environment and flag overrides.
var v = viper.New()

// appConfig is the resolved configuration, set by initConfig.
var appConfig *config.Config

// appLogger is the application logger, set by initConfig.
var appLogger = zerolog.Nop()

// closeLog releases the log file.
var closeLog = func() error { return nil }

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "salesanalytics",
	Short: "Sales Analytics - Clean, analyze, and enrich sales transaction files",

	Long: `Sales Analytics reads a pipe-delimited sales transaction file, cleans and
validates it, computes sales analytics, enriches the records from an external
product catalog, and writes a formatted text report.

Key Features:
  - Tolerant reading of messy files (encodings, headers, thousands separators)
  - Optional region and amount filters (flags or interactive prompts)
  - Region, product, customer, and daily breakdowns
  - Product catalog enrichment that degrades gracefully when offline
  - Optional XLSX workbook export

Example Usage:
  salesanalytics analyze                         # Analyze the configured input file
  salesanalytics analyze --region North          # Analyze one region only
  salesanalytics analyze --interactive           # Choose filters at a prompt
  salesanalytics inspect --input ./data/raw.txt  # Check a file without writing anything`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := initConfig(cmd); err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context(), appLogger))
		return nil
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// VERSION COMMAND
// =============================================================================
// Version and BuildDate are set at build time, e.g.
//   go build -ldflags "-X 'github.com/ginjaninja78/sales-analytics/cmd.Version=1.1.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

// versionCmd prints build information. It skips config loading, so it works
// without a config file or input data.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "salesanalytics %s (built %s, %s)\n", Version, BuildDate, runtime.Version())
		if rev := vcsRevision(); rev != "" {
			fmt.Fprintf(out, "revision %s\n", rev)
		}
	},
}

// vcsRevision returns the commit the binary was built from, if recorded.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		appLogger.Error().Err(err).Msg("run failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "config.yaml", "Path to the configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	flags.String("input", "", "Sales data file (overrides input_file)")
	flags.String("output-dir", "", "Output directory (overrides output_dir)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (overrides log_level)")
	flags.String("log-file", "", "Log file path (overrides log_file)")

	// Flag names differ from config keys, so bind them explicitly.
	bindings := map[string]string{
		"input_file": "input",
		"output_dir": "output-dir",
		"log_level":  "log-level",
		"log_file":   "log-file",
	}
	for key, flag := range bindings {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	v.SetEnvPrefix("SALES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// initConfig loads the configuration, applies overrides, and sets up logging.
// cmd is the command being executed; inherited persistent flags are visible
// through its flag set.
func initConfig(cmd *cobra.Command) error {
	path := cfgFile
	if !cmd.Flags().Changed("config") && v.IsSet("config") {
		path = v.GetString("config")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyOverrides(v); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log, closer, err := logger.New(logger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	appConfig = cfg
	appLogger = log
	closeLog = closer

	appLogger.Debug().
		Str("config", path).
		Str("input", cfg.InputFile).
		Str("output_dir", cfg.OutputDir).
		Msg("configuration loaded")
	return nil
}
