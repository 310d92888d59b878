// FilingScope — SEC EDGAR filing acquisition and extraction.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/filingscope/filingscope/internal/config"
	"github.com/filingscope/filingscope/internal/extract"
	"github.com/filingscope/filingscope/internal/feed"
	"github.com/filingscope/filingscope/internal/pipeline"
	"github.com/filingscope/filingscope/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals shared by every command.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "filingscope",
	Short: "FilingScope — SEC EDGAR filing acquisition and extraction",
	Long: `FilingScope downloads SEC filings from EDGAR and extracts structured
financial data. It resolves tickers to CIK numbers, selects annual
reports, downloads every filing document politely and idempotently, and
produces CSV fact tables from XBRL instance documents or, failing that,
from the rendered HTML statements.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger, err = buildLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(watchCmd)
}

func buildLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	if lc.Format == "text" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FilingScope %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [ticker]",
	Short: "Download filings without extracting",
	Long:  "Resolve a company, select its annual reports, and download every filing document to disk.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd, args)
		if err != nil {
			return err
		}
		req.FetchOnly = true
		return pipeline.New(cfg, logger).Run(cmd.Context(), req)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run [ticker]",
	Short: "Download filings and extract structured facts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd, args)
		if err != nil {
			return err
		}
		return pipeline.New(cfg, logger).Run(cmd.Context(), req)
	},
}

func init() {
	for _, c := range []*cobra.Command{fetchCmd, runCmd} {
		c.Flags().String("cik", "", "CIK number (overrides the ticker argument)")
		c.Flags().String("years", "", "comma-separated report years to keep (default: all)")
		c.Flags().Int("num", 0, "number of filings to process (default: configured)")
	}
}

func requestFromFlags(cmd *cobra.Command, args []string) (pipeline.Request, error) {
	req := pipeline.Request{}
	if len(args) > 0 {
		req.Ticker = strings.ToUpper(strings.TrimSpace(args[0]))
	}
	req.CIK, _ = cmd.Flags().GetString("cik")
	req.NumFilings, _ = cmd.Flags().GetInt("num")

	if raw, _ := cmd.Flags().GetString("years"); raw != "" {
		years, err := utils.ParseYears(raw)
		if err != nil {
			return req, err
		}
		req.Years = years
	}
	if req.Ticker == "" && req.CIK == "" {
		return req, fmt.Errorf("a ticker argument or --cik is required")
	}
	return req, nil
}

// --- Extract Command ---

var extractCmd = &cobra.Command{
	Use:   "extract [dir]",
	Short: "Re-run extraction offline over downloaded filings",
	Long: `Re-run extraction without touching the network. The argument is either
one filing directory (containing a download manifest) or a company
directory, in which case every filing under it is extracted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		out, _ := cmd.Flags().GetString("out")

		if extract.IsFilingDir(dir) {
			if out == "" {
				out = filepath.Join(cfg.Extractor.OutputDir, filepath.Base(dir)+".csv")
			}
			return extractOne(dir, out)
		}

		// Company directory: walk its accession subdirectories.
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		outDir := out
		if outDir == "" {
			outDir = filepath.Join(cfg.Extractor.OutputDir, filepath.Base(dir))
		}
		extracted := 0
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			sub := filepath.Join(dir, e.Name())
			if !extract.IsFilingDir(sub) {
				continue
			}
			if err := extractOne(sub, filepath.Join(outDir, e.Name()+".csv")); err != nil {
				logger.Warn("filing not extracted",
					zap.String("filing", e.Name()), zap.Error(err))
				continue
			}
			extracted++
		}
		if extracted == 0 {
			return fmt.Errorf("no filings extracted under %s", dir)
		}
		fmt.Printf("Extracted %d filings to %s\n", extracted, outDir)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("out", "", "output CSV path or directory (default: under the configured output dir)")
}

func extractOne(dir, out string) error {
	table, err := extract.FromDir(dir, logger)
	if err != nil {
		return err
	}
	if table.Empty() {
		return fmt.Errorf("no structured data found in %s", dir)
	}
	if err := extract.WriteFactTable(out, table); err != nil {
		return err
	}
	fmt.Printf("Wrote %s facts to %s\n", table.Source, out)
	return nil
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch [cik]",
	Short: "Watch a filer's feed for newly accepted filings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formType, _ := cmd.Flags().GetString("type")
		interval, _ := cmd.Flags().GetDuration("interval")

		w := feed.NewWatcher(cfg.Registry, args[0], formType, logger)
		fmt.Printf("Watching CIK %s (form %q) every %s — Ctrl-C to stop\n", args[0], formType, interval)
		return w.Watch(cmd.Context(), interval, func(e feed.Entry) {
			fmt.Printf("[%s] %s\n  %s\n", e.Updated.Format(time.RFC3339), e.Title, e.Link)
		})
	},
}

func init() {
	watchCmd.Flags().String("type", "10-K", "form type to watch (empty for all)")
	watchCmd.Flags().Duration("interval", 10*time.Minute, "poll interval")
}
