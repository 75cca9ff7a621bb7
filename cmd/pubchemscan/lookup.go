package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pubchemscan/internal/config"
	"github.com/nao1215/pubchemscan/internal/pipeline"
	"github.com/nao1215/pubchemscan/internal/report"
)

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <cid>...",
		Short: "Extract the summary of one or more PubChem compounds",
		Long: `Lookup fetches each compound record from PubChem and prints its summary.

The JSON output has a fixed shape, one object per compound per line:

  {"molecularFormula":"C9H8O4","isomericSMILES":"","canonicalSMILES":"",
   "inChIKey":"","inChI":"","iUpacName":"",
   "related":{"parents":[],"relatedids":[],"substanceids":[]}}

Fresh results are served from the local cache. Use --refresh to fetch
again, or --no-cache to neither read nor write the cache.

Examples:
  # Look up aspirin
  pubchemscan lookup 2244

  # Look up several compounds, two at a time
  pubchemscan lookup --batch 2 2244 702 887

  # Markdown report written to a file
  pubchemscan lookup -m -o reports/aspirin.md 2244

  # Shorter pauses between related-record fetches
  pubchemscan lookup --min-delay 2s --max-delay 3s 2244`,
		Args: cobra.MinimumNArgs(1),
		RunE: runLookupCmd,
	}

	// Request behavior flags
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Duration("min-delay", config.DefaultMinDelay,
		"Minimum pause between related-record fetches")
	cmd.Flags().Duration("max-delay", config.DefaultMaxDelay,
		"Maximum pause between related-record fetches")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retries for transient PubChem failures (429, 5xx, network)")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"PubChem base URL")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent lookups")

	// Cache flags
	cmd.Flags().BoolP("refresh", "r", false,
		"Ignore cached results and fetch from PubChem")
	cmd.Flags().Bool("no-cache", false,
		"Do not read or write the local cache")
	cmd.Flags().String("db-dir", "",
		"Cache directory (default: XDG data directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (default)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown")
	cmd.Flags().BoolP("text", "t", false,
		"Output human-readable text")
	cmd.Flags().Bool("pretty", false,
		"Indent JSON output")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file (creates directories if needed)")

	return cmd
}

// runLookupCmd executes the lookup command.
func runLookupCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildLookupConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateLookup(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	pretty, err := cmd.Flags().GetBool("pretty")
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runLookup(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), pretty, logger)
}

// buildLookupConfig creates a Config from the config file and lookup flags.
func buildLookupConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("batch") {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.TextReport, err = cmd.Flags().GetBool("text"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}

	cfg.Targets, err = config.ParseCIDs(args)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// reportFormat returns the format selected in cfg.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	case cfg.TextReport:
		return report.FormatText
	default:
		return report.FormatJSON
	}
}

// runLookup looks up every target and writes the reports in input order.
// It returns an error when any lookup failed.
func runLookup(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, pretty bool, logger *slog.Logger) error {
	logger.Info("starting lookup",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"cache", cfg.UseCache,
		"refresh", cfg.Refresh,
	)

	db, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer, err := newReportWriter(cfg, output, pretty)
	if err != nil {
		return err
	}

	source := newCachedExtractor(cfg, db, logger)
	bp := pipeline.NewBatchProcessor(source,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	results, err := bp.ProcessBatch(ctx, cfg.Targets)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if !isCancelled(r.Err) {
				fmt.Fprintf(stderr, "lookup failed for CID %d: %v\n", r.CID, r.Err)
			}
			continue
		}
		if _, werr := writer.Write(r.Lookup); werr != nil {
			return fmt.Errorf("failed to write report for CID %d: %w", r.CID, werr)
		}
	}

	logger.Info("lookup complete",
		"total", len(results),
		"failed", failed,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(results))
	}
	return nil
}

// newReportWriter returns the writer for the selected format.
func newReportWriter(cfg *config.Config, output io.Writer, pretty bool) (report.Writer, error) {
	format := reportFormat(cfg)
	if format == report.FormatJSON && pretty {
		return report.NewJSONWriter(output, report.WithPrettyPrint()), nil
	}
	return report.NewWriter(format, output)
}

// openOutput returns the report destination: the file at path, or stdout
// when path is empty. The returned func closes the file.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
