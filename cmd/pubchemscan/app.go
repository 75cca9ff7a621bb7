package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/pubchemscan/internal/config"
	"github.com/nao1215/pubchemscan/internal/crawler"
	"github.com/nao1215/pubchemscan/internal/database"
	applog "github.com/nao1215/pubchemscan/internal/log"
	"github.com/nao1215/pubchemscan/internal/pipeline"
	"github.com/nao1215/pubchemscan/internal/pubchem"
)

// loadConfig builds a Config from defaults, the configuration file and the
// command's flags, in that order. Only flags the user set override the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	// An explicit path must exist; otherwise a missing file is fine.
	path := config.FindConfigFile(configPath)
	switch {
	case path != "":
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		file.Apply(cfg)
	case configPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.JSONLog, err = cmd.Flags().GetBool("json-log"); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("min-delay") != nil && flags.Changed("min-delay") {
		if cfg.MinDelay, err = flags.GetDuration("min-delay"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("max-delay") != nil && flags.Changed("max-delay") {
		if cfg.MaxDelay, err = flags.GetDuration("max-delay"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("retries") != nil && flags.Changed("retries") {
		if cfg.MaxRetries, err = flags.GetInt("retries"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("base-url") != nil && flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("db-dir") != nil && flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("no-cache") != nil {
		noCache, err := flags.GetBool("no-cache")
		if err != nil {
			return nil, err
		}
		cfg.UseCache = !noCache
	}
	if flags.Lookup("refresh") != nil {
		if cfg.Refresh, err = flags.GetBool("refresh"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// newLogger creates the sanitizing logger and installs it as the default.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := applog.NewLogger(os.Stderr, cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)
	return logger
}

// newExtractor wires the primary client and the related-record resolver.
func newExtractor(cfg *config.Config, logger *slog.Logger) *pubchem.Extractor {
	client := pubchem.NewClient(
		pubchem.WithBaseURL(cfg.BaseURL),
		pubchem.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		pubchem.WithUserAgent(cfg.UserAgent),
		pubchem.WithHeaders(cfg.Headers),
		pubchem.WithRateLimit(cfg.RateLimit),
		pubchem.WithRetry(cfg.MaxRetries, pubchem.DefaultBackoffBase),
		pubchem.WithMaxBodySize(cfg.MaxBodySize),
		pubchem.WithLogger(logger),
	)

	resolver := crawler.NewResolver(
		&http.Client{},
		crawler.WithDelay(crawler.DelayPolicy{Min: cfg.MinDelay, Max: cfg.MaxDelay}),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithLogger(logger),
	)

	return pubchem.NewExtractor(client, resolver, pubchem.WithExtractorLogger(logger))
}

// openCache opens the SQLite cache when enabled. It returns nil when the
// cache is disabled; callers must Close a non-nil result.
func openCache(cfg *config.Config, logger *slog.Logger) (*database.CompoundDB, error) {
	if !cfg.UseCache {
		return nil, nil
	}
	db, err := database.Open(cfg.DatabaseDir(), database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// newCachedExtractor puts db (which may be nil) in front of the extractor.
func newCachedExtractor(cfg *config.Config, db *database.CompoundDB, logger *slog.Logger) *pipeline.CachedExtractor {
	opts := []pipeline.CacheOption{
		pipeline.WithTTL(cfg.CacheTTL),
		pipeline.WithRefresh(cfg.Refresh),
		pipeline.WithLogger(logger),
	}
	if db != nil {
		opts = append(opts, pipeline.WithStore(db))
	}
	return pipeline.NewCachedExtractor(newExtractor(cfg, logger), opts...)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// isCancelled reports whether err is a context cancellation.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
