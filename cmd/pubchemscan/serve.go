package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pubchemscan/internal/api"
	"github.com/nao1215/pubchemscan/internal/config"
	"github.com/nao1215/pubchemscan/internal/database"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compound lookups over HTTP",
		Long: `Serve runs an HTTP API in front of the extractor and the local cache.

Routes:
  GET /health
  GET /api/compounds
  GET /api/compounds/{cid}            (?refresh=true, ?format=json|markdown|text)
  GET /api/compounds/{cid}/history
  GET /api/related/{id}               (?type=parent|related|substance)

A lookup that is not cached takes several seconds: related-record pages
are fetched with a random pause between them.

Examples:
  pubchemscan serve
  pubchemscan serve --listen 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("listen", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each HTTP request to PubChem")
	cmd.Flags().Duration("min-delay", config.DefaultMinDelay,
		"Minimum pause between related-record fetches")
	cmd.Flags().Duration("max-delay", config.DefaultMaxDelay,
		"Maximum pause between related-record fetches")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retries for transient PubChem failures (429, 5xx, network)")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"PubChem base URL")
	cmd.Flags().Bool("no-cache", false,
		"Do not read or write the local cache")
	cmd.Flags().String("db-dir", "",
		"Cache directory (default: XDG data directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cfg)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	db, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", cfg.ListenAddress)
	return serve(ctx, cfg, newServer(cfg, db, logger), logger)
}

// newServer builds the API handler. db may be nil.
func newServer(cfg *config.Config, db *database.CompoundDB, logger *slog.Logger) *api.Server {
	var catalog api.Catalog
	if db != nil {
		catalog = db
	}
	return api.NewServer(newCachedExtractor(cfg, db, logger), catalog, logger, getVersion())
}

// serve runs handler until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Uncached lookups wait between related-record fetches.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting pubchemscan API", "listen", cfg.ListenAddress, "version", getVersion())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down API server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
