// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/bookrec/internal/api"
	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/database"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/supervisor"
	"github.com/tomtom215/bookrec/internal/supervisor/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Load ratings, build the engine and serve the HTTP API under a supervisor
tree. When BATCH_RUN_ON_START is true the batch runs in the background and
its results are written to the configured sinks; with BATCH_INTERVAL set it
re-runs periodically. Stops on SIGINT or SIGTERM.

Examples:
  bookrec serve
  BADGER_ENABLED=true BADGER_IN_MEMORY=true bookrec serve --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("matrix", "", "libsvm matrix (default from MATRIX_PATH)")
	f.String("ratings", "", "ratings CSV; takes precedence over --matrix")
	f.Bool("from-duckdb", false, "read ratings from the DuckDB ratings table")
	f.String("books", "", "books CSV for titles (default from BOOKS_PATH)")
	f.String("host", "", "listen host (default from HTTP_HOST)")
	f.Int("port", 0, "listen port (default from HTTP_PORT)")
	f.Bool("run-on-start", false, "run the batch when the server starts")
}

func runServe(cmd *cobra.Command, _ []string) error {
	override(cmd, "matrix", &cfg.Data.MatrixPath)
	override(cmd, "ratings", &cfg.Data.RatingsPath)
	override(cmd, "books", &cfg.Data.BooksPath)
	override(cmd, "host", &cfg.Server.Host)
	overrideInt(cmd, "port", &cfg.Server.Port)
	overrideBool(cmd, "run-on-start", &cfg.Batch.RunOnStart)
	if err := cfg.Validate(); err != nil {
		return err
	}

	fromDuckDB, _ := cmd.Flags().GetBool("from-duckdb")
	source := chooseSource(cmd.Flags().Changed("ratings"), cmd.Flags().Changed("matrix"), cfg.Data)
	if fromDuckDB {
		source = sourceDuckDB
		cfg.Database.Enabled = true
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	db, results, closeAll, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	data, err := loadRatings(ctx, source, cfg, db)
	if err != nil {
		return err
	}
	engine, err := newEngine(data, cfg)
	if err != nil {
		return err
	}

	deps := api.Dependencies{
		Engine:  engine,
		Titles:  data.titles(),
		Version: version,
	}
	// Leave the interfaces nil rather than holding typed nil pointers.
	var gc services.GarbageCollector
	if results != nil {
		deps.Results = results
		gc = results
	}
	if db != nil {
		deps.Analytics = database.NewBreaker(db, database.DefaultBreakerSettings())
	}
	router := api.NewRouter(api.NewHandler(deps, cfg), cfg)

	runner, err := newRunner(engine, data, cfg, db, results)
	if err != nil {
		return err
	}
	tree, err := buildTree(cfg, router.Setup(), runner, gc)
	if err != nil {
		return err
	}

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("duckdb", db != nil).
		Bool("badger", results != nil).
		Bool("run_on_start", cfg.Batch.RunOnStart).
		Msg("starting bookrec server")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("bookrec server stopped")
	return nil
}

// buildTree assembles the supervisor tree for serve. gc is nil when the
// result store is disabled.
func buildTree(c *config.Config, handler http.Handler, runner services.BatchRunner, gc services.GarbageCollector) (*supervisor.SupervisorTree, error) {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: c.Server.ShutdownTimeout,
	})
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              c.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       c.Server.ReadTimeout,
		ReadHeaderTimeout: c.Server.ReadTimeout,
		WriteTimeout:      c.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	logger := logging.Logger()
	tree.AddAPIService(services.NewHTTPServerService(server, c.Server.ShutdownTimeout, logger))

	if c.Batch.RunOnStart || c.Batch.Interval > 0 {
		tree.AddDataService(services.NewBatchService(runner, services.BatchServiceConfig{
			RunOnStart: c.Batch.RunOnStart,
			Interval:   c.Batch.Interval,
		}, logger))
	}
	if gc != nil && c.Store.GCInterval > 0 {
		tree.AddDataService(services.NewStoreGCService(gc, c.Store.GCInterval, logger))
	}
	return tree, nil
}
