// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/bookrec/internal/backup"
	"github.com/tomtom215/bookrec/internal/batch"
	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/database"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/recommend"
	"github.com/tomtom215/bookrec/internal/store"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Compute recommendations for every user",
	Long: `Load ratings, find the k most similar users of every user by cosine
similarity, and recommend the n unrated items with the highest
similarity-weighted average rating.

Ratings are read from --ratings (CSV), --matrix (libsvm from convert), or
DuckDB with --from-duckdb. Results go to --out in csv or lines format and,
when enabled, to DuckDB and the Badger result store. --from-duckdb implies
--duckdb.

Examples:
  bookrec recommend --matrix ratings.libsvm --books Books.csv --out recommendations.csv
  bookrec recommend --ratings Ratings.csv -k 20 -n 10 --format lines --out recs.txt
  bookrec recommend --from-duckdb --duckdb --badger`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	f := recommendCmd.Flags()
	f.String("matrix", "", "libsvm matrix written by convert (default from MATRIX_PATH)")
	f.String("ratings", "", "ratings CSV; takes precedence over --matrix")
	f.Bool("from-duckdb", false, "read ratings from the DuckDB ratings table")
	f.String("books", "", "books CSV for titles (default from BOOKS_PATH)")
	f.String("out", "", "output file (default from OUTPUT_PATH)")
	f.String("format", "", "output format: csv or lines (default from OUTPUT_FORMAT)")
	f.String("delimiter", "", "CSV field delimiter of the inputs")
	f.IntP("neighbors", "k", 0, "neighborhood size (default from RECOMMEND_NEIGHBORS)")
	f.IntP("results", "n", 0, "recommendations per user (default from RECOMMEND_RESULTS)")
	f.Int("workers", 0, "worker goroutines (default from RECOMMEND_WORKERS)")
	f.Bool("legacy-catalog", false, "resolve titles by catalog line number instead of ISBN")
	f.Bool("duckdb", false, "also write recommendations to DuckDB")
	f.Bool("badger", false, "also write recommendations to the Badger result store")
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	override(cmd, "matrix", &cfg.Data.MatrixPath)
	override(cmd, "ratings", &cfg.Data.RatingsPath)
	override(cmd, "books", &cfg.Data.BooksPath)
	override(cmd, "out", &cfg.Data.OutputPath)
	override(cmd, "format", &cfg.Data.OutputFormat)
	override(cmd, "delimiter", &cfg.Data.Delimiter)
	overrideInt(cmd, "neighbors", &cfg.Recommend.Neighbors)
	overrideInt(cmd, "results", &cfg.Recommend.Results)
	overrideInt(cmd, "workers", &cfg.Recommend.Workers)
	overrideBool(cmd, "legacy-catalog", &cfg.Data.LegacyCatalog)
	overrideBool(cmd, "duckdb", &cfg.Database.Enabled)
	overrideBool(cmd, "badger", &cfg.Store.Enabled)
	fitLimits(cfg)
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

	runner, err := newRunner(engine, data, cfg, db, results)
	if err != nil {
		return err
	}
	stats, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	logging.Info().
		Str("run_id", stats.RunID).
		Int("users", stats.Users).
		Int("recommendations", stats.Recommendations).
		Int("empty_results", stats.EmptyResults).
		Dur("duration", stats.Duration).
		Msg("recommendations complete")
	return nil
}

// fitLimits raises the API maxima to the batch K and N so that a large -k
// on the command line does not fail validation.
func fitLimits(c *config.Config) {
	if c.Recommend.MaxNeighbors < c.Recommend.Neighbors {
		c.Recommend.MaxNeighbors = c.Recommend.Neighbors
	}
	if c.Recommend.MaxResults < c.Recommend.Results {
		c.Recommend.MaxResults = c.Recommend.Results
	}
	if c.Recommend.ReorderWindow < c.Recommend.Workers {
		c.Recommend.ReorderWindow = c.Recommend.Workers
	}
}

func newEngine(data *ratingData, c *config.Config) (*recommend.Engine, error) {
	s, err := recommend.NewStore(data.ratings)
	if err != nil {
		return nil, fmt.Errorf("build rating store: %w", err)
	}
	engine, err := recommend.NewEngine(s, c.ToRecommendConfig(), logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, nil
}

// newRunner wires the batch sinks. db and results may be nil.
func newRunner(engine *recommend.Engine, data *ratingData, c *config.Config, db *database.DB, results *store.Store) (*batch.Runner, error) {
	var snaps *backup.Manager
	if c.Backup.AfterRun && results != nil {
		var err error
		if snaps, err = backup.NewManager(&c.Backup); err != nil {
			return nil, err
		}
	}
	return batch.NewRunner(engine, batch.Options{
		K: c.Recommend.Neighbors,
		N: c.Recommend.Results,
	}, batch.Sinks{
		OutputPath:   c.Data.OutputPath,
		OutputFormat: c.Data.OutputFormat,
		Catalog:      data.catalog,
		Items:        data.items,
		DB:           db,
		Store:        results,
		Snapshots:    snaps,
	}, logging.Logger()), nil
}
