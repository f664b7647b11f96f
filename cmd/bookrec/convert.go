// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/bookrec/internal/dataset"
	"github.com/tomtom215/bookrec/internal/logging"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a ratings CSV into a libsvm matrix",
	Long: `Read "User-ID;ISBN;Book-Rating" rows, assign dense 1-based user and item
IDs in order of first appearance, and write one libsvm line per user.

The item mapping is written next to the matrix as <out>.items so that
"bookrec recommend --matrix" can resolve titles by ISBN. Malformed rows are
skipped and counted. With --duckdb the ratings are also stored in DuckDB.

Examples:
  bookrec convert --ratings Ratings.csv --out ratings.libsvm
  bookrec convert --ratings Ratings.csv --delimiter , --duckdb`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.String("ratings", "", "ratings CSV (default from RATINGS_PATH)")
	f.String("out", "", "libsvm output path (default from MATRIX_PATH)")
	f.String("delimiter", "", "CSV field delimiter (default from CSV_DELIMITER)")
	f.Bool("duckdb", false, "also insert ratings into DuckDB")
}

func runConvert(cmd *cobra.Command, _ []string) error {
	override(cmd, "ratings", &cfg.Data.RatingsPath)
	override(cmd, "out", &cfg.Data.MatrixPath)
	override(cmd, "delimiter", &cfg.Data.Delimiter)
	overrideBool(cmd, "duckdb", &cfg.Database.Enabled)
	if err := cfg.Validate(); err != nil {
		return err
	}

	start := time.Now()
	logger := logging.WithComponent("convert")

	set, err := readRatingsCSV(cfg.Data.RatingsPath, dataset.Options{Delimiter: cfg.Data.DelimiterRune()})
	if err != nil {
		return err
	}

	if err := writeFileAtomic(cfg.Data.MatrixPath, func(w *bufio.Writer) error {
		return dataset.WriteLibSVM(w, set.Ratings)
	}); err != nil {
		return fmt.Errorf("write matrix: %w", err)
	}
	if err := writeFileAtomic(sidecarPath(cfg.Data.MatrixPath), func(w *bufio.Writer) error {
		return dataset.WriteIDMap(w, set.Items)
	}); err != nil {
		return fmt.Errorf("write item map: %w", err)
	}

	inserted := 0
	if cfg.Database.Enabled {
		db, _, closeAll, err := openBackends(cfg)
		if err != nil {
			return err
		}
		defer closeAll()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		if inserted, err = db.InsertRatings(ctx, set.Ratings); err != nil {
			return fmt.Errorf("insert ratings: %w", err)
		}
	}

	logger.Info().
		Str("matrix", cfg.Data.MatrixPath).
		Int("rows", set.Rows).
		Int("skipped", set.Skipped).
		Int("users", set.Users.Len()).
		Int("items", set.Items.Len()).
		Int("ratings", set.NumRatings()).
		Int("duckdb_rows", inserted).
		Dur("duration", time.Since(start)).
		Msg("conversion complete")
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
