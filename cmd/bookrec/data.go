// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/database"
	"github.com/tomtom215/bookrec/internal/dataset"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/recommend"
	"github.com/tomtom215/bookrec/internal/store"
)

// Rating sources for loadRatings.
const (
	sourceCSV    = "csv"
	sourceMatrix = "matrix"
	sourceDuckDB = "duckdb"
)

// ratingData is everything the engine and writers need from the inputs.
type ratingData struct {
	ratings map[recommend.UserID]recommend.SparseVector

	// items maps dense item IDs to ISBNs. nil when the source has no
	// mapping, in which case titles resolve by catalog line.
	items *dataset.IDMap[string]

	catalog *dataset.Catalog
}

// titles returns the resolver the API and writers use.
func (d *ratingData) titles() dataset.Resolver {
	return dataset.Resolver{Catalog: d.catalog, Items: d.items}
}

// sidecarPath is where convert stores the item mapping of a matrix.
func sidecarPath(matrix string) string {
	return matrix + ".items"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// chooseSource picks CSV when --ratings was given, else an existing matrix,
// else the CSV path from config.
func chooseSource(ratingsFlag, matrixFlag bool, data config.DataConfig) string {
	switch {
	case ratingsFlag:
		return sourceCSV
	case matrixFlag:
		return sourceMatrix
	case data.MatrixPath != "" && fileExists(data.MatrixPath):
		return sourceMatrix
	default:
		return sourceCSV
	}
}

// loadRatings reads ratings from source and the books catalog, if any.
func loadRatings(ctx context.Context, source string, c *config.Config, db *database.DB) (*ratingData, error) {
	opts := dataset.Options{Delimiter: c.Data.DelimiterRune()}
	out := &ratingData{}
	logger := logging.WithComponent("loader")

	switch source {
	case sourceCSV:
		set, err := readRatingsCSV(c.Data.RatingsPath, opts)
		if err != nil {
			return nil, err
		}
		out.ratings, out.items = set.Ratings, set.Items
		logger.Info().
			Str("path", c.Data.RatingsPath).
			Int("rows", set.Rows).
			Int("skipped", set.Skipped).
			Int("users", set.Users.Len()).
			Int("items", set.Items.Len()).
			Msg("ratings loaded")

	case sourceMatrix:
		ratings, items, err := readMatrix(c.Data.MatrixPath)
		if err != nil {
			return nil, err
		}
		out.ratings, out.items = ratings, items
		logger.Info().
			Str("path", c.Data.MatrixPath).
			Int("users", len(ratings)).
			Bool("item_map", items != nil).
			Msg("matrix loaded")

	case sourceDuckDB:
		if db == nil {
			return nil, errors.New("DuckDB source requested but DUCKDB_ENABLED is false")
		}
		ratings, err := db.LoadRatings(ctx)
		if err != nil {
			return nil, err
		}
		out.ratings = ratings
		logger.Info().Str("path", db.Path()).Int("users", len(ratings)).Msg("ratings loaded from DuckDB")

	default:
		return nil, fmt.Errorf("unknown rating source %q", source)
	}

	if c.Data.LegacyCatalog {
		out.items = nil
	}

	if c.Data.BooksPath != "" {
		catalog, err := readCatalog(c.Data.BooksPath, opts)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn().Str("path", c.Data.BooksPath).Msg("books catalog not found, titles fall back to Book_<id>")
		case err != nil:
			return nil, err
		default:
			out.catalog = catalog
			logger.Info().Str("path", c.Data.BooksPath).Int("titles", catalog.Len()).Msg("catalog loaded")
		}
	}

	return out, nil
}

func readRatingsCSV(path string, opts dataset.Options) (*dataset.RatingSet, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open ratings: %w", err)
	}
	defer f.Close()

	set, err := dataset.LoadRatings(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load ratings %s: %w", path, err)
	}
	return set, nil
}

// readMatrix reads a libsvm matrix and, when present, its item sidecar.
func readMatrix(path string) (map[recommend.UserID]recommend.SparseVector, *dataset.IDMap[string], error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, nil, fmt.Errorf("open matrix: %w", err)
	}
	defer f.Close()

	ratings, err := dataset.ReadLibSVM(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read matrix %s: %w", path, err)
	}

	sf, err := os.Open(sidecarPath(path)) //nolint:gosec // derived from operator config
	if errors.Is(err, fs.ErrNotExist) {
		return ratings, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open item map: %w", err)
	}
	defer sf.Close()

	items, err := dataset.ReadIDMap(sf)
	if err != nil {
		return nil, nil, fmt.Errorf("read item map %s: %w", sidecarPath(path), err)
	}
	return ratings, items, nil
}

func readCatalog(path string, opts dataset.Options) (*dataset.Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, err
	}
	defer f.Close()

	catalog, err := dataset.LoadCatalog(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return catalog, nil
}

// writeFileAtomic writes via a temporary file in the same directory.
func writeFileAtomic(path string, write func(w *bufio.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// openBackends opens DuckDB and Badger when enabled. The returned close
// function is always non-nil.
func openBackends(c *config.Config) (*database.DB, *store.Store, func(), error) {
	var (
		db      *database.DB
		results *store.Store
	)
	closeAll := func() {
		if results != nil {
			if err := results.Close(); err != nil {
				logging.Error().Err(err).Msg("error closing result store")
			}
		}
		if db != nil {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("error closing database")
			}
		}
	}

	if c.Database.Enabled {
		var err error
		if db, err = database.New(&c.Database); err != nil {
			return nil, nil, closeAll, fmt.Errorf("open DuckDB: %w", err)
		}
	}
	if c.Store.Enabled {
		var err error
		if results, err = store.Open(&c.Store); err != nil {
			closeAll()
			return nil, nil, func() {}, fmt.Errorf("open result store: %w", err)
		}
	}
	return db, results, closeAll, nil
}
