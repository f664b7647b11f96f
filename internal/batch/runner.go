// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package batch runs the recommendation engine over every user and fans the
// ordered results out to the configured sinks: the output file, the DuckDB
// recommendations table and the Badger result store.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/bookrec/internal/backup"
	"github.com/tomtom215/bookrec/internal/database"
	"github.com/tomtom215/bookrec/internal/dataset"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/recommend"
	"github.com/tomtom215/bookrec/internal/store"
)

// ErrAlreadyRunning is returned when Run is called during another run.
var ErrAlreadyRunning = errors.New("batch already in progress")

// Engine is the part of *recommend.Engine the runner uses.
type Engine interface {
	RecommendAll(ctx context.Context, users []recommend.UserID, k, n int, emit recommend.EmitFunc) (recommend.BatchStats, error)
}

// Options sets the neighborhood size, result count and sink batching.
type Options struct {
	K int
	N int

	// DBBatchSize is the number of users per DuckDB insert transaction.
	DBBatchSize int

	// StoreBatchSize is the number of users per Badger write batch.
	StoreBatchSize int
}

// Sinks are the destinations of a run. Every field is optional, but a run
// with no sinks is rejected.
type Sinks struct {
	// OutputPath is replaced atomically once the run succeeds.
	OutputPath   string
	OutputFormat string
	Catalog      *dataset.Catalog
	Items        *dataset.IDMap[string]

	DB    *database.DB
	Store *store.Store

	// Snapshots, when set together with Store, takes a snapshot of the
	// store after each successful run and prunes old ones.
	Snapshots *backup.Manager
}

// Runner executes batch runs. It is safe for concurrent use; overlapping
// runs are rejected with ErrAlreadyRunning.
type Runner struct {
	engine Engine
	opts   Options
	sinks  Sinks
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	last    *recommend.BatchStats
}

// NewRunner creates a runner.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRunner(engine Engine, opts Options, sinks Sinks, logger zerolog.Logger) *Runner {
	if opts.DBBatchSize <= 0 {
		opts.DBBatchSize = 1000
	}
	if opts.StoreBatchSize <= 0 {
		opts.StoreBatchSize = 1000
	}
	return &Runner{
		engine: engine,
		opts:   opts,
		sinks:  sinks,
		logger: logger.With().Str("component", "batch").Logger(),
	}
}

// LastRun returns the stats of the last successful run.
func (r *Runner) LastRun() (recommend.BatchStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return recommend.BatchStats{}, false
	}
	return *r.last, true
}

// Run recommends for every user and writes the results to all sinks.
// A failed run leaves any previous output file untouched.
func (r *Runner) Run(ctx context.Context) (recommend.BatchStats, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return recommend.BatchStats{}, ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if r.sinks.OutputPath == "" && r.sinks.DB == nil && r.sinks.Store == nil {
		return recommend.BatchStats{}, errors.New("batch has no output: set an output path, DuckDB or Badger")
	}

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := r.logger.With().Str("run_id", runID).Logger()

	fo, err := r.openOutput()
	if err != nil {
		return recommend.BatchStats{}, err
	}
	defer fo.abort()

	var dbSink *database.RecommendationSink
	if r.sinks.DB != nil {
		dbSink = r.sinks.DB.NewRecommendationSink(runID, r.opts.DBBatchSize)
	}
	storeBuf := make([]recommend.UserResult, 0, r.opts.StoreBatchSize)
	flushStore := func() error {
		if len(storeBuf) == 0 {
			return nil
		}
		if err := r.sinks.Store.Stage(runID, storeBuf); err != nil {
			return fmt.Errorf("store results: %w", err)
		}
		storeBuf = storeBuf[:0]
		return nil
	}

	committed := false
	defer func() {
		if !committed {
			r.rollback(ctx, dbSink, runID, logger)
		}
	}()

	emit := func(res recommend.UserResult) error {
		if fo != nil {
			if err := fo.writer.WriteResult(res); err != nil {
				return err
			}
		}
		if dbSink != nil {
			if err := dbSink.Add(ctx, res); err != nil {
				return err
			}
		}
		if r.sinks.Store != nil {
			storeBuf = append(storeBuf, res)
			if len(storeBuf) >= r.opts.StoreBatchSize {
				return flushStore()
			}
		}
		return nil
	}

	stats, err := r.engine.RecommendAll(ctx, nil, r.opts.K, r.opts.N, emit)
	if err != nil {
		return stats, err
	}
	stats.RunID = runID

	if fo != nil {
		if err := fo.commit(); err != nil {
			return stats, err
		}
	}
	if dbSink != nil {
		if err := dbSink.Flush(ctx); err != nil {
			return stats, err
		}
	}
	if r.sinks.Store != nil {
		if err := flushStore(); err != nil {
			return stats, err
		}
		if _, err := r.sinks.Store.Commit(store.MetaFromStats(stats)); err != nil {
			return stats, err
		}
	}
	committed = true

	r.mu.Lock()
	r.last = &stats
	r.mu.Unlock()

	if r.sinks.Store != nil && r.sinks.Snapshots != nil {
		r.snapshot(ctx, logger)
	}

	ev := logger.Info().
		Int("users", stats.Users).
		Int("recommendations", stats.Recommendations).
		Dur("duration", stats.Duration)
	if fo != nil {
		ev = ev.Str("output", r.sinks.OutputPath)
	}
	if dbSink != nil {
		ev = ev.Int("duckdb_rows", dbSink.Written())
	}
	ev.Bool("badger", r.sinks.Store != nil).Msg("batch results written")

	return stats, nil
}

// rollback removes what a failed run already wrote to DuckDB and Badger.
// The caller's context may be canceled by now, so cleanup ignores it.
func (r *Runner) rollback(ctx context.Context, dbSink *database.RecommendationSink, runID string, logger zerolog.Logger) {
	ctx = context.WithoutCancel(ctx)
	if dbSink != nil {
		if err := dbSink.Discard(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to delete rows of aborted run")
		}
	}
	if r.sinks.Store != nil {
		if err := r.sinks.Store.Discard(runID); err != nil {
			logger.Error().Err(err).Msg("failed to discard staged results of aborted run")
		}
	}
}

// snapshot backs up the store after a committed run. Failures are logged
// only; the run's results are already in place.
func (r *Runner) snapshot(ctx context.Context, logger zerolog.Logger) {
	if _, err := r.sinks.Snapshots.Create(ctx, r.sinks.Store, backup.TriggerAfterRun); err != nil {
		logger.Warn().Err(err).Msg("post-run snapshot failed")
		return
	}
	if _, err := r.sinks.Snapshots.Prune(); err != nil {
		logger.Warn().Err(err).Msg("snapshot prune failed")
	}
}

// fileOutput writes to a temporary file next to the destination and
// renames it into place on commit.
type fileOutput struct {
	tmp       *os.File
	dest      string
	writer    dataset.ResultWriter
	committed bool
}

func (r *Runner) openOutput() (*fileOutput, error) {
	if r.sinks.OutputPath == "" {
		return nil, nil
	}

	dir := filepath.Dir(r.sinks.OutputPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.sinks.OutputPath)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w, err := dataset.NewWriter(r.sinks.OutputFormat, tmp, r.sinks.Catalog, r.sinks.Items)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &fileOutput{tmp: tmp, dest: r.sinks.OutputPath, writer: w}, nil
}

func (f *fileOutput) commit() error {
	if err := f.writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := f.tmp.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(f.tmp.Name(), f.dest); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	f.committed = true
	return nil
}

// abort removes the temporary file unless commit succeeded. Safe on nil.
func (f *fileOutput) abort() {
	if f == nil || f.committed {
		return
	}
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}
