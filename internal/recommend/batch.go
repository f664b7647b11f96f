// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/bookrec/internal/cache"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/metrics"
)

// EmitFunc receives one finished user. Returning an error aborts the batch.
type EmitFunc func(UserResult) error

// sequenced tags a result with its position in the input order.
type sequenced struct {
	seq int
	res UserResult
}

// RecommendAll computes recommendations for users (every user when nil)
// on a pool of cfg.Workers goroutines.
//
// emit is called from the calling goroutine, one user at a time, in the
// order of users, so sinks need no locking and output is reproducible.
// At most cfg.ReorderWindow finished results are buffered while waiting
// for a slower predecessor.
//
// The run ID is taken from ctx (logging.ContextWithRunID) so sinks can be
// keyed before the first result arrives; otherwise a new UUID is used.
//
// When ctx is canceled or emit fails no new users are scheduled. Users
// already emitted stay emitted and the returned stats reflect them.
func (e *Engine) RecommendAll(ctx context.Context, users []UserID, k, n int, emit EmitFunc) (BatchStats, error) {
	stats := BatchStats{
		RunID:     logging.RunIDFromContext(ctx),
		StartedAt: time.Now(),
	}
	if stats.RunID == "" {
		stats.RunID = uuid.NewString()
	}
	if k < 1 || n < 1 {
		return stats, fmt.Errorf("%w: k and n must be positive, got k=%d n=%d", ErrInvalidArgument, k, n)
	}
	if users == nil {
		users = e.store.Users()
	}

	logger := e.logger.With().Str("run_id", stats.RunID).Logger()
	logger.Info().
		Int("users", len(users)).
		Int("k", k).
		Int("n", n).
		Int("workers", e.config.Workers).
		Msg("batch started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.config.Workers)
	window := semaphore.NewWeighted(int64(e.config.ReorderWindow))
	out := make(chan sequenced, e.config.Workers)

	var dispatchErr error
	go func() {
		defer close(out)
		for i, user := range users {
			if err := window.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				res := e.recommendUser(user, k, n)
				select {
				case out <- sequenced{seq: i, res: res}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		dispatchErr = g.Wait()
	}()

	progress := newProgress(logger, len(users), e.config.ProgressInterval)
	pending := cache.NewHeap(func(a, b sequenced) bool { return a.seq < b.seq }, 0)
	next := 0
	var emitErr error

	for item := range out {
		pending.Push(item)
		for {
			head, ok := pending.Peek()
			if !ok || head.seq != next {
				break
			}
			pending.Pop()
			next++
			window.Release(1)

			if emitErr != nil {
				continue
			}
			if err := emit(head.res); err != nil {
				emitErr = fmt.Errorf("emit user %d: %w", head.res.User, err)
				cancel()
				continue
			}

			stats.Users++
			stats.Recommendations += len(head.res.Recommendations)
			if len(head.res.Recommendations) == 0 {
				stats.EmptyResults++
			}
			metrics.RecordUserResult(head.res.Candidates, len(head.res.Neighbors),
				len(head.res.Recommendations), head.res.Duration)
			progress.tick(stats.Users)
		}
	}

	stats.Duration = time.Since(stats.StartedAt)

	err := emitErr
	if err == nil && dispatchErr != nil {
		err = fmt.Errorf("recommend batch: %w", dispatchErr)
	}
	if err == nil && ctx.Err() != nil && stats.Users < len(users) {
		err = fmt.Errorf("recommend batch: %w", ctx.Err())
	}
	metrics.RecordBatch(stats.Duration, err)

	if err != nil {
		logger.Warn().Err(err).
			Int("users_done", stats.Users).
			Int("users_total", len(users)).
			Msg("batch aborted")
		return stats, err
	}

	logger.Info().
		Int("users", stats.Users).
		Int("recommendations", stats.Recommendations).
		Int("empty_results", stats.EmptyResults).
		Dur("duration", stats.Duration).
		Msg("batch complete")

	return stats, nil
}

// progress logs periodic batch progress in place of a terminal progress bar.
type progress struct {
	logger   zerolog.Logger
	total    int
	interval time.Duration
	start    time.Time
	last     time.Time
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newProgress(logger zerolog.Logger, total int, interval time.Duration) *progress {
	now := time.Now()
	return &progress{logger: logger, total: total, interval: interval, start: now, last: now}
}

func (p *progress) tick(done int) {
	if p.interval <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(p.last) < p.interval && done < p.total {
		return
	}
	p.last = now

	elapsed := now.Sub(p.start).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(done) / elapsed
	}
	pct := 100.0
	if p.total > 0 {
		pct = float64(done) * 100 / float64(p.total)
	}

	p.logger.Info().
		Int("done", done).
		Int("total", p.total).
		Float64("percent", pct).
		Float64("users_per_sec", rate).
		Msg("processing users")
}
