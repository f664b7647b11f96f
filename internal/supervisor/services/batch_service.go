// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bookrec/internal/batch"
	"github.com/tomtom215/bookrec/internal/recommend"
)

// BatchRunner runs one batch. *batch.Runner satisfies it.
type BatchRunner interface {
	Run(ctx context.Context) (recommend.BatchStats, error)
}

// BatchServiceConfig controls when batches run.
type BatchServiceConfig struct {
	// RunOnStart runs a batch as soon as the service starts.
	RunOnStart bool

	// Interval re-runs the batch periodically. 0 disables re-runs.
	Interval time.Duration
}

// BatchService schedules batch runs under supervision.
type BatchService struct {
	runner BatchRunner
	config BatchServiceConfig
	logger zerolog.Logger
}

// NewBatchService creates a batch service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBatchService(runner BatchRunner, cfg BatchServiceConfig, logger zerolog.Logger) *BatchService {
	return &BatchService{
		runner: runner,
		config: cfg,
		logger: logger.With().Str("service", "batch").Logger(),
	}
}

// Serve implements suture.Service. Batch failures are logged, not returned,
// so a bad run does not restart the service.
func (s *BatchService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_start", s.config.RunOnStart).
		Dur("interval", s.config.Interval).
		Msg("batch service starting")

	if s.config.RunOnStart {
		s.run(ctx)
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("batch service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *BatchService) run(ctx context.Context) {
	stats, err := s.runner.Run(ctx)
	switch {
	case err == nil:
		s.logger.Info().
			Str("run_id", stats.RunID).
			Int("users", stats.Users).
			Dur("duration", stats.Duration).
			Msg("scheduled batch complete")
	case errors.Is(err, batch.ErrAlreadyRunning):
		s.logger.Warn().Msg("previous batch still running, skipping")
	case ctx.Err() != nil:
		s.logger.Info().Int("users_done", stats.Users).Msg("batch interrupted by shutdown")
	default:
		s.logger.Error().Err(err).Str("run_id", stats.RunID).Msg("batch failed")
	}
}

func (s *BatchService) String() string {
	return "batch-service"
}
