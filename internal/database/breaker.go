// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package database

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/metrics"
)

// ErrUnavailable is returned while the breaker is rejecting queries.
var ErrUnavailable = errors.New("analytics database unavailable")

// TopItemsQuerier is the query surface guarded by Breaker.
type TopItemsQuerier interface {
	TopItems(ctx context.Context, runID string, limit int) ([]ItemCount, error)
}

// BreakerSettings tunes the analytics circuit breaker.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32        // probes allowed while half-open
	Interval    time.Duration // count reset period while closed
	Timeout     time.Duration // open period before probing again
	MinRequests uint32
	FailRatio   float64
}

// DefaultBreakerSettings opens after 60% failures over at least 10 queries
// and probes again after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:        "duckdb-analytics",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		MinRequests: 10,
		FailRatio:   0.6,
	}
}

// Breaker wraps analytics queries with a circuit breaker so a failing
// database answers fast instead of stalling API requests.
type Breaker struct {
	q    TopItemsQuerier
	cb   *gobreaker.CircuitBreaker[[]ItemCount]
	name string
}

// NewBreaker guards q with a circuit breaker.
func NewBreaker(q TopItemsQuerier, s BreakerSettings) *Breaker {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]ItemCount](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// A canceled request says nothing about database health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{q: q, cb: cb, name: s.Name}
}

// TopItems runs q.TopItems through the breaker. Rejected calls return
// ErrUnavailable.
func (b *Breaker) TopItems(ctx context.Context, runID string, limit int) ([]ItemCount, error) {
	items, err := b.cb.Execute(func() ([]ItemCount, error) {
		return b.q.TopItems(ctx, runID, limit)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return items, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, errors.Join(ErrUnavailable, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
