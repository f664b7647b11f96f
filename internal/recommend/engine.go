// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine orchestrates neighbor selection and aggregation for target users.
// All shared state is read-only, so Engine is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	store      *Store
	index      *InvertedIndex
	similarity *SimilarityEngine
	selector   *NeighborSelector
	aggregator *Aggregator

	requestCount atomic.Int64
	emptyCount   atomic.Int64
}

// Stats describes the loaded rating data and engine activity.
type Stats struct {
	Users         int   `json:"users"`
	Items         int   `json:"items"`
	Ratings       int   `json:"ratings"`
	UsersWithNorm int   `json:"users_with_norm"`
	Requests      int64 `json:"requests"`
	EmptyResults  int64 `json:"empty_results"`
}

// NewEngine builds the inverted index over store and wires the pipeline.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(store *Store, cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	start := time.Now()
	index := NewInvertedIndex(store)
	sim := NewSimilarityEngine(store)

	e := &Engine{
		config:     cfg,
		logger:     logger.With().Str("component", "recommend").Logger(),
		store:      store,
		index:      index,
		similarity: sim,
		selector:   NewNeighborSelector(store, index, sim),
		aggregator: NewAggregator(store),
	}

	e.logger.Info().
		Int("users", store.Len()).
		Int("items", index.Len()).
		Int("ratings", store.NumRatings()).
		Int("users_with_norm", store.NumNormed()).
		Dur("index_build", time.Since(start)).
		Msg("recommendation engine ready")

	return e, nil
}

// Config returns the engine configuration. It must not be modified.
func (e *Engine) Config() *Config {
	return e.config
}

// Store returns the underlying rating store.
func (e *Engine) Store() *Store {
	return e.store
}

// HasUser reports whether the user appears in the rating data.
func (e *Engine) HasUser(user UserID) bool {
	return e.store.Has(user)
}

// Similarity returns the cosine similarity between two users.
func (e *Engine) Similarity(a, b UserID) float64 {
	return e.similarity.Similarity(a, b)
}

// Neighbors returns the top-k neighborhood of user.
func (e *Engine) Neighbors(user UserID, k int) (NeighborList, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	neighbors, _ := e.selector.SelectNeighbors(user, k)
	mustValid(neighbors.Validate(k))
	return neighbors, nil
}

// Recommend returns up to n items for user using a neighborhood of size k.
// Users with no usable neighbors get an empty, non-nil slice.
func (e *Engine) Recommend(user UserID, k, n int) ([]Recommendation, error) {
	res, err := e.RecommendDetailed(user, k, n)
	if err != nil {
		return nil, err
	}
	return res.Recommendations, nil
}

// RecommendDetailed is Recommend plus the neighborhood and candidate count.
func (e *Engine) RecommendDetailed(user UserID, k, n int) (UserResult, error) {
	if k < 1 {
		return UserResult{}, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if n < 1 {
		return UserResult{}, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidArgument, n)
	}
	return e.recommendUser(user, k, n), nil
}

// Stats returns data and activity counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Users:         e.store.Len(),
		Items:         e.index.Len(),
		Ratings:       e.store.NumRatings(),
		UsersWithNorm: e.store.NumNormed(),
		Requests:      e.requestCount.Load(),
		EmptyResults:  e.emptyCount.Load(),
	}
}

// recommendUser runs the pipeline for one user. Arguments are already validated.
func (e *Engine) recommendUser(user UserID, k, n int) UserResult {
	start := time.Now()
	e.requestCount.Add(1)

	neighbors, candidates := e.selector.SelectNeighbors(user, k)
	mustValid(neighbors.Validate(k))

	recs := e.aggregator.Aggregate(user, neighbors, n)
	mustValid(e.validateRecommendations(user, recs, n))

	if len(recs) == 0 {
		e.emptyCount.Add(1)
	}

	res := UserResult{
		User:            user,
		Candidates:      candidates,
		Neighbors:       neighbors,
		Recommendations: recs,
		Duration:        time.Since(start),
	}

	e.logger.Trace().
		Int("user", int(user)).
		Int("candidates", candidates).
		Int("neighbors", len(neighbors)).
		Int("recommendations", len(recs)).
		Dur("duration", res.Duration).
		Msg("user processed")

	return res
}

// validateRecommendations checks ordering, length and that no already
// rated item leaked into the output.
func (e *Engine) validateRecommendations(user UserID, recs []Recommendation, n int) error {
	if len(recs) > n {
		return fmt.Errorf("%w: %d recommendations for user %d, limit %d", ErrInvariant, len(recs), user, n)
	}
	own := e.store.Vector(user)
	for i, r := range recs {
		if own.Has(r.Item) {
			return fmt.Errorf("%w: user %d already rated recommended item %d", ErrInvariant, user, r.Item)
		}
		if i > 0 && !recommendationBefore(recs[i-1], r) {
			return fmt.Errorf("%w: items %d and %d out of order for user %d", ErrInvariant, recs[i-1].Item, r.Item, user)
		}
	}
	return nil
}

// mustValid panics on a contract violation. These cannot be caused by input
// data that passed NewStore, so continuing would only hide a bug.
func mustValid(err error) {
	if err != nil {
		panic(err)
	}
}
