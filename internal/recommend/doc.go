// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package recommend implements user-based collaborative filtering over sparse
// rating data.
//
// # Architecture
//
// The engine is assembled from small, immutable building blocks:
//
//   - Store: one SparseVector per user plus the cached L2 norm
//   - InvertedIndex: item -> users who rated it, used to prune candidates
//   - SimilarityEngine: cosine similarity restricted to common support
//   - NeighborSelector: top-K most similar users for a target
//   - Aggregator: similarity-weighted average of neighbor ratings
//   - Engine: orchestrates the above for a single user or a full batch
//
// The Store and InvertedIndex are built once per batch and never mutated,
// so any number of goroutines may call Engine methods concurrently.
//
// # Determinism
//
// Rankings are fully ordered. Neighbors sort by similarity descending with
// ties going to the lower UserID, recommendations sort by score descending
// with ties going to the lower ItemID. Dot products are accumulated in
// ascending item order so that identical input produces bit-identical scores
// on every run.
//
// # Degenerate Data
//
// A user with no ratings, no positive rating energy, or no overlap with
// anyone else simply gets an empty result. Only contract violations such as
// a negative rating are reported as errors (wrapping ErrInvariant).
//
// # Usage
//
//	store, err := recommend.NewStore(ratings)
//	if err != nil {
//	    return err
//	}
//	engine, err := recommend.NewEngine(store, recommend.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	recs, err := engine.Recommend(userID, 10, 5)
package recommend
