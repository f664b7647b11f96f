// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"fmt"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

// UserID is a dense, 1-based user identifier assigned by the loader.
type UserID int

// ItemID is a dense, 1-based item identifier assigned by the loader.
type ItemID int

// Rating is a nonnegative rating value. The engine assumes no upper bound.
type Rating = float64

// SparseVector maps rated items to their rating. A missing key means
// "not rated", which is distinct from a rating of 0.
type SparseVector map[ItemID]Rating

// Has reports whether the item is rated.
func (v SparseVector) Has(item ItemID) bool {
	_, ok := v[item]
	return ok
}

// Items returns the rated items in ascending order.
func (v SparseVector) Items() []ItemID {
	items := make([]ItemID, 0, len(v))
	for item := range v {
		items = append(items, item)
	}
	slices.Sort(items)
	return items
}

// Neighbor is a similar user together with its cosine similarity to the target.
type Neighbor struct {
	// User is the neighbor's identifier.
	User UserID `json:"user_id"`

	// Similarity is the cosine similarity in (0, 1].
	Similarity float64 `json:"similarity"`
}

// NeighborList is ordered by similarity descending, ties by UserID ascending.
type NeighborList []Neighbor

// Validate checks that the list is strictly ordered, has only positive
// similarities and holds no more than k entries.
func (l NeighborList) Validate(k int) error {
	if len(l) > k {
		return fmt.Errorf("%w: neighbor list has %d entries, limit %d", ErrInvariant, len(l), k)
	}
	for i, n := range l {
		if !(n.Similarity > 0) {
			return fmt.Errorf("%w: neighbor %d has non-positive similarity %v", ErrInvariant, n.User, n.Similarity)
		}
		if i > 0 && !neighborBefore(l[i-1], n) {
			return fmt.Errorf("%w: neighbors %d and %d out of order", ErrInvariant, l[i-1].User, n.User)
		}
	}
	return nil
}

// tieTolerance is the relative difference under which two similarities or
// scores rank as equal. Values that agree in exact arithmetic can differ in
// the last bits depending on the order of the floating point operations.
const tieTolerance = 1e-12

func tied(a, b float64) bool {
	return scalar.EqualWithinRel(a, b, tieTolerance)
}

// neighborBefore reports whether a ranks strictly ahead of b.
func neighborBefore(a, b Neighbor) bool {
	if !tied(a.Similarity, b.Similarity) {
		return a.Similarity > b.Similarity
	}
	return a.User < b.User
}

// Recommendation is a predicted rating for an item the target has not rated.
type Recommendation struct {
	// Item is the recommended item.
	Item ItemID `json:"item_id"`

	// Score is the similarity-weighted average of neighbor ratings.
	Score float64 `json:"score"`
}

// recommendationBefore reports whether a ranks strictly ahead of b.
func recommendationBefore(a, b Recommendation) bool {
	if !tied(a.Score, b.Score) {
		return a.Score > b.Score
	}
	return a.Item < b.Item
}

// UserResult is the full outcome of recommending for one user.
type UserResult struct {
	// User is the target user.
	User UserID `json:"user_id"`

	// Candidates is the number of users sharing at least one rated item.
	Candidates int `json:"candidates"`

	// Neighbors is the selected neighborhood.
	Neighbors NeighborList `json:"neighbors"`

	// Recommendations is the ranked output, at most n entries.
	Recommendations []Recommendation `json:"recommendations"`

	// Duration is the wall time spent computing this result.
	Duration time.Duration `json:"duration_ns"`
}

// BatchStats summarizes a RecommendAll run.
type BatchStats struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Users is the number of users processed.
	Users int `json:"users"`

	// EmptyResults counts users that received no recommendations.
	EmptyResults int `json:"empty_results"`

	// Recommendations is the total number emitted.
	Recommendations int `json:"recommendations"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total wall time.
	Duration time.Duration `json:"duration_ns"`
}
