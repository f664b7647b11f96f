// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

// SimilarityEngine computes cosine similarity between two users over the
// items both have rated.
type SimilarityEngine struct {
	store *Store
}

// NewSimilarityEngine creates a similarity engine backed by store.
func NewSimilarityEngine(store *Store) *SimilarityEngine {
	return &SimilarityEngine{store: store}
}

// Similarity returns dot(a, b) / (norm(a) * norm(b)) where the dot product
// runs over the common support only. The result is in [0, 1] and is 0 when
// either norm is absent or the users share no rated item.
//
// The shorter vector is walked in ascending item order and probed against
// the longer one, so the cost is proportional to the smaller rating count
// and the floating point sum does not depend on argument order.
func (e *SimilarityEngine) Similarity(a, b UserID) float64 {
	normA, okA := e.store.Norm(a)
	normB, okB := e.store.Norm(b)
	if !okA || !okB {
		return 0
	}

	items, values := e.store.sortedItems(a)
	other := e.store.Vector(b)
	if len(other) < len(items) {
		items, values = e.store.sortedItems(b)
		other = e.store.Vector(a)
	}

	var dot float64
	common := 0
	for i, item := range items {
		if r, ok := other[item]; ok {
			dot += values[i] * r
			common++
		}
	}
	if common == 0 {
		return 0
	}

	denom := normA * normB
	if denom <= 0 {
		return 0
	}
	// Rounding can push identical directions a hair above 1.
	return min(dot/denom, 1)
}
