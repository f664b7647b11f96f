// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"github.com/tomtom215/bookrec/internal/cache"
)

// Aggregator turns a neighborhood into ranked predictions.
type Aggregator struct {
	store *Store
}

// NewAggregator creates an aggregator backed by store.
func NewAggregator(store *Store) *Aggregator {
	return &Aggregator{store: store}
}

type accumulator struct {
	num float64
	den float64
}

// Aggregate predicts a score for every item some neighbor rated and the
// target did not:
//
//	score(i) = sum(rating(u, i) * sim(u)) / sum(sim(u))
//
// where both sums run over the neighbors that rated i. Items are ranked by
// score descending, then ItemID ascending, and truncated to n.
func (a *Aggregator) Aggregate(target UserID, neighbors NeighborList, n int) []Recommendation {
	if len(neighbors) == 0 || n <= 0 {
		return []Recommendation{}
	}

	own := a.store.Vector(target)
	acc := make(map[ItemID]*accumulator)
	for _, nb := range neighbors {
		items, values := a.store.sortedItems(nb.User)
		for i, item := range items {
			if own.Has(item) {
				continue
			}
			e, ok := acc[item]
			if !ok {
				e = &accumulator{}
				acc[item] = e
			}
			e.num += values[i] * nb.Similarity
			e.den += nb.Similarity
		}
	}

	top := cache.NewHeap(func(x, y Recommendation) bool { return recommendationBefore(y, x) }, n)
	for item, e := range acc {
		if e.den > 0 {
			top.Push(Recommendation{Item: item, Score: e.num / e.den})
		}
	}

	return top.DrainDescending()
}
