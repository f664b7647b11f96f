// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"slices"

	"github.com/tomtom215/bookrec/internal/cache"
)

// NeighborSelector finds the most similar users for a target.
type NeighborSelector struct {
	store *Store
	index *InvertedIndex
	sim   *SimilarityEngine
}

// NewNeighborSelector wires a selector over the shared read-only structures.
func NewNeighborSelector(store *Store, index *InvertedIndex, sim *SimilarityEngine) *NeighborSelector {
	return &NeighborSelector{store: store, index: index, sim: sim}
}

// Candidates returns every user who shares at least one rated item with
// target, excluding target itself, in ascending order.
func (s *NeighborSelector) Candidates(target UserID) []UserID {
	items, _ := s.store.sortedItems(target)
	if len(items) == 0 {
		return nil
	}

	seen := make(map[UserID]struct{})
	for _, item := range items {
		for _, u := range s.index.PostingList(item) {
			if u != target {
				seen[u] = struct{}{}
			}
		}
	}

	out := make([]UserID, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// SelectNeighbors returns at most k candidates with positive similarity,
// ordered by similarity descending and then UserID ascending. It also
// returns the candidate count before filtering. k must be positive.
func (s *NeighborSelector) SelectNeighbors(target UserID, k int) (NeighborList, int) {
	candidates := s.Candidates(target)
	if len(candidates) == 0 || k <= 0 {
		return NeighborList{}, len(candidates)
	}

	// Bounded heap ordered "worst first" keeps the k best.
	top := cache.NewHeap(func(a, b Neighbor) bool { return neighborBefore(b, a) }, k)
	for _, u := range candidates {
		sim := s.sim.Similarity(target, u)
		if sim > 0 {
			top.Push(Neighbor{User: u, Similarity: sim})
		}
	}

	return NeighborList(top.DrainDescending()), len(candidates)
}
