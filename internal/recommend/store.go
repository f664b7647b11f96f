// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// userEntry holds one user's ratings in two layouts: a map for membership
// probes and parallel sorted slices for ordered iteration.
type userEntry struct {
	vector SparseVector
	items  []ItemID
	values []float64
}

// Store owns every user's SparseVector and the precomputed L2 norm.
//
// A norm is stored only when the sum of squared ratings is strictly
// positive. Users without a norm have similarity 0 with everyone.
//
// Store is immutable after NewStore returns and is safe for concurrent reads.
type Store struct {
	entries  map[UserID]*userEntry
	norms    map[UserID]float64
	users    []UserID
	ratings  int
	maxItem  ItemID
	distinct int
}

// NewStore builds a Store from the complete rating set. The input maps are
// copied. A negative or NaN rating fails construction with ErrInvariant.
func NewStore(ratings map[UserID]SparseVector) (*Store, error) {
	s := &Store{
		entries: make(map[UserID]*userEntry, len(ratings)),
		norms:   make(map[UserID]float64, len(ratings)),
		users:   make([]UserID, 0, len(ratings)),
	}

	seen := make(map[ItemID]struct{})
	for user, vec := range ratings {
		entry := &userEntry{
			vector: make(SparseVector, len(vec)),
			items:  vec.Items(),
			values: make([]float64, 0, len(vec)),
		}
		for _, item := range entry.items {
			r := vec[item]
			if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
				return nil, fmt.Errorf("%w: user %d rated item %d with %v", ErrInvariant, user, item, r)
			}
			entry.vector[item] = r
			entry.values = append(entry.values, r)
			seen[item] = struct{}{}
			s.maxItem = max(s.maxItem, item)
		}

		s.entries[user] = entry
		s.users = append(s.users, user)
		s.ratings += len(entry.items)

		if len(entry.values) > 0 {
			if norm := floats.Norm(entry.values, 2); norm > 0 {
				s.norms[user] = norm
			}
		}
	}
	slices.Sort(s.users)
	s.distinct = len(seen)

	return s, nil
}

// Vector returns the user's ratings, or nil for an unknown user.
// The returned map must not be modified.
func (s *Store) Vector(user UserID) SparseVector {
	if e, ok := s.entries[user]; ok {
		return e.vector
	}
	return nil
}

// Norm returns the user's L2 norm. The boolean is false when the user is
// unknown or has no positive rating energy.
func (s *Store) Norm(user UserID) (float64, bool) {
	n, ok := s.norms[user]
	return n, ok
}

// Has reports whether the user exists, even with an empty vector.
func (s *Store) Has(user UserID) bool {
	_, ok := s.entries[user]
	return ok
}

// Users returns all users in ascending order. The slice must not be modified.
func (s *Store) Users() []UserID {
	return s.users
}

// Len returns the number of users.
func (s *Store) Len() int {
	return len(s.users)
}

// NumRatings returns the total number of (user, item) ratings.
func (s *Store) NumRatings() int {
	return s.ratings
}

// NumItems returns the number of distinct rated items.
func (s *Store) NumItems() int {
	return s.distinct
}

// NumNormed returns how many users have a stored norm.
func (s *Store) NumNormed() int {
	return len(s.norms)
}

// sortedItems returns the user's items and values in ascending item order.
func (s *Store) sortedItems(user UserID) ([]ItemID, []float64) {
	if e, ok := s.entries[user]; ok {
		return e.items, e.values
	}
	return nil, nil
}
