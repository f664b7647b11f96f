// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

// scenarioRatings is the three-user fixture used throughout the package tests:
// users 1 and 2 overlap on items 10 and 20, user 3 overlaps with nobody.
func scenarioRatings() map[UserID]SparseVector {
	return map[UserID]SparseVector{
		1: {10: 5, 20: 3},
		2: {10: 4, 20: 3, 30: 5},
		3: {40: 2},
	}
}

// scenarioSim is 29 / (sqrt(34) * sqrt(50)).
var scenarioSim = 29 / (math.Sqrt(34) * math.Sqrt(50))

func mustStore(t *testing.T, ratings map[UserID]SparseVector) *Store {
	t.Helper()
	s, err := NewStore(ratings)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func mustEngine(t *testing.T, ratings map[UserID]SparseVector, cfg *Config) *Engine {
	t.Helper()
	e, err := NewEngine(mustStore(t, ratings), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// denseRatings builds a deterministic pseudo-random rating set with heavy
// tie potential (integer ratings on a small scale).
func denseRatings(users, items int) map[UserID]SparseVector {
	out := make(map[UserID]SparseVector, users)
	for u := 1; u <= users; u++ {
		vec := SparseVector{}
		for i := 1; i <= items; i++ {
			if (u*7+i*13)%5 < 2 {
				vec[ItemID(i)] = Rating((u+i)%10 + 1)
			}
		}
		out[UserID(u)] = vec
	}
	return out
}
