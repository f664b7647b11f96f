// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewEngine(t *testing.T) {
	store := mustStore(t, scenarioRatings())

	t.Run("nil config uses defaults", func(t *testing.T) {
		e, err := NewEngine(store, nil, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		if e.Config().Neighbors != 10 || e.Config().Results != 5 {
			t.Errorf("defaults = K %d N %d, want 10 and 5", e.Config().Neighbors, e.Config().Results)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Neighbors = 0
		if _, err := NewEngine(store, cfg, zerolog.Nop()); err == nil {
			t.Error("NewEngine() error = nil, want error")
		}
	})

	t.Run("nil store", func(t *testing.T) {
		if _, err := NewEngine(nil, nil, zerolog.Nop()); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("NewEngine(nil) error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestEngine_RecommendScenario(t *testing.T) {
	e := mustEngine(t, scenarioRatings(), nil)

	got, err := e.Recommend(1, 10, 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(got) != 1 || got[0].Item != 30 || !approxEqual(got[0].Score, 5) {
		t.Errorf("Recommend(1) = %v, want [(30, 5.0)]", got)
	}

	neighbors, err := e.Neighbors(1, 10)
	if err != nil {
		t.Fatalf("Neighbors() error = %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].User != 2 {
		t.Errorf("Neighbors(1) = %v, want [(2, ~0.702)]", neighbors)
	}
}

func TestEngine_RecommendDegenerate(t *testing.T) {
	ratings := scenarioRatings()
	ratings[4] = SparseVector{}
	e := mustEngine(t, ratings, nil)

	for _, user := range []UserID{3, 4, 1000} {
		got, err := e.Recommend(user, 10, 5)
		if err != nil {
			t.Errorf("Recommend(%d) error = %v, want nil", user, err)
		}
		if len(got) != 0 {
			t.Errorf("Recommend(%d) = %v, want empty", user, got)
		}
	}

	if stats := e.Stats(); stats.EmptyResults != 3 || stats.Requests != 3 {
		t.Errorf("Stats() = %+v, want 3 requests and 3 empty results", stats)
	}
}

func TestEngine_RecommendInvalidArguments(t *testing.T) {
	e := mustEngine(t, scenarioRatings(), nil)

	tests := []struct {
		name string
		k, n int
	}{
		{name: "zero k", k: 0, n: 5},
		{name: "negative k", k: -1, n: 5},
		{name: "zero n", k: 10, n: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Recommend(1, tt.k, tt.n); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Recommend() error = %v, want ErrInvalidArgument", err)
			}
		})
	}

	if _, err := e.Neighbors(1, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Neighbors(k=0) error = %v, want ErrInvalidArgument", err)
	}
}

func TestEngine_RecommendDetailed(t *testing.T) {
	e := mustEngine(t, denseRatings(30, 20), nil)

	res, err := e.RecommendDetailed(5, 4, 3)
	if err != nil {
		t.Fatalf("RecommendDetailed() error = %v", err)
	}
	if res.User != 5 {
		t.Errorf("User = %d, want 5", res.User)
	}
	if len(res.Neighbors) > 4 || len(res.Recommendations) > 3 {
		t.Errorf("got %d neighbors and %d recommendations, limits 4 and 3",
			len(res.Neighbors), len(res.Recommendations))
	}
	if res.Candidates < len(res.Neighbors) {
		t.Errorf("Candidates = %d < neighbors %d", res.Candidates, len(res.Neighbors))
	}
}

func TestEngine_Stats(t *testing.T) {
	e := mustEngine(t, scenarioRatings(), nil)
	stats := e.Stats()

	if stats.Users != 3 || stats.Items != 4 || stats.Ratings != 6 || stats.UsersWithNorm != 3 {
		t.Errorf("Stats() = %+v", stats)
	}
	if !e.HasUser(2) || e.HasUser(9) {
		t.Error("HasUser() reported wrong membership")
	}
	if got := e.Similarity(2, 1); !approxEqual(got, scenarioSim) {
		t.Errorf("Similarity(2, 1) = %v, want %v", got, scenarioSim)
	}
}

func TestEngine_ValidateRecommendations(t *testing.T) {
	e := mustEngine(t, scenarioRatings(), nil)

	tests := []struct {
		name string
		recs []Recommendation
	}{
		{name: "already rated item", recs: []Recommendation{{Item: 10, Score: 3}}},
		{name: "out of order", recs: []Recommendation{{Item: 30, Score: 1}, {Item: 40, Score: 2}}},
		{name: "too many", recs: []Recommendation{{Item: 30, Score: 2}, {Item: 40, Score: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit := 5
			if tt.name == "too many" {
				limit = 1
			}
			if err := e.validateRecommendations(1, tt.recs, limit); !errors.Is(err, ErrInvariant) {
				t.Errorf("validateRecommendations() error = %v, want ErrInvariant", err)
			}
		})
	}
}
