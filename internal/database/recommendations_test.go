// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package database

import (
	"context"
	"testing"

	"github.com/tomtom215/bookrec/internal/recommend"
)

func sampleResults() []recommend.UserResult {
	return []recommend.UserResult{
		{User: 1, Recommendations: []recommend.Recommendation{{Item: 30, Score: 5}, {Item: 40, Score: 1}}},
		{User: 2, Recommendations: []recommend.Recommendation{{Item: 40, Score: 2}}},
		{User: 3},
		{User: 4, Recommendations: []recommend.Recommendation{{Item: 30, Score: 4}, {Item: 50, Score: 3}}},
	}
}

func TestInsertRecommendations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n, err := db.InsertRecommendations(ctx, "run-1", sampleResults())
	if err != nil {
		t.Fatalf("InsertRecommendations() error = %v", err)
	}
	if n != 5 {
		t.Errorf("InsertRecommendations() = %d, want 5", n)
	}

	recs, err := db.RecommendationsForUser(ctx, "run-1", 1)
	if err != nil {
		t.Fatalf("RecommendationsForUser() error = %v", err)
	}
	want := []recommend.Recommendation{{Item: 30, Score: 5}, {Item: 40, Score: 1}}
	if len(recs) != len(want) {
		t.Fatalf("got %v, want %v", recs, want)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("recs[%d] = %+v, want %+v", i, recs[i], want[i])
		}
	}

	empty, err := db.RecommendationsForUser(ctx, "run-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("user without output = %v, want empty non-nil slice", empty)
	}

	other, err := db.RecommendationsForUser(ctx, "run-2", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("unknown run returned %v", other)
	}
}

func TestInsertRecommendations_Validation(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.InsertRecommendations(context.Background(), "", sampleResults()); err == nil {
		t.Error("empty run id should fail")
	}
	n, err := db.InsertRecommendations(context.Background(), "run", nil)
	if err != nil || n != 0 {
		t.Errorf("no results = %d, %v; want 0, nil", n, err)
	}
}

func TestTopItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if _, err := db.InsertRecommendations(ctx, "run-1", sampleResults()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		limit int
		want  []ItemCount
	}{
		{
			name:  "all",
			limit: 10,
			want: []ItemCount{
				{Item: 30, Count: 2, MeanScore: 4.5},
				{Item: 40, Count: 2, MeanScore: 1.5},
				{Item: 50, Count: 1, MeanScore: 3},
			},
		},
		{
			name:  "limited",
			limit: 1,
			want:  []ItemCount{{Item: 30, Count: 2, MeanScore: 4.5}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.TopItems(ctx, "run-1", tt.limit)
			if err != nil {
				t.Fatalf("TopItems() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("TopItems() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("TopItems()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}

	if _, err := db.TopItems(ctx, "run-1", 0); err == nil {
		t.Error("TopItems(limit=0) should fail")
	}
}

func TestRecommendationSink(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	sink := db.NewRecommendationSink("run-sink", 2)
	for _, res := range sampleResults() {
		if err := sink.Add(ctx, res); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	// Users 1 and 2 filled the first chunk; user 4 is still pending.
	if sink.Written() != 3 {
		t.Errorf("Written() before flush = %d, want 3", sink.Written())
	}
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if sink.Written() != 5 {
		t.Errorf("Written() = %d, want 5", sink.Written())
	}

	top, err := db.TopItems(ctx, "run-sink", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 3 {
		t.Errorf("TopItems() = %v, want 3 items", top)
	}
}

func TestRecommendationSink_Discard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertRecommendations(ctx, "run-kept", sampleResults()); err != nil {
		t.Fatalf("InsertRecommendations() error = %v", err)
	}

	sink := db.NewRecommendationSink("run-aborted", 2)
	for _, res := range sampleResults() {
		if err := sink.Add(ctx, res); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := sink.Discard(ctx); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if sink.Written() != 0 {
		t.Errorf("Written() after Discard = %d, want 0", sink.Written())
	}
	// Pending rows are dropped too, so a later flush writes nothing.
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	recs, err := db.RecommendationsForUser(ctx, "run-aborted", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("aborted run still has rows: %v", recs)
	}
	kept, err := db.RecommendationsForUser(ctx, "run-kept", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 2 {
		t.Errorf("run-kept rows for user 1 = %v, want 2", kept)
	}
}

func TestDeleteRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertRecommendations(ctx, "run-1", sampleResults()); err != nil {
		t.Fatalf("InsertRecommendations() error = %v", err)
	}
	n, err := db.DeleteRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}
	if n != 5 {
		t.Errorf("DeleteRun() = %d, want 5", n)
	}
	n, err = db.DeleteRun(ctx, "run-1")
	if err != nil || n != 0 {
		t.Errorf("second DeleteRun() = %d, %v, want 0", n, err)
	}
}
