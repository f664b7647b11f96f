// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/recommend"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(user recommend.UserID) recommend.UserResult {
	return recommend.UserResult{
		User:       user,
		Candidates: 4,
		Neighbors:  recommend.NeighborList{{User: 9, Similarity: 0.9}, {User: 8, Similarity: 0.5}},
		Recommendations: []recommend.Recommendation{
			{Item: 30, Score: 5},
			{Item: 12, Score: 3.25},
		},
	}
}

// commitRun publishes results as one completed run.
func commitRun(t *testing.T, s *Store, runID string, results ...recommend.UserResult) {
	t.Helper()
	if err := s.Stage(runID, results); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if _, err := s.Commit(RunMeta{RunID: runID, Users: len(results)}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func TestStore_CommitGet(t *testing.T) {
	s := setupTestStore(t)

	commitRun(t, s, "run-1", sampleResult(1))

	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.User != 1 || got.RunID != "run-1" {
		t.Errorf("Get() = %+v", got)
	}
	if got.Neighbors != 2 || got.Candidates != 4 {
		t.Errorf("Neighbors=%d Candidates=%d, want 2 and 4", got.Neighbors, got.Candidates)
	}
	if len(got.Recommendations) != 2 || got.Recommendations[1] != (recommend.Recommendation{Item: 12, Score: 3.25}) {
		t.Errorf("Recommendations = %v", got.Recommendations)
	}
	if got.GeneratedAt.IsZero() {
		t.Error("GeneratedAt should be set")
	}

	if _, err := s.Get(2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_EmptyResultKeepsEmptySlice(t *testing.T) {
	s := setupTestStore(t)
	commitRun(t, s, "run-1", recommend.UserResult{User: 5})
	got, err := s.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	if got.Recommendations == nil || len(got.Recommendations) != 0 {
		t.Errorf("Recommendations = %#v, want empty slice", got.Recommendations)
	}
}

func TestStore_CommitOverwrites(t *testing.T) {
	s := setupTestStore(t)

	commitRun(t, s, "run-1", sampleResult(1), sampleResult(2))
	commitRun(t, s, "run-2", recommend.UserResult{User: 1})

	got, err := s.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-2" || len(got.Recommendations) != 0 {
		t.Errorf("user 1 = %+v, want run-2 with no recommendations", got)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestStore_Meta(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.Meta(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Meta() before any run = %v, want ErrNotFound", err)
	}

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := MetaFromStats(recommend.BatchStats{
		RunID:           "run-1",
		Users:           100,
		EmptyResults:    7,
		Recommendations: 465,
		StartedAt:       started,
		Duration:        90 * time.Second,
	})
	if !meta.FinishedAt.Equal(started.Add(90 * time.Second)) {
		t.Errorf("FinishedAt = %v", meta.FinishedAt)
	}
	if err := s.PutMeta(meta); err != nil {
		t.Fatalf("PutMeta() error = %v", err)
	}

	got, err := s.Meta()
	if err != nil {
		t.Fatalf("Meta() error = %v", err)
	}
	if got.RunID != "run-1" || got.Users != 100 || got.Recommendations != 465 || got.Duration != 90*time.Second {
		t.Errorf("Meta() = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
}

func TestStore_Persistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	cfg := &config.StoreConfig{Path: dir, GCDiscardRatio: 0.5}

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	commitRun(t, s, "run-1", sampleResult(3))
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	got, err := s.Get(3)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", got.RunID)
	}
}

func TestStore_RunGCInMemory(t *testing.T) {
	s := setupTestStore(t)
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() in memory = %v, want nil", err)
	}
}

func TestStore_SnapshotRestore(t *testing.T) {
	src := setupTestStore(t)
	commitRun(t, src, "run-1", sampleResult(1), sampleResult(2))

	var buf bytes.Buffer
	version, err := src.Snapshot(&buf)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if version == 0 || buf.Len() == 0 {
		t.Fatalf("Snapshot() version = %d, %d bytes", version, buf.Len())
	}

	dst := setupTestStore(t)
	if err := dst.Restore(&buf); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n, err := dst.Count(); err != nil || n != 2 {
		t.Errorf("Count() after restore = %d, %v; want 2", n, err)
	}
	meta, err := dst.Meta()
	if err != nil || meta.RunID != "run-1" {
		t.Errorf("Meta() after restore = %+v, %v", meta, err)
	}
}

func TestStore_StageCommit(t *testing.T) {
	s := setupTestStore(t)

	commitRun(t, s, "run-0", sampleResult(1))
	if err := s.Stage("run-1", []recommend.UserResult{sampleResult(1), sampleResult(2)}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	got, err := s.Get(1)
	if err != nil || got.RunID != "run-0" {
		t.Errorf("Get(1) before commit = %+v, %v, want run-0", got, err)
	}
	if _, err := s.Get(2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(2) before commit error = %v, want ErrNotFound", err)
	}
	if n, err := s.Count(); err != nil || n != 1 {
		t.Errorf("Count() before commit = %d, %v, want 1", n, err)
	}

	n, err := s.Commit(RunMeta{RunID: "run-1", Users: 2})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Commit() published %d, want 2", n)
	}

	for _, user := range []recommend.UserID{1, 2} {
		got, err := s.Get(user)
		if err != nil || got.RunID != "run-1" {
			t.Errorf("Get(%d) after commit = %+v, %v, want run-1", user, got, err)
		}
	}
	meta, err := s.Meta()
	if err != nil || meta.RunID != "run-1" || meta.Users != 2 {
		t.Errorf("Meta() = %+v, %v", meta, err)
	}

	// The staging area is gone, so a second commit publishes nothing.
	n, err = s.Commit(RunMeta{RunID: "run-1", Users: 2})
	if err != nil || n != 0 {
		t.Errorf("second Commit() = %d, %v, want 0", n, err)
	}
}

func TestStore_DiscardDropsStagedRun(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Stage("run-1", []recommend.UserResult{sampleResult(1)}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := s.Stage("run-10", []recommend.UserResult{sampleResult(2)}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := s.Discard("run-1"); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}

	n, err := s.Commit(RunMeta{RunID: "run-1"})
	if err != nil || n != 0 {
		t.Errorf("Commit() of discarded run = %d, %v, want 0", n, err)
	}
	if _, err := s.Get(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(1) error = %v, want ErrNotFound", err)
	}

	n, err = s.Commit(RunMeta{RunID: "run-10"})
	if err != nil || n != 1 {
		t.Errorf("Commit() of run-10 = %d, %v, want 1", n, err)
	}
	if _, err := s.Get(2); err != nil {
		t.Errorf("Get(2) error = %v", err)
	}
}

func TestStore_StageRejectsEmptyRunID(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Stage("", []recommend.UserResult{sampleResult(1)}); err == nil {
		t.Error("Stage() with empty run id succeeded")
	}
}
