// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/recommend"
	"github.com/tomtom215/bookrec/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(&config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	s := openStore(t)
	results := []recommend.UserResult{
		{User: 1, Recommendations: []recommend.Recommendation{{Item: 30, Score: 5}}},
		{User: 2},
	}
	if err := s.Stage("run-7", results); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(store.RunMeta{RunID: "run-7", Users: 2}); err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	m, err := NewManager(&config.BackupConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestManager_CreateAndRestore(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	src := seededStore(t)

	b, err := m.Create(context.Background(), src, TriggerManual)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.RunID != "run-7" || b.Results != 2 || b.FileSize == 0 || len(b.Checksum) != 64 {
		t.Errorf("Create() = %+v", b)
	}
	if _, err := os.Stat(filepath.Join(dir, b.FileName)); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}

	dst := openStore(t)
	if err := m.Restore(context.Background(), b.ID, dst); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	got, err := dst.Get(1)
	if err != nil {
		t.Fatalf("Get() after restore error = %v", err)
	}
	if got.RunID != "run-7" || len(got.Recommendations) != 1 || got.Recommendations[0].Item != 30 {
		t.Errorf("restored result = %+v", got)
	}
}

func TestManager_MetadataPersists(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	src := seededStore(t)

	first, err := m.Create(context.Background(), src, TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return first.CreatedAt.Add(time.Minute) }
	second, err := m.Create(context.Background(), src, TriggerAfterRun)
	if err != nil {
		t.Fatal(err)
	}

	reopened := newTestManager(t, dir)
	list := reopened.List()
	if len(list) != 2 {
		t.Fatalf("List() after reopen = %d entries, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("List() order = [%s %s], want newest first", list[0].ID, list[1].ID)
	}
	latest, err := reopened.Get("latest")
	if err != nil || latest.ID != second.ID {
		t.Errorf("Get(latest) = %v, %v; want %s", latest, err, second.ID)
	}
}

func TestManager_VerifyDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	b, err := m.Create(context.Background(), seededStore(t), TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Verify(b.ID); err != nil {
		t.Fatalf("Verify() on fresh snapshot = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, b.FileName), []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := m.Verify(b.ID); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Verify() = %v, want ErrChecksumMismatch", err)
	}
	if err := m.Restore(context.Background(), b.ID, openStore(t)); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Restore() = %v, want ErrChecksumMismatch", err)
	}
}

func TestManager_Delete(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	b, err := m.Create(context.Background(), seededStore(t), TriggerManual)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Delete(b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, b.FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("snapshot file still present: %v", err)
	}
	if _, err := m.Get(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if err := m.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(nope) = %v, want ErrNotFound", err)
	}
}

func TestManager_EmptyStore(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	b, err := m.Create(context.Background(), openStore(t), TriggerManual)
	if err != nil {
		t.Fatalf("Create() on empty store error = %v", err)
	}
	if b.RunID != "" || b.Results != 0 {
		t.Errorf("Create() = %+v, want no run", b)
	}
}

func TestManager_CanceledContext(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Create(ctx, openStore(t), TriggerManual); !errors.Is(err, context.Canceled) {
		t.Errorf("Create() = %v, want context.Canceled", err)
	}
	if len(m.List()) != 0 {
		t.Error("canceled Create recorded a snapshot")
	}
}

func TestNewManager_RequiresDir(t *testing.T) {
	if _, err := NewManager(&config.BackupConfig{}); err == nil {
		t.Error("NewManager() with empty dir succeeded")
	}
}
