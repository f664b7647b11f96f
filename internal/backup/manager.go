// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package backup

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/store"
)

const (
	metadataName = "metadata.json"
	fileSuffix   = ".badger"
)

// Manager creates, lists, verifies, restores and prunes snapshots in one
// directory. It is safe for concurrent use within a process.
type Manager struct {
	dir    string
	policy RetentionPolicy
	logger zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	meta metadataFile
}

// NewManager opens the snapshot directory in cfg, creating it if needed.
func NewManager(cfg *config.BackupConfig) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("backup directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup directory %s: %w", cfg.Dir, err)
	}

	m := &Manager{
		dir: cfg.Dir,
		policy: RetentionPolicy{
			MinCount:   cfg.MinCount,
			MaxCount:   cfg.MaxCount,
			KeepRecent: cfg.KeepRecent,
		},
		logger: logging.WithComponent("backup"),
		now:    time.Now,
	}
	if err := m.loadMetadata(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(m.dir, metadataName))
	if errors.Is(err, fs.ErrNotExist) {
		m.meta = metadataFile{Backups: []*Backup{}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read backup metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m.meta); err != nil {
		return fmt.Errorf("parse backup metadata: %w", err)
	}
	return nil
}

// saveMetadataLocked rewrites metadata.json via a temp file and rename.
func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup metadata: %w", err)
	}
	path := filepath.Join(m.dir, metadataName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write backup metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace backup metadata: %w", err)
	}
	return nil
}

func (m *Manager) path(b *Backup) string {
	return filepath.Join(m.dir, b.FileName)
}

func newBackupID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

// Create snapshots src into a new file and records it.
func (m *Manager) Create(ctx context.Context, src Source, trigger Trigger) (*Backup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := m.now()
	b := &Backup{
		ID:        newBackupID(start),
		Trigger:   trigger,
		CreatedAt: start,
	}
	b.FileName = b.ID + fileSuffix

	if meta, err := src.Meta(); err == nil {
		b.RunID = meta.RunID
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read run metadata: %w", err)
	}
	n, err := src.Count()
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	b.Results = n

	if err := m.writeSnapshot(src, b); err != nil {
		return nil, err
	}
	b.Duration = m.now().Sub(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta.Backups = append(m.meta.Backups, b)
	if err := m.saveMetadataLocked(); err != nil {
		_ = os.Remove(m.path(b))
		m.meta.Backups = m.meta.Backups[:len(m.meta.Backups)-1]
		return nil, err
	}

	m.logger.Info().
		Str("backup_id", b.ID).
		Str("trigger", string(b.Trigger)).
		Str("run_id", b.RunID).
		Int("results", b.Results).
		Int64("bytes", b.FileSize).
		Dur("duration", b.Duration).
		Msg("snapshot created")

	copied := *b
	return &copied, nil
}

func (m *Manager) writeSnapshot(src Source, b *Backup) (err error) {
	path := m.path(b)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // path built from backup dir and generated ID
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	h := sha256.New()
	cw := &countingWriter{w: io.MultiWriter(f, h)}
	bw := bufio.NewWriter(cw)
	if b.Version, err = src.Snapshot(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	b.FileSize = cw.n
	b.Checksum = hex.EncodeToString(h.Sum(nil))
	return nil
}

// List returns all snapshots, newest first.
func (m *Manager) List() []Backup {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Backup, 0, len(m.meta.Backups))
	for _, b := range m.meta.Backups {
		out = append(out, *b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Get returns the snapshot with the given ID. "latest" names the newest.
func (m *Manager) Get(id string) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.findLocked(id)
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *b
	return &copied, nil
}

func (m *Manager) findLocked(id string) *Backup {
	if id == "latest" {
		var newest *Backup
		for _, b := range m.meta.Backups {
			if newest == nil || b.CreatedAt.After(newest.CreatedAt) {
				newest = b
			}
		}
		return newest
	}
	for _, b := range m.meta.Backups {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Verify recomputes the checksum of a snapshot file.
func (m *Manager) Verify(id string) error {
	b, err := m.Get(id)
	if err != nil {
		return err
	}
	f, err := os.Open(m.path(b))
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", b.ID, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("read snapshot %s: %w", b.ID, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != b.Checksum {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, b.ID)
	}
	return nil
}

// Restore verifies a snapshot and loads it into dst.
func (m *Manager) Restore(ctx context.Context, id string, dst Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.Verify(id); err != nil {
		return err
	}
	b, err := m.Get(id)
	if err != nil {
		return err
	}

	f, err := os.Open(m.path(b))
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", b.ID, err)
	}
	defer f.Close()

	if err := dst.Restore(bufio.NewReader(f)); err != nil {
		return err
	}
	m.logger.Info().Str("backup_id", b.ID).Str("run_id", b.RunID).Msg("snapshot restored")
	return nil
}

// Delete removes a snapshot file and its record.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.findLocked(id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	_, err := m.deleteLocked([]*Backup{b})
	if saveErr := m.saveMetadataLocked(); err == nil {
		err = saveErr
	}
	return err
}

// deleteLocked removes files and records; a missing file is not an error.
func (m *Manager) deleteLocked(victims []*Backup) (int64, error) {
	drop := make(map[string]bool, len(victims))
	var freed int64
	var err error
	for _, b := range victims {
		if rmErr := os.Remove(m.path(b)); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = fmt.Errorf("remove snapshot %s: %w", b.ID, rmErr)
			break
		}
		drop[b.ID] = true
		freed += b.FileSize
	}

	kept := m.meta.Backups[:0]
	for _, b := range m.meta.Backups {
		if !drop[b.ID] {
			kept = append(kept, b)
		}
	}
	m.meta.Backups = kept
	return freed, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
