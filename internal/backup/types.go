// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package backup

import (
	"errors"
	"io"
	"time"

	"github.com/tomtom215/bookrec/internal/store"
)

// ErrNotFound is returned for an unknown snapshot ID.
var ErrNotFound = errors.New("backup not found")

// ErrChecksumMismatch is returned when a snapshot file no longer matches
// its recorded checksum.
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// Trigger records why a snapshot was taken.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerAfterRun Trigger = "after_run"
	// TriggerPreRestore snapshots the current store before a restore
	// overwrites it.
	TriggerPreRestore Trigger = "pre_restore"
)

// Backup describes one snapshot file.
type Backup struct {
	ID        string        `json:"id"`
	Trigger   Trigger       `json:"trigger"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration_ns"`
	FileName  string        `json:"file_name"`
	FileSize  int64         `json:"file_size"`
	Checksum  string        `json:"checksum"`
	Version   uint64        `json:"store_version"`
	RunID     string        `json:"run_id,omitempty"`
	Results   int           `json:"results"`
}

// RetentionPolicy decides which snapshots Prune removes.
type RetentionPolicy struct {
	MinCount   int
	MaxCount   int
	KeepRecent time.Duration
}

// Source is the store being snapshotted. *store.Store implements it.
type Source interface {
	Snapshot(w io.Writer) (uint64, error)
	Count() (int, error)
	Meta() (*store.RunMeta, error)
}

// Target receives a restored snapshot. *store.Store implements it.
type Target interface {
	Restore(r io.Reader) error
}

// PruneResult summarizes a Prune call.
type PruneResult struct {
	Deleted    []string `json:"deleted"`
	FreedBytes int64    `json:"freed_bytes"`
	Kept       int      `json:"kept"`
}

type metadataFile struct {
	Backups []*Backup `json:"backups"`
}
