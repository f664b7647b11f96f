// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package store persists the latest batch output in BadgerDB so the API can
// serve precomputed recommendations without recomputing them.
//
// Keys:
//
//	rec:<user>           StoredResult for one user, overwritten by each run
//	meta:last_run        RunMeta of the most recent completed run
//	stage:<run>:<user>   results of a run still in progress
//
// A batch run stages its results and Commit copies them over rec: and
// writes meta:last_run only once the run has succeeded. Discard drops the
// staged results of a failed run, so readers never see a partial run.
//
// Similarities are never stored; only final recommendations.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/metrics"
	"github.com/tomtom215/bookrec/internal/recommend"
)

const (
	resultKeyPrefix = "rec:"
	stageKeyPrefix  = "stage:"
	lastRunKey      = "meta:last_run"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("not found")

// StoredResult is one user's output from a batch run.
type StoredResult struct {
	User            recommend.UserID           `json:"user_id"`
	RunID           string                     `json:"run_id"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Neighbors       int                        `json:"neighbors"`
	Candidates      int                        `json:"candidates"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

// RunMeta describes a completed batch run.
type RunMeta struct {
	RunID           string        `json:"run_id"`
	Users           int           `json:"users"`
	EmptyResults    int           `json:"empty_results"`
	Recommendations int           `json:"recommendations"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Duration        time.Duration `json:"duration_ns"`
}

// MetaFromStats builds a RunMeta from batch statistics.
func MetaFromStats(stats recommend.BatchStats) RunMeta {
	return RunMeta{
		RunID:           stats.RunID,
		Users:           stats.Users,
		EmptyResults:    stats.EmptyResults,
		Recommendations: stats.Recommendations,
		StartedAt:       stats.StartedAt,
		FinishedAt:      stats.StartedAt.Add(stats.Duration),
		Duration:        stats.Duration,
	}
}

// Store is a Badger-backed result store. It is safe for concurrent use.
type Store struct {
	db       *badger.DB
	inMemory bool
	discard  float64
}

// Open opens the store described by cfg.
func Open(cfg *config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	discard := cfg.GCDiscardRatio
	if discard <= 0 || discard >= 1 {
		discard = 0.5
	}
	return &Store{db: db, inMemory: cfg.InMemory, discard: discard}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func resultKey(user recommend.UserID) []byte {
	return strconv.AppendInt([]byte(resultKeyPrefix), int64(user), 10)
}

func stagePrefix(runID string) []byte {
	return []byte(stageKeyPrefix + runID + ":")
}

func stageKey(runID string, user recommend.UserID) []byte {
	return strconv.AppendInt(stagePrefix(runID), int64(user), 10)
}

func newStoredResult(runID string, res recommend.UserResult, now time.Time) StoredResult {
	recs := res.Recommendations
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	return StoredResult{
		User:            res.User,
		RunID:           runID,
		Recommendations: recs,
		Neighbors:       len(res.Neighbors),
		Candidates:      res.Candidates,
		GeneratedAt:     now,
	}
}

// Stage writes results of an unfinished run. They stay invisible to Get
// until Commit.
func (s *Store) Stage(runID string, results []recommend.UserResult) error {
	if runID == "" {
		return errors.New("stage results: empty run id")
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	now := time.Now().UTC()
	for _, res := range results {
		data, err := json.Marshal(newStoredResult(runID, res, now))
		if err != nil {
			return fmt.Errorf("marshal result for user %d: %w", res.User, err)
		}
		if err := wb.Set(stageKey(runID, res.User), data); err != nil {
			return fmt.Errorf("batch set user %d: %w", res.User, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush write batch: %w", err)
	}
	return nil
}

// Commit publishes the results staged for meta.RunID, records meta as the
// last run and drops the staging area. Returns the number of results
// published.
func (s *Store) Commit(meta RunMeta) (int, error) {
	prefix := stagePrefix(meta.RunID)
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			user := item.Key()[len(prefix):]
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := wb.Set(append([]byte(resultKeyPrefix), user...), val); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("publish run %s: %w", meta.RunID, err)
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("publish run %s: %w", meta.RunID, err)
	}
	if err := s.PutMeta(meta); err != nil {
		return n, fmt.Errorf("store run meta: %w", err)
	}
	metrics.SinkWrites.WithLabelValues("badger").Add(float64(n))

	if err := s.Discard(meta.RunID); err != nil {
		return n, err
	}
	return n, nil
}

// Discard drops everything staged for runID.
func (s *Store) Discard(runID string) error {
	prefix := stagePrefix(runID)
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := wb.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		err = wb.Flush()
	}
	if err != nil {
		return fmt.Errorf("discard run %s: %w", runID, err)
	}
	return nil
}

// Get returns the stored result for user, or ErrNotFound.
func (s *Store) Get(user recommend.UserID) (*StoredResult, error) {
	var out StoredResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(user))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Count returns the number of stored user results.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(resultKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// PutMeta records the last completed run.
func (s *Store) PutMeta(meta RunMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal run meta: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lastRunKey), data)
	})
}

// Meta returns the last completed run, or ErrNotFound before the first.
func (s *Store) Meta() (*RunMeta, error) {
	var meta RunMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastRunKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get run meta: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// RunGC runs value log garbage collection until nothing is rewritten. It is
// a no-op for in-memory stores.
func (s *Store) RunGC() error {
	if s.inMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(s.discard)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Snapshot writes a full backup of the store to w in Badger's backup
// format and returns the version it covers.
func (s *Store) Snapshot(w io.Writer) (uint64, error) {
	version, err := s.db.Backup(w, 0)
	if err != nil {
		return 0, fmt.Errorf("snapshot store: %w", err)
	}
	return version, nil
}

// Restore loads a snapshot written by Snapshot. Keys in the snapshot
// overwrite existing keys; other keys are left alone.
func (s *Store) Restore(r io.Reader) error {
	if err := s.db.Load(r, 256); err != nil {
		return fmt.Errorf("restore store: %w", err)
	}
	return nil
}
