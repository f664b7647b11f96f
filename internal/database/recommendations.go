// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/bookrec/internal/metrics"
	"github.com/tomtom215/bookrec/internal/recommend"
)

// InsertRecommendations writes the ranked output of results under runID.
// Rank is 1-based. Users without recommendations write nothing.
func (db *DB) InsertRecommendations(ctx context.Context, runID string, results []recommend.UserResult) (n int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "recommendations", time.Since(start), err) }()

	if runID == "" {
		return 0, fmt.Errorf("insert recommendations: empty run id")
	}
	if len(results) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { rollback(tx, err) }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO recommendations
		(run_id, user_id, "rank", item_id, score, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeQuietly(stmt)

	now := time.Now().UTC()
	for _, res := range results {
		for rank, rec := range res.Recommendations {
			if _, err = stmt.ExecContext(ctx, runID, int32(res.User), int32(rank+1), int32(rec.Item), rec.Score, now); err != nil {
				return 0, fmt.Errorf("insert recommendation user=%d rank=%d: %w", res.User, rank+1, err)
			}
			n++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit recommendations: %w", err)
	}
	metrics.SinkWrites.WithLabelValues("duckdb").Add(float64(n))
	return n, nil
}

// DeleteRun removes every recommendation row of runID.
func (db *DB) DeleteRun(ctx context.Context, runID string) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete", "recommendations", time.Since(start), err) }()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM recommendations WHERE run_id = ?`, runID)
	if err != nil {
		return 0, fmt.Errorf("delete run %s: %w", runID, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete run %s: %w", runID, err)
	}
	return n, nil
}

// RecommendationsForUser returns one user's stored output for a run, best
// first.
func (db *DB) RecommendationsForUser(ctx context.Context, runID string, user recommend.UserID) (_ []recommend.Recommendation, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "recommendations", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT item_id, score FROM recommendations WHERE run_id = ? AND user_id = ? ORDER BY "rank"`,
		runID, int32(user))
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer closeQuietly(rows)

	recs := []recommend.Recommendation{}
	for rows.Next() {
		var (
			item  int
			score float64
		)
		if err = rows.Scan(&item, &score); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, recommend.Recommendation{Item: recommend.ItemID(item), Score: score})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return recs, nil
}

// ItemCount is how often an item was recommended in a run.
type ItemCount struct {
	Item      recommend.ItemID `json:"item_id"`
	Count     int64            `json:"count"`
	MeanScore float64          `json:"mean_score"`
}

// TopItems returns the most recommended items of a run, ties broken by
// lower item ID.
func (db *DB) TopItems(ctx context.Context, runID string, limit int) (_ []ItemCount, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("aggregate", "recommendations", time.Since(start), err) }()

	if limit <= 0 {
		return nil, fmt.Errorf("top items: limit must be positive, got %d", limit)
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id, COUNT(*) AS n, AVG(score) AS mean_score
		FROM recommendations
		WHERE run_id = ?
		GROUP BY item_id
		ORDER BY n DESC, item_id ASC
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query top items: %w", err)
	}
	defer closeQuietly(rows)

	var out []ItemCount
	for rows.Next() {
		var (
			item int
			ic   ItemCount
		)
		if err = rows.Scan(&item, &ic.Count, &ic.MeanScore); err != nil {
			return nil, fmt.Errorf("scan top item: %w", err)
		}
		ic.Item = recommend.ItemID(item)
		out = append(out, ic)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top items: %w", err)
	}
	return out, nil
}

// RecommendationSink buffers batch results and writes them in chunks, so
// a long run does not hold one giant transaction.
type RecommendationSink struct {
	db        *DB
	runID     string
	batchSize int
	pending   []recommend.UserResult
	written   int
}

// NewRecommendationSink creates a sink for runID. batchSize is in users.
func (db *DB) NewRecommendationSink(runID string, batchSize int) *RecommendationSink {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &RecommendationSink{db: db, runID: runID, batchSize: batchSize}
}

// Add queues res, flushing when the buffer is full.
func (s *RecommendationSink) Add(ctx context.Context, res recommend.UserResult) error {
	if len(res.Recommendations) == 0 {
		return nil
	}
	s.pending = append(s.pending, res)
	if len(s.pending) >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush writes everything queued.
func (s *RecommendationSink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	n, err := s.db.InsertRecommendations(ctx, s.runID, s.pending)
	if err != nil {
		return err
	}
	s.written += n
	s.pending = s.pending[:0]
	return nil
}

// Discard drops what is still queued and deletes the rows already flushed
// for the sink's run.
func (s *RecommendationSink) Discard(ctx context.Context) error {
	s.pending = s.pending[:0]
	if s.written == 0 {
		return nil
	}
	if _, err := s.db.DeleteRun(ctx, s.runID); err != nil {
		return err
	}
	s.written = 0
	return nil
}

// Written returns the number of rows committed so far.
func (s *RecommendationSink) Written() int {
	return s.written
}
