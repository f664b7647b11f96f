// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package database

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/bookrec/internal/metrics"
	"github.com/tomtom215/bookrec/internal/recommend"
)

// InsertRatings upserts every (user, item, rating) triple in one
// transaction and returns the number of rows written.
func (db *DB) InsertRatings(ctx context.Context, ratings map[recommend.UserID]recommend.SparseVector) (n int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "ratings", time.Since(start), err) }()

	if len(ratings) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { rollback(tx, err) }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ratings (user_id, item_id, rating) VALUES (?, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET rating = excluded.rating`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeQuietly(stmt)

	users := make([]recommend.UserID, 0, len(ratings))
	for u := range ratings {
		users = append(users, u)
	}
	slices.Sort(users)

	for _, u := range users {
		vec := ratings[u]
		for _, item := range vec.Items() {
			if _, err = stmt.ExecContext(ctx, int32(u), int32(item), vec[item]); err != nil {
				return 0, fmt.Errorf("insert rating user=%d item=%d: %w", u, item, err)
			}
			n++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ratings: %w", err)
	}
	return n, nil
}

// LoadRatings reads the ratings table back into sparse vectors.
func (db *DB) LoadRatings(ctx context.Context) (_ map[recommend.UserID]recommend.SparseVector, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "ratings", time.Since(start), err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, item_id, rating FROM ratings ORDER BY user_id, item_id`)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer closeQuietly(rows)

	ratings := make(map[recommend.UserID]recommend.SparseVector)
	for rows.Next() {
		var (
			user, item int
			rating     float64
		)
		if err = rows.Scan(&user, &item, &rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		uid := recommend.UserID(user)
		vec, ok := ratings[uid]
		if !ok {
			vec = make(recommend.SparseVector)
			ratings[uid] = vec
		}
		vec[recommend.ItemID(item)] = rating
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

// RatingCounts summarizes the ratings table.
type RatingCounts struct {
	Users   int64 `json:"users"`
	Items   int64 `json:"items"`
	Ratings int64 `json:"ratings"`
}

// CountRatings returns distinct users, distinct items and total rows.
func (db *DB) CountRatings(ctx context.Context) (RatingCounts, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var c RatingCounts
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id), COUNT(DISTINCT item_id), COUNT(*) FROM ratings`,
	).Scan(&c.Users, &c.Items, &c.Ratings)
	if err != nil {
		return RatingCounts{}, fmt.Errorf("count ratings: %w", err)
	}
	return c, nil
}
