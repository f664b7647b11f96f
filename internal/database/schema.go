// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ratings (
		user_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		rating DOUBLE NOT NULL,
		PRIMARY KEY (user_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		run_id VARCHAR NOT NULL,
		user_id INTEGER NOT NULL,
		"rank" INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		score DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, user_id, "rank")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_run_item ON recommendations (run_id, item_id)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
