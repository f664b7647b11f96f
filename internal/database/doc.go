// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package database stores ratings and batch results in DuckDB.
//
// DuckDB is optional in bookrec. When enabled, `convert` loads the remapped
// ratings into the ratings table and every batch run appends its output to
// the recommendations table keyed by run ID, so runs can be compared with
// plain SQL:
//
//	SELECT item_id, COUNT(*) FROM recommendations
//	WHERE run_id = ? GROUP BY item_id ORDER BY 2 DESC LIMIT 10;
//
// An empty path opens an in-memory database.
package database
