// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package cache provides the generic binary heap the engine uses for
// bounded top-K selection and for reordering batch results. The heap is
// ordered by a caller-supplied less function.
package cache
