// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import "errors"

var (
	// ErrInvariant marks a broken data or ordering contract. It indicates a
	// programming error upstream and is never produced by sparse or
	// degenerate input alone.
	ErrInvariant = errors.New("recommend: invariant violation")

	// ErrInvalidArgument is returned for non-positive neighbor or result counts.
	ErrInvalidArgument = errors.New("recommend: invalid argument")

	// ErrUnknownUser is returned by lookups that require the user to exist.
	// Recommend itself treats unknown users as empty.
	ErrUnknownUser = errors.New("recommend: unknown user")
)
