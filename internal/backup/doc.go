// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

/*
Package backup snapshots the Badger result store to files and restores them.

Each snapshot is a Badger backup stream written to <dir>/<id>.badger. Snapshot
records (size, SHA-256 checksum, store version, the run ID the store held)
are kept in <dir>/metadata.json, which is rewritten atomically after every
change.

Retention:

  - the MinCount newest snapshots are always kept
  - snapshots younger than KeepRecent are kept
  - of the rest, the oldest are removed until at most MaxCount remain

A MaxCount of 0 disables the count limit.
*/
package backup
