// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

// InvertedIndex maps each item to the users who rated it.
//
// Invariant: user u appears in PostingList(i) if and only if i is a key in
// u's SparseVector. Posting lists are sorted by UserID ascending.
type InvertedIndex struct {
	postings map[ItemID][]UserID
}

// NewInvertedIndex builds the index in one pass over the store.
func NewInvertedIndex(store *Store) *InvertedIndex {
	idx := &InvertedIndex{
		postings: make(map[ItemID][]UserID, store.NumItems()),
	}
	// Users() is ascending, so each posting list comes out sorted.
	for _, user := range store.Users() {
		items, _ := store.sortedItems(user)
		for _, item := range items {
			idx.postings[item] = append(idx.postings[item], user)
		}
	}
	return idx
}

// PostingList returns the users who rated item. The slice must not be modified.
func (idx *InvertedIndex) PostingList(item ItemID) []UserID {
	return idx.postings[item]
}

// Len returns the number of indexed items.
func (idx *InvertedIndex) Len() int {
	return len(idx.postings)
}
