// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// IDMap assigns dense 1-based IDs to raw keys in order of first appearance.
// It is not safe for concurrent use.
type IDMap[K comparable] struct {
	ids map[K]int
	raw []K
}

// NewIDMap creates an empty mapping.
func NewIDMap[K comparable]() *IDMap[K] {
	return &IDMap[K]{ids: make(map[K]int)}
}

// ID returns the dense ID for key, assigning the next one if key is new.
func (m *IDMap[K]) ID(key K) int {
	if id, ok := m.ids[key]; ok {
		return id
	}
	m.raw = append(m.raw, key)
	id := len(m.raw)
	m.ids[key] = id
	return id
}

// Lookup returns the dense ID for key without assigning one.
func (m *IDMap[K]) Lookup(key K) (int, bool) {
	id, ok := m.ids[key]
	return id, ok
}

// Raw returns the key that was assigned id.
func (m *IDMap[K]) Raw(id int) (K, bool) {
	if id < 1 || id > len(m.raw) {
		var zero K
		return zero, false
	}
	return m.raw[id-1], true
}

// Len returns the number of assigned IDs.
func (m *IDMap[K]) Len() int {
	return len(m.raw)
}

var idMapHeader = []string{"id", "key"}

// WriteIDMap writes m as "id,key" CSV rows in ID order.
func WriteIDMap(w io.Writer, m *IDMap[string]) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if err := cw.Write(idMapHeader); err != nil {
		return fmt.Errorf("write id map header: %w", err)
	}
	for i, key := range m.raw {
		if err := cw.Write([]string{strconv.Itoa(i + 1), key}); err != nil {
			return fmt.Errorf("write id map row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush id map: %w", err)
	}
	return bw.Flush()
}

// ReadIDMap reads a mapping written by WriteIDMap. IDs must be contiguous
// starting at 1.
func ReadIDMap(r io.Reader) (*IDMap[string], error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = 2

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return NewIDMap[string](), nil
		}
		return nil, fmt.Errorf("read id map header: %w", err)
	}

	m := NewIDMap[string]()
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read id map: %w", err)
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("read id map: bad id %q: %w", row[0], err)
		}
		if got := m.ID(row[1]); got != id {
			return nil, fmt.Errorf("read id map: key %q has id %d, expected %d", row[1], id, got)
		}
	}
	return m, nil
}
