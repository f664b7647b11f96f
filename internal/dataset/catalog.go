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
	"strings"

	"github.com/tomtom215/bookrec/internal/recommend"
)

// Catalog maps ISBNs to book titles.
type Catalog struct {
	titles map[string]string

	// byLine is the ISBN on each 1-based data line, used when no item
	// mapping is available.
	byLine map[int]string
}

// LoadCatalog reads "ISBN;Title;..." rows after a header line. Rows without
// a title are skipped but still advance the line index.
func LoadCatalog(r io.Reader, opts Options) (*Catalog, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	c := &Catalog{
		titles: make(map[string]string),
		byLine: make(map[int]string),
	}

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		var perr *csv.ParseError
		if !errors.As(err, &perr) {
			return nil, fmt.Errorf("read catalog header: %w", err)
		}
	}

	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		isbn := strings.TrimSpace(row[0])
		title := strings.TrimSpace(row[1])
		c.titles[isbn] = title
		c.byLine[line] = isbn
	}
	return c, nil
}

// Len returns the number of distinct ISBNs.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.titles)
}

// Title resolves item to a title through items (dense ID to ISBN). With a
// nil items map the item ID is taken as a catalog line number. When nothing
// matches, the item ID itself is tried as an ISBN before falling back to
// "Book_<id>".
func (c *Catalog) Title(item recommend.ItemID, items *IDMap[string]) string {
	if c != nil {
		isbn, ok := c.isbn(item, items)
		if !ok {
			isbn = strconv.Itoa(int(item))
		}
		if title, ok := c.titles[isbn]; ok {
			return title
		}
	}
	return fmt.Sprintf("Book_%d", item)
}

func (c *Catalog) isbn(item recommend.ItemID, items *IDMap[string]) (string, bool) {
	if items != nil {
		return items.Raw(int(item))
	}
	isbn, ok := c.byLine[int(item)]
	return isbn, ok
}

// Resolver binds a catalog to the item mapping it should be read through.
type Resolver struct {
	Catalog *Catalog
	Items   *IDMap[string]
}

// Title resolves item via Catalog.Title.
func (r Resolver) Title(item recommend.ItemID) string {
	return r.Catalog.Title(item, r.Items)
}
