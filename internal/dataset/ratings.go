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
	"math"
	"strconv"
	"strings"

	"github.com/tomtom215/bookrec/internal/recommend"
)

// Options controls CSV parsing for ratings and catalog files.
type Options struct {
	// Delimiter separates fields. Default: ';'.
	Delimiter rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ';'
	}
	return o.Delimiter
}

// RatingSet is a ratings file after ID remapping.
type RatingSet struct {
	Ratings map[recommend.UserID]recommend.SparseVector
	Users   *IDMap[string]
	Items   *IDMap[string]

	// Rows counts data rows read, Skipped the malformed ones among them.
	Rows    int
	Skipped int
}

// NumRatings returns the number of distinct (user, item) pairs.
func (s *RatingSet) NumRatings() int {
	n := 0
	for _, vec := range s.Ratings {
		n += len(vec)
	}
	return n
}

// LoadRatings reads "UserID;ISBN;Rating" rows after a header line.
//
// Rows with too few fields, an empty key, or a rating that is not a finite
// non-negative number are counted in Skipped. A repeated (user, ISBN) pair
// keeps the last rating.
func LoadRatings(r io.Reader, opts Options) (*RatingSet, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	set := &RatingSet{
		Ratings: make(map[recommend.UserID]recommend.SparseVector),
		Users:   NewIDMap[string](),
		Items:   NewIDMap[string](),
	}

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return set, nil
		}
		var perr *csv.ParseError
		if !errors.As(err, &perr) {
			return nil, fmt.Errorf("read ratings header: %w", err)
		}
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				set.Rows++
				set.Skipped++
				continue
			}
			return nil, fmt.Errorf("read ratings: %w", err)
		}
		set.Rows++

		user, isbn, rating, ok := parseRatingRow(row)
		if !ok {
			set.Skipped++
			continue
		}

		uid := recommend.UserID(set.Users.ID(user))
		iid := recommend.ItemID(set.Items.ID(isbn))
		vec, exists := set.Ratings[uid]
		if !exists {
			vec = make(recommend.SparseVector)
			set.Ratings[uid] = vec
		}
		vec[iid] = rating
	}

	return set, nil
}

func parseRatingRow(row []string) (user, isbn string, rating float64, ok bool) {
	if len(row) < 3 {
		return "", "", 0, false
	}
	user = strings.TrimSpace(row[0])
	isbn = strings.TrimSpace(row[1])
	if user == "" || isbn == "" {
		return "", "", 0, false
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil || rating < 0 || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return "", "", 0, false
	}
	return user, isbn, rating, true
}
