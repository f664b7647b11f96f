// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package dataset

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/tomtom215/bookrec/internal/recommend"
)

// maxLineSize bounds one libsvm line. Heavy raters in Book-Crossing have
// thousands of entries.
const maxLineSize = 16 << 20

// WriteLibSVM writes one line per user, "item:rating" pairs ascending by
// item. Line i holds user i; users missing below the highest ID get an empty
// line so positions stay aligned. IDs below 1 are rejected.
func WriteLibSVM(w io.Writer, ratings map[recommend.UserID]recommend.SparseVector) error {
	users := make([]recommend.UserID, 0, len(ratings))
	for u := range ratings {
		if u < 1 {
			return fmt.Errorf("write libsvm: user id %d is not 1-based", u)
		}
		users = append(users, u)
	}
	slices.Sort(users)

	bw := bufio.NewWriter(w)
	next := recommend.UserID(1)
	for _, u := range users {
		for ; next < u; next++ {
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("write libsvm: %w", err)
			}
		}
		if err := writeLibSVMLine(bw, ratings[u]); err != nil {
			return fmt.Errorf("write libsvm user %d: %w", u, err)
		}
		next = u + 1
	}
	return bw.Flush()
}

func writeLibSVMLine(bw *bufio.Writer, vec recommend.SparseVector) error {
	var buf []byte
	for i, item := range vec.Items() {
		if item < 1 {
			return fmt.Errorf("item id %d is not 1-based", item)
		}
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(item), 10)
		buf = append(buf, ':')
		buf = strconv.AppendFloat(buf, vec[item], 'g', -1, 64)
	}
	buf = append(buf, '\n')
	_, err := bw.Write(buf)
	return err
}

// ReadLibSVM reads a file written by WriteLibSVM. Every line becomes a user,
// including empty ones, which yield a user with no ratings.
func ReadLibSVM(r io.Reader) (map[recommend.UserID]recommend.SparseVector, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	ratings := make(map[recommend.UserID]recommend.SparseVector)
	line := 0
	for sc.Scan() {
		line++
		user := recommend.UserID(line)
		vec := make(recommend.SparseVector)
		for _, tok := range strings.Fields(sc.Text()) {
			item, rating, err := parseLibSVMToken(tok)
			if err != nil {
				return nil, fmt.Errorf("read libsvm line %d: %w", line, err)
			}
			vec[item] = rating
		}
		ratings[user] = vec
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read libsvm: %w", err)
	}
	return ratings, nil
}

func parseLibSVMToken(tok string) (recommend.ItemID, recommend.Rating, error) {
	itemStr, ratingStr, ok := strings.Cut(tok, ":")
	if !ok {
		return 0, 0, fmt.Errorf("token %q is not item:rating", tok)
	}
	// Older files wrote float item IDs such as "12.0".
	itemF, err := strconv.ParseFloat(itemStr, 64)
	if err != nil || itemF < 1 || itemF != float64(int64(itemF)) {
		return 0, 0, fmt.Errorf("token %q has invalid item id", tok)
	}
	rating, err := strconv.ParseFloat(ratingStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("token %q has invalid rating: %w", tok, err)
	}
	return recommend.ItemID(itemF), rating, nil
}
