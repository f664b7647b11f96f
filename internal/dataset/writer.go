// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tomtom215/bookrec/internal/metrics"
	"github.com/tomtom215/bookrec/internal/recommend"
)

// Output formats accepted by NewWriter.
const (
	FormatCSV   = "csv"
	FormatLines = "lines"
)

// CSVHeader is the first line of a CSV recommendation file.
const CSVHeader = "User_ID,Book_ID,Book_Title,Recommendation_Score"

// Rescale maps a score on the 0-5 rating scale to an integer 1-10 for
// display. Halves round to even.
func Rescale(score float64) int {
	scaled := math.RoundToEven(score * 2)
	switch {
	case math.IsNaN(scaled) || scaled < 1:
		return 1
	case scaled > 10:
		return 10
	default:
		return int(scaled)
	}
}

// ResultWriter writes batch results. Results must arrive in the order they
// should appear; Flush must be called once at the end.
type ResultWriter interface {
	WriteResult(res recommend.UserResult) error
	Flush() error
}

// NewWriter returns the writer for format. catalog and items are only used
// by the CSV format.
func NewWriter(format string, w io.Writer, catalog *Catalog, items *IDMap[string]) (ResultWriter, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVWriter(w, catalog, items), nil
	case FormatLines:
		return NewLineWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// CSVWriter writes one row per recommendation with a quoted title and a
// rescaled score. Users without recommendations produce no rows.
type CSVWriter struct {
	bw         *bufio.Writer
	catalog    *Catalog
	items      *IDMap[string]
	headerDone bool
	buf        []byte
}

// NewCSVWriter creates a CSVWriter. The header is written with the first
// result, or on Flush if there are none.
func NewCSVWriter(w io.Writer, catalog *Catalog, items *IDMap[string]) *CSVWriter {
	return &CSVWriter{bw: bufio.NewWriter(w), catalog: catalog, items: items}
}

func (cw *CSVWriter) writeHeader() error {
	if cw.headerDone {
		return nil
	}
	cw.headerDone = true
	_, err := cw.bw.WriteString(CSVHeader + "\n")
	return err
}

// WriteResult appends the rows for one user.
func (cw *CSVWriter) WriteResult(res recommend.UserResult) error {
	if err := cw.writeHeader(); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range res.Recommendations {
		cw.buf = cw.buf[:0]
		cw.buf = strconv.AppendInt(cw.buf, int64(res.User), 10)
		cw.buf = append(cw.buf, ',')
		cw.buf = strconv.AppendInt(cw.buf, int64(rec.Item), 10)
		cw.buf = append(cw.buf, ',')
		cw.buf = appendQuoted(cw.buf, cw.catalog.Title(rec.Item, cw.items))
		cw.buf = append(cw.buf, ',')
		cw.buf = strconv.AppendInt(cw.buf, int64(Rescale(rec.Score)), 10)
		cw.buf = append(cw.buf, '\n')
		if _, err := cw.bw.Write(cw.buf); err != nil {
			return fmt.Errorf("write csv row for user %d: %w", res.User, err)
		}
	}
	metrics.SinkWrites.WithLabelValues("csv").Add(float64(len(res.Recommendations)))
	return nil
}

// Flush writes any buffered rows.
func (cw *CSVWriter) Flush() error {
	if err := cw.writeHeader(); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return cw.bw.Flush()
}

// appendQuoted always quotes, doubling embedded quotes.
func appendQuoted(buf []byte, s string) []byte {
	buf = append(buf, '"')
	buf = append(buf, strings.ReplaceAll(s, `"`, `""`)...)
	return append(buf, '"')
}

// LineWriter writes one line per user:
//
//	UserID:7 -> BookID:30, Score:5.00, BookID:12, Score:4.25
//
// Scores are unscaled. Users without recommendations still get a line.
type LineWriter struct {
	bw  *bufio.Writer
	buf []byte
}

// NewLineWriter creates a LineWriter.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{bw: bufio.NewWriter(w)}
}

// WriteResult appends the line for one user.
func (lw *LineWriter) WriteResult(res recommend.UserResult) error {
	lw.buf = append(lw.buf[:0], "UserID:"...)
	lw.buf = strconv.AppendInt(lw.buf, int64(res.User), 10)
	lw.buf = append(lw.buf, " -> "...)
	for i, rec := range res.Recommendations {
		if i > 0 {
			lw.buf = append(lw.buf, ", "...)
		}
		lw.buf = append(lw.buf, "BookID:"...)
		lw.buf = strconv.AppendInt(lw.buf, int64(rec.Item), 10)
		lw.buf = append(lw.buf, ", Score:"...)
		lw.buf = strconv.AppendFloat(lw.buf, rec.Score, 'f', 2, 64)
	}
	lw.buf = append(lw.buf, '\n')
	if _, err := lw.bw.Write(lw.buf); err != nil {
		return fmt.Errorf("write line for user %d: %w", res.User, err)
	}
	metrics.SinkWrites.WithLabelValues("lines").Inc()
	return nil
}

// Flush writes any buffered lines.
func (lw *LineWriter) Flush() error {
	return lw.bw.Flush()
}
