// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package dataset reads and writes the files around the recommendation
// engine.
//
// The pipeline has two stages:
//
//	Ratings.csv --LoadRatings--> RatingSet --WriteLibSVM--> ratings.libsvm
//	ratings.libsvm --ReadLibSVM--> engine --CSVWriter/LineWriter--> recommendations.csv
//
// Raw user IDs and ISBNs are remapped to dense 1-based integers in order of
// first appearance (IDMap). The libsvm file stores one user per line, so line
// i holds user i. The item mapping is saved next to the matrix so a later
// run can resolve book titles through the catalog.
package dataset
