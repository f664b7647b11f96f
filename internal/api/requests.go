// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/bookrec/internal/recommend"
)

// RecommendationsRequest holds the query of the live recommendations endpoint.
type RecommendationsRequest struct {
	K       int `validate:"min=1"`
	N       int `validate:"min=1"`
	Display bool
}

// NeighborsRequest holds the query of the neighbors endpoint.
type NeighborsRequest struct {
	K int `validate:"min=1"`
}

// TopItemsRequest holds the query of the top items endpoint.
type TopItemsRequest struct {
	RunID string `validate:"required,max=64"`
	Limit int    `validate:"min=1,max=1000"`
}

// errBadParam marks a query parameter that is present but unparsable.
type errBadParam struct {
	name  string
	value string
}

func (e *errBadParam) Error() string {
	return fmt.Sprintf("%s must be an integer, got %q", e.name, e.value)
}

// intParam returns the integer query parameter key, or def when absent.
func intParam(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &errBadParam{name: key, value: raw}
	}
	return v, nil
}

// boolParam accepts true/1/yes, case-insensitively.
func boolParam(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// userParam parses a positive user ID from the named route parameter.
func userParam(r *http.Request, name string) (recommend.UserID, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return recommend.UserID(id), nil
}
