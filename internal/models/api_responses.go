// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package models holds the HTTP API wire types.
package models

import (
	"time"

	"github.com/tomtom215/bookrec/internal/recommend"
	"github.com/tomtom215/bookrec/internal/store"
)

// APIResponse wraps every API response.
//
// Success:
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 3}
//	}
//
// Error:
//
//	{
//	  "status": "error",
//	  "error": {"code": "USER_NOT_FOUND", "message": "user 42 has no ratings"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries timing and cache information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes: VALIDATION_ERROR, INVALID_USER_ID, USER_NOT_FOUND, NOT_FOUND,
// STORE_DISABLED, DATABASE_DISABLED, STORE_ERROR, DATABASE_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Uptime        float64        `json:"uptime_seconds"`
	Users         int            `json:"users"`
	Items         int            `json:"items"`
	Ratings       int            `json:"ratings"`
	UsersWithNorm int            `json:"users_with_norm"`
	StoreEnabled  bool           `json:"store_enabled"`
	LastRun       *store.RunMeta `json:"last_run,omitempty"`
}

// RecommendationView is one ranked recommendation.
type RecommendationView struct {
	Rank   int              `json:"rank"`
	ItemID recommend.ItemID `json:"item_id"`
	Title  string           `json:"title,omitempty"`
	Score  float64          `json:"score"`

	// DisplayScore is the 1-10 rescaled score, present when display=true.
	DisplayScore *int `json:"display_score,omitempty"`
}

// RecommendationsResponse is returned by the live and stored endpoints.
type RecommendationsResponse struct {
	UserID          recommend.UserID     `json:"user_id"`
	K               int                  `json:"k,omitempty"`
	N               int                  `json:"n,omitempty"`
	Candidates      int                  `json:"candidates"`
	Neighbors       int                  `json:"neighbors"`
	RunID           string               `json:"run_id,omitempty"`
	GeneratedAt     *time.Time           `json:"generated_at,omitempty"`
	Recommendations []RecommendationView `json:"recommendations"`
}

// NeighborsResponse is returned by GET /users/{userID}/neighbors.
type NeighborsResponse struct {
	UserID    recommend.UserID       `json:"user_id"`
	K         int                    `json:"k"`
	Neighbors recommend.NeighborList `json:"neighbors"`
}

// SimilarityResponse is returned by GET /users/{userID}/similarity/{otherID}.
type SimilarityResponse struct {
	UserID     recommend.UserID `json:"user_id"`
	OtherID    recommend.UserID `json:"other_id"`
	Similarity float64          `json:"similarity"`
}

// TopItemView is one entry of GET /runs/{runID}/top-items.
type TopItemView struct {
	ItemID    recommend.ItemID `json:"item_id"`
	Title     string           `json:"title,omitempty"`
	Count     int64            `json:"count"`
	MeanScore float64          `json:"mean_score"`
}
