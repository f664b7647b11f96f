// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/database"
	"github.com/tomtom215/bookrec/internal/dataset"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/metrics"
	"github.com/tomtom215/bookrec/internal/models"
	"github.com/tomtom215/bookrec/internal/recommend"
	"github.com/tomtom215/bookrec/internal/store"
)

// Recommender is the engine surface the API needs. *recommend.Engine
// satisfies it.
type Recommender interface {
	HasUser(user recommend.UserID) bool
	Similarity(a, b recommend.UserID) float64
	Neighbors(user recommend.UserID, k int) (recommend.NeighborList, error)
	RecommendDetailed(user recommend.UserID, k, n int) (recommend.UserResult, error)
	Stats() recommend.Stats
}

// ResultStore serves the output of the last batch run. *store.Store
// satisfies it.
type ResultStore interface {
	Get(user recommend.UserID) (*store.StoredResult, error)
	Meta() (*store.RunMeta, error)
}

// RunAnalytics answers aggregate queries over batch runs. *database.DB
// satisfies it.
type RunAnalytics interface {
	TopItems(ctx context.Context, runID string, limit int) ([]database.ItemCount, error)
}

// TitleResolver maps item IDs to book titles.
type TitleResolver interface {
	Title(item recommend.ItemID) string
}

// Dependencies wires a Handler. Results, Analytics and Titles are
// optional; leave them nil (not a typed nil pointer) when disabled.
type Dependencies struct {
	Engine    Recommender
	Results   ResultStore
	Analytics RunAnalytics
	Titles    TitleResolver
	Version   string
}

// Handler serves the HTTP API.
type Handler struct {
	engine    Recommender
	results   ResultStore
	analytics RunAnalytics
	titles    TitleResolver

	// recCache holds live results keyed by user:k:n. nil when disabled.
	recCache *expirable.LRU[string, recommend.UserResult]

	cfg       *config.Config
	version   string
	startTime time.Time
}

// NewHandler creates a handler. cfg supplies the default and maximum K and
// N and the response cache size.
func NewHandler(deps Dependencies, cfg *config.Config) *Handler {
	h := &Handler{
		engine:    deps.Engine,
		results:   deps.Results,
		analytics: deps.Analytics,
		titles:    deps.Titles,
		cfg:       cfg,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if h.version == "" {
		h.version = "dev"
	}
	if cfg.Server.CacheSize > 0 {
		h.recCache = expirable.NewLRU[string, recommend.UserResult](cfg.Server.CacheSize, nil, cfg.Server.CacheTTL)
	}
	return h
}

// Health returns engine statistics and the last run, if any.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats := h.engine.Stats()

	resp := models.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Uptime:        time.Since(h.startTime).Seconds(),
		Users:         stats.Users,
		Items:         stats.Items,
		Ratings:       stats.Ratings,
		UsersWithNorm: stats.UsersWithNorm,
		StoreEnabled:  h.results != nil,
	}

	if h.results != nil {
		meta, err := h.results.Meta()
		switch {
		case err == nil:
			resp.LastRun = meta
		case !errors.Is(err, store.ErrNotFound):
			resp.Status = "degraded"
			logBackendError(r, "read run meta", err)
		}
	}

	respondSuccess(w, resp, start, false)
}

// Recommendations computes live recommendations for a user.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, err := userParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "User ID must be a positive integer", err)
		return
	}

	req := RecommendationsRequest{Display: boolParam(r, "display")}
	if req.K, err = intParam(r, "k", h.cfg.Recommend.Neighbors); err == nil {
		req.N, err = intParam(r, "n", h.cfg.Recommend.Results)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}
	if apiErr := h.checkLimits(req.K, req.N); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	if !h.engine.HasUser(user) {
		respondError(w, http.StatusNotFound, "USER_NOT_FOUND", fmt.Sprintf("User %d has no ratings", user), nil)
		return
	}

	res, cached, err := h.recommend(user, req.K, req.N)
	if err != nil {
		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		if errors.Is(err, recommend.ErrInvalidArgument) {
			status, code = http.StatusBadRequest, "VALIDATION_ERROR"
		}
		respondError(w, status, code, "Failed to compute recommendations", err)
		return
	}

	respondSuccess(w, models.RecommendationsResponse{
		UserID:          user,
		K:               req.K,
		N:               req.N,
		Candidates:      res.Candidates,
		Neighbors:       len(res.Neighbors),
		Recommendations: h.views(res.Recommendations, req.Display),
	}, start, cached)
}

// recommend consults the cache before running the engine.
func (h *Handler) recommend(user recommend.UserID, k, n int) (recommend.UserResult, bool, error) {
	key := fmt.Sprintf("%d:%d:%d", user, k, n)
	if h.recCache != nil {
		if res, ok := h.recCache.Get(key); ok {
			metrics.RecordCacheLookup("recommendations", true)
			return res, true, nil
		}
		metrics.RecordCacheLookup("recommendations", false)
	}

	res, err := h.engine.RecommendDetailed(user, k, n)
	if err != nil {
		return recommend.UserResult{}, false, err
	}
	if h.recCache != nil {
		h.recCache.Add(key, res)
	}
	return res, false, nil
}

// Neighbors returns the top-k neighborhood of a user.
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, err := userParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "User ID must be a positive integer", err)
		return
	}

	var req NeighborsRequest
	if req.K, err = intParam(r, "k", h.cfg.Recommend.Neighbors); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}
	if apiErr := h.checkLimits(req.K, 1); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	if !h.engine.HasUser(user) {
		respondError(w, http.StatusNotFound, "USER_NOT_FOUND", fmt.Sprintf("User %d has no ratings", user), nil)
		return
	}

	neighbors, err := h.engine.Neighbors(user, req.K)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to select neighbors", err)
		return
	}
	if neighbors == nil {
		neighbors = recommend.NeighborList{}
	}

	respondSuccess(w, models.NeighborsResponse{UserID: user, K: req.K, Neighbors: neighbors}, start, false)
}

// Similarity returns the cosine similarity between two users.
func (h *Handler) Similarity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, err := userParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "User ID must be a positive integer", err)
		return
	}
	other, err := userParam(r, "otherID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Other user ID must be a positive integer", err)
		return
	}

	for _, u := range []recommend.UserID{user, other} {
		if !h.engine.HasUser(u) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", fmt.Sprintf("User %d has no ratings", u), nil)
			return
		}
	}

	respondSuccess(w, models.SimilarityResponse{
		UserID:     user,
		OtherID:    other,
		Similarity: h.engine.Similarity(user, other),
	}, start, false)
}

// Stored returns a user's recommendations from the last batch run.
func (h *Handler) Stored(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, err := userParam(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "User ID must be a positive integer", err)
		return
	}
	if h.results == nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_DISABLED", "Result store is not enabled", nil)
		return
	}

	stored, err := h.results.Get(user)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("No stored recommendations for user %d", user), nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to read stored recommendations", err)
		return
	}

	generated := stored.GeneratedAt
	respondSuccess(w, models.RecommendationsResponse{
		UserID:          user,
		Candidates:      stored.Candidates,
		Neighbors:       stored.Neighbors,
		RunID:           stored.RunID,
		GeneratedAt:     &generated,
		Recommendations: h.views(stored.Recommendations, boolParam(r, "display")),
	}, start, false)
}

// LatestRun returns metadata for the last completed batch run.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.results == nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_DISABLED", "Result store is not enabled", nil)
		return
	}

	meta, err := h.results.Meta()
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No batch run has completed", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to read run metadata", err)
		return
	}

	respondSuccess(w, meta, start, false)
}

// TopItems returns the most recommended items of a run. The run ID
// "latest" resolves through the result store.
func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.analytics == nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_DISABLED", "Analytics database is not enabled", nil)
		return
	}

	req := TopItemsRequest{RunID: strings.TrimSpace(chi.URLParam(r, "runID"))}
	var err error
	if req.Limit, err = intParam(r, "limit", 10); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	if req.RunID == "latest" {
		if h.results == nil {
			respondError(w, http.StatusServiceUnavailable, "STORE_DISABLED", "Result store is not enabled", nil)
			return
		}
		meta, err := h.results.Meta()
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "No batch run has completed", nil)
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to read run metadata", err)
			return
		}
		req.RunID = meta.RunID
	}

	counts, err := h.analytics.TopItems(r.Context(), req.RunID, req.Limit)
	if errors.Is(err, database.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "Analytics database is temporarily unavailable", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query top items", err)
		return
	}

	views := make([]models.TopItemView, 0, len(counts))
	for _, c := range counts {
		views = append(views, models.TopItemView{
			ItemID:    c.Item,
			Title:     h.title(c.Item),
			Count:     c.Count,
			MeanScore: c.MeanScore,
		})
	}
	respondSuccess(w, views, start, false)
}

// checkLimits caps k and n at the configured maxima.
func (h *Handler) checkLimits(k, n int) *models.APIError {
	if k > h.cfg.Recommend.MaxNeighbors {
		return &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: fmt.Sprintf("k must be at most %d", h.cfg.Recommend.MaxNeighbors),
			Details: map[string]interface{}{"field": "k", "value": k},
		}
	}
	if n > h.cfg.Recommend.MaxResults {
		return &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: fmt.Sprintf("n must be at most %d", h.cfg.Recommend.MaxResults),
			Details: map[string]interface{}{"field": "n", "value": n},
		}
	}
	return nil
}

func (h *Handler) views(recs []recommend.Recommendation, display bool) []models.RecommendationView {
	out := make([]models.RecommendationView, 0, len(recs))
	for i, rec := range recs {
		v := models.RecommendationView{
			Rank:   i + 1,
			ItemID: rec.Item,
			Title:  h.title(rec.Item),
			Score:  rec.Score,
		}
		if display {
			s := dataset.Rescale(rec.Score)
			v.DisplayScore = &s
		}
		out = append(out, v)
	}
	return out
}

func (h *Handler) title(item recommend.ItemID) string {
	if h.titles == nil {
		return ""
	}
	return h.titles.Title(item)
}

// logBackendError logs a non-fatal backend error with the request ID.
func logBackendError(r *http.Request, what string, err error) {
	logging.Ctx(r.Context()).Warn().Err(err).Msg(sanitizeLogValue(what))
}
