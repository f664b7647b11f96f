// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

/*
Package api serves the recommendation engine over HTTP using the Chi router.

Endpoints:

	GET /api/v1/health
	GET /api/v1/users/{userID}/recommendations?k=&n=&display=
	GET /api/v1/users/{userID}/neighbors?k=
	GET /api/v1/users/{userID}/similarity/{otherID}
	GET /api/v1/users/{userID}/stored
	GET /api/v1/runs/latest
	GET /api/v1/runs/{runID}/top-items?limit=
	GET /metrics

User IDs are the dense IDs assigned during conversion. Live recommendations
run the engine on request and are cached in an LRU keyed by (user, k, n).
Stored recommendations come from the last batch run in Badger; top items
come from DuckDB. Both return 503 when their backend is disabled; top items
also return 503 while the DuckDB circuit breaker is open.

Every JSON response uses the models.APIResponse envelope.
*/
package api
