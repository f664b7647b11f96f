// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

/*
Package services provides suture.Service wrappers for bookrec components.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve

Batch (BatchService):
  - Runs the recommendation batch once on start and then on an interval
  - A failed run is logged and retried on the next tick, never restarted
    by the supervisor

Store GC (StoreGCService):
  - Periodic Badger value log garbage collection

Every service implements fmt.Stringer so suture can name it in log events.
*/
package services
