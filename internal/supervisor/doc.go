// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

/*
Package supervisor runs the long-lived parts of `bookrec serve` under a
suture v4 supervisor tree:

	RootSupervisor ("bookrec")
	├── DataSupervisor ("data-layer")
	│   ├── BatchService
	│   └── StoreGCService (if BADGER_ENABLED and BADGER_GC_INTERVAL > 0)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crashing data service restarts with backoff without taking the API down.
Supervisor events are logged through sutureslog, which receives an
slog.Logger backed by zerolog (see logging.NewSlogLogger).

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewBatchService(runner, batchCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))
	err = tree.Serve(ctx)
*/
package supervisor
