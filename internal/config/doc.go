// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

/*
Package config loads bookrec configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/bookrec/config.yaml, /etc/bookrec/config.yml
 3. Environment variables listed in envTransformFunc

Unlisted environment variables are ignored. Comma-separated values are
split for the paths in sliceConfigPaths, so CORS_ORIGINS=a,b yields a
two-element slice.

Example config.yaml:

	recommend:
	  neighbors: 20
	  results: 10
	  workers: 8
	data:
	  ratings_path: /data/Ratings.csv
	  books_path: /data/Books.csv
	  output_format: lines
	store:
	  enabled: true
	  path: /data/badger
	backup:
	  dir: /data/backups
	  after_run: true
	  max_count: 5

Usage:

	cfg, err := config.Load("")
	if err != nil {
	    log.Fatal().Err(err).Msg("config")
	}
	engineCfg := cfg.ToRecommendConfig()
*/
package config
