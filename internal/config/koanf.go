// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bookrec/config.yaml",
	"/etc/bookrec/config.yml",
}

func defaultConfig() *Config {
	return &Config{
		Recommend: RecommendConfig{
			Neighbors:        10,
			Results:          5,
			MaxNeighbors:     1000,
			MaxResults:       100,
			Workers:          runtime.NumCPU(),
			ReorderWindow:    1024,
			ProgressInterval: 10 * time.Second,
		},
		Batch: BatchConfig{
			RunOnStart: true,
		},
		Data: DataConfig{
			RatingsPath:  "Ratings.csv",
			BooksPath:    "Books.csv",
			MatrixPath:   "ratings.libsvm",
			OutputPath:   "recommendations.csv",
			OutputFormat: "csv",
			Delimiter:    ";",
		},
		Database: DatabaseConfig{
			Enabled:   false,
			Path:      "",
			MaxMemory: "1GB",
		},
		Store: StoreConfig{
			Enabled:        false,
			Path:           "/data/bookrec",
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Backup: BackupConfig{
			Dir:        "/data/bookrec-backups",
			MinCount:   3,
			MaxCount:   10,
			KeepRecent: 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CacheSize:       1024,
			CacheTTL:        5 * time.Minute,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment. An empty path searches CONFIG_PATH and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// RECOMMEND_NEIGHBORS -> recommend.neighbors
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are split on commas when they arrive as a single string.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"recommend_neighbors":         "recommend.neighbors",
	"recommend_results":           "recommend.results",
	"recommend_max_neighbors":     "recommend.max_neighbors",
	"recommend_max_results":       "recommend.max_results",
	"recommend_workers":           "recommend.workers",
	"recommend_reorder_window":    "recommend.reorder_window",
	"recommend_progress_interval": "recommend.progress_interval",

	"batch_run_on_start": "batch.run_on_start",
	"batch_interval":     "batch.interval",

	"ratings_path":   "data.ratings_path",
	"books_path":     "data.books_path",
	"matrix_path":    "data.matrix_path",
	"output_path":    "data.output_path",
	"output_format":  "data.output_format",
	"csv_delimiter":  "data.delimiter",
	"legacy_catalog": "data.legacy_catalog",

	"duckdb_enabled":    "database.enabled",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"badger_enabled":          "store.enabled",
	"badger_path":             "store.path",
	"badger_in_memory":        "store.in_memory",
	"badger_gc_interval":      "store.gc_interval",
	"badger_gc_discard_ratio": "store.gc_discard_ratio",

	"backup_dir":         "backup.dir",
	"backup_min_count":   "backup.min_count",
	"backup_max_count":   "backup.max_count",
	"backup_keep_recent": "backup.keep_recent",
	"backup_after_run":   "backup.after_run",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"api_cache_size":        "server.cache_size",
	"api_cache_ttl":         "server.cache_ttl",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its koanf path. Unmapped
// variables return "" and are dropped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
