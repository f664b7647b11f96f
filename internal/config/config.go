// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/recommend"
)

// Config holds all application configuration.
type Config struct {
	Recommend RecommendConfig `koanf:"recommend"`
	Batch     BatchConfig     `koanf:"batch"`
	Data      DataConfig      `koanf:"data"`
	Database  DatabaseConfig  `koanf:"database"`
	Store     StoreConfig     `koanf:"store"`
	Backup    BackupConfig    `koanf:"backup"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// RecommendConfig tunes the collaborative filtering engine.
type RecommendConfig struct {
	// Neighbors is the default neighborhood size K.
	Neighbors int `koanf:"neighbors" validate:"min=1"`

	// Results is the default number of recommendations N per user.
	Results int `koanf:"results" validate:"min=1"`

	// MaxNeighbors and MaxResults cap K and N on API requests.
	MaxNeighbors int `koanf:"max_neighbors" validate:"gtefield=Neighbors"`
	MaxResults   int `koanf:"max_results" validate:"gtefield=Results"`

	Workers       int `koanf:"workers" validate:"min=1"`
	ReorderWindow int `koanf:"reorder_window" validate:"gtefield=Workers"`

	// ProgressInterval is how often batch progress is logged. 0 disables it.
	ProgressInterval time.Duration `koanf:"progress_interval"`
}

// BatchConfig controls the batch run inside `bookrec serve`.
type BatchConfig struct {
	// RunOnStart computes recommendations for every user when the server starts.
	RunOnStart bool `koanf:"run_on_start"`

	// Interval re-runs the batch periodically. 0 runs it once.
	Interval time.Duration `koanf:"interval"`
}

// DataConfig locates input and output files.
type DataConfig struct {
	RatingsPath string `koanf:"ratings_path"`
	BooksPath   string `koanf:"books_path"`

	// MatrixPath is the libsvm file written by `convert` and read by `recommend`.
	MatrixPath string `koanf:"matrix_path"`

	OutputPath   string `koanf:"output_path"`
	OutputFormat string `koanf:"output_format" validate:"oneof=csv lines"`

	// Delimiter separates fields in the ratings and books CSV files.
	Delimiter string `koanf:"delimiter" validate:"delimiter"`

	// LegacyCatalog maps book IDs to catalog line numbers instead of ISBNs.
	LegacyCatalog bool `koanf:"legacy_catalog"`
}

// DatabaseConfig configures the optional DuckDB sink.
type DatabaseConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path is the DuckDB file. Empty means an in-memory database.
	Path string `koanf:"path"`

	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"min=0"`
}

// StoreConfig configures the optional Badger result store.
type StoreConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`

	// GCInterval schedules value log garbage collection. 0 disables it.
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio" validate:"gt=0,lt=1"`
}

// BackupConfig configures result store snapshots.
type BackupConfig struct {
	Dir string `koanf:"dir"`

	// Retention. MinCount snapshots are always kept; snapshots younger than
	// KeepRecent are kept; beyond that at most MaxCount survive a prune.
	MinCount   int           `koanf:"min_count" validate:"min=0"`
	MaxCount   int           `koanf:"max_count" validate:"min=0"`
	KeepRecent time.Duration `koanf:"keep_recent"`

	// AfterRun snapshots the store after every successful batch run.
	AfterRun bool `koanf:"after_run"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CacheSize bounds the live recommendation response cache. 0 disables it.
	CacheSize int           `koanf:"cache_size" validate:"min=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	// Level: trace, debug, info, warn, error. Default: info
	Level string `koanf:"level" validate:"loglevel"`

	// Format: json or console. Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	Caller bool `koanf:"caller"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ToRecommendConfig converts the recommend section to the engine's config.
func (c *Config) ToRecommendConfig() *recommend.Config {
	return &recommend.Config{
		Neighbors:        c.Recommend.Neighbors,
		Results:          c.Recommend.Results,
		MaxNeighbors:     c.Recommend.MaxNeighbors,
		MaxResults:       c.Recommend.MaxResults,
		Workers:          c.Recommend.Workers,
		ReorderWindow:    c.Recommend.ReorderWindow,
		ProgressInterval: c.Recommend.ProgressInterval,
	}
}

// ToLoggingConfig converts the logging section to logging.Config.
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Caller:    c.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	}
}

// DelimiterRune returns the data delimiter as a rune for encoding/csv.
func (d DataConfig) DelimiterRune() rune {
	for _, r := range d.Delimiter {
		return r
	}
	return ';'
}
