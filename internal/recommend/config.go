// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package recommend

import (
	"fmt"
	"runtime"
	"time"

	"github.com/goccy/go-json"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Neighbors is the default neighborhood size K.
	// Default: 10.
	Neighbors int `json:"neighbors"`

	// Results is the default number of recommendations N per user.
	// Default: 5.
	Results int `json:"results"`

	// MaxNeighbors caps K for interactive requests.
	// Default: 1000.
	MaxNeighbors int `json:"max_neighbors"`

	// MaxResults caps N for interactive requests.
	// Default: 100.
	MaxResults int `json:"max_results"`

	// Workers is the batch worker pool size.
	// Default: runtime.NumCPU().
	Workers int `json:"workers"`

	// ReorderWindow bounds how many finished users may wait for a slower
	// predecessor before emission. Must be at least Workers.
	// Default: 1024.
	ReorderWindow int `json:"reorder_window"`

	// ProgressInterval is how often batch progress is logged. Zero disables it.
	// Default: 10s.
	ProgressInterval time.Duration `json:"progress_interval"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Neighbors:        10,
		Results:          5,
		MaxNeighbors:     1000,
		MaxResults:       100,
		Workers:          runtime.NumCPU(),
		ReorderWindow:    1024,
		ProgressInterval: 10 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Neighbors < 1 {
		return fmt.Errorf("neighbors must be positive, got %d", c.Neighbors)
	}
	if c.Results < 1 {
		return fmt.Errorf("results must be positive, got %d", c.Results)
	}
	if c.MaxNeighbors < c.Neighbors {
		return fmt.Errorf("max_neighbors must be >= neighbors, got %d < %d", c.MaxNeighbors, c.Neighbors)
	}
	if c.MaxResults < c.Results {
		return fmt.Errorf("max_results must be >= results, got %d < %d", c.MaxResults, c.Results)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.ReorderWindow < c.Workers {
		return fmt.Errorf("reorder_window must be >= workers, got %d < %d", c.ReorderWindow, c.Workers)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress_interval must be non-negative, got %v", c.ProgressInterval)
	}
	return nil
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// MarshalJSON renders durations as strings.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		*Alias
		ProgressInterval string `json:"progress_interval"`
	}{
		Alias:            (*Alias)(c),
		ProgressInterval: c.ProgressInterval.String(),
	})
}
