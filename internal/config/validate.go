// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/bookrec/internal/validation"
)

// Validate checks struct tags first, then the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateDurations(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	return c.validateSecurity()
}

func (c *Config) validateDurations() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"recommend.progress_interval", c.Recommend.ProgressInterval},
		{"batch.interval", c.Batch.Interval},
		{"store.gc_interval", c.Store.GCInterval},
		{"backup.keep_recent", c.Backup.KeepRecent},
		{"server.cache_ttl", c.Server.CacheTTL},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, d.value)
		}
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"security.rate_limit_window", c.Security.RateLimitWindow},
	}
	for _, d := range positive {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Enabled && !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("BADGER_PATH is required when BADGER_ENABLED=true and BADGER_IN_MEMORY=false")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.AfterRun && c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when BACKUP_AFTER_RUN=true")
	}
	if c.Backup.MaxCount > 0 && c.Backup.MaxCount < c.Backup.MinCount {
		return fmt.Errorf("BACKUP_MAX_COUNT (%d) must be at least BACKUP_MIN_COUNT (%d)", c.Backup.MaxCount, c.Backup.MinCount)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "" {
			return fmt.Errorf("CORS_ORIGINS contains an empty origin")
		}
	}
	return nil
}
