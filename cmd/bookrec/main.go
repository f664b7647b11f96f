// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Command bookrec computes book recommendations with user-based
// collaborative filtering.
//
// The batch pipeline has two stages:
//
//	bookrec convert   --ratings Ratings.csv --out ratings.libsvm
//	bookrec recommend --matrix ratings.libsvm --books Books.csv --out recommendations.csv
//
// convert remaps user and ISBN strings to dense IDs and writes a libsvm
// matrix plus a "<matrix>.items" sidecar mapping IDs back to ISBNs.
// recommend may also read the CSV directly with --ratings.
//
// bookrec serve loads the ratings, optionally runs the batch, and serves
// the HTTP API until SIGINT or SIGTERM.
//
// Settings come from config.yaml, then environment variables (see
// internal/config), then command-line flags.
package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tomtom215/bookrec/internal/config"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/metrics"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string

	// cfg is loaded by the root command before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bookrec",
	Short: "User-based collaborative filtering for book ratings",
	Long: `bookrec recommends books to users from explicit ratings using
cosine similarity between users and a similarity-weighted average of
neighbor ratings.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $CONFIG_PATH, ./config.yaml, /etc/bookrec/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: trace, debug, info, warn, error")
}

func loadConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		if !logging.ValidLevel(logLevel) {
			return &flagError{flag: "log-level", value: logLevel}
		}
		loaded.Logging.Level = logLevel
	}

	logging.Init(loaded.ToLoggingConfig())
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
	cfg = loaded
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("bookrec failed")
		os.Exit(1)
	}
}
