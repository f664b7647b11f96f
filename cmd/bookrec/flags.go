// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type flagError struct {
	flag  string
	value string
}

func (e *flagError) Error() string {
	return fmt.Sprintf("invalid value %q for --%s", e.value, e.flag)
}

// override copies a string flag into dst when it was set explicitly, so
// flags beat config files and the environment but defaults do not.
func override(cmd *cobra.Command, name string, dst *string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	if v, err := cmd.Flags().GetString(name); err == nil {
		*dst = v
	}
}

func overrideInt(cmd *cobra.Command, name string, dst *int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	if v, err := cmd.Flags().GetInt(name); err == nil {
		*dst = v
	}
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) {
	if !cmd.Flags().Changed(name) {
		return
	}
	if v, err := cmd.Flags().GetBool(name); err == nil {
		*dst = v
	}
}
