// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/bookrec/internal/backup"
	"github.com/tomtom215/bookrec/internal/logging"
	"github.com/tomtom215/bookrec/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot and restore the Badger result store",
	Long: `Manage snapshots of the Badger result store in BACKUP_DIR.

Snapshots are also taken after every successful batch run when
BACKUP_AFTER_RUN is true. Restore verifies the snapshot checksum and, unless
--no-pre-snapshot is given, snapshots the current store first.

Examples:
  bookrec backup create
  bookrec backup list
  bookrec backup restore latest
  bookrec backup prune`,
}

var (
	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Snapshot the result store",
		Args:  cobra.NoArgs,
		RunE:  runBackupCreate,
	}
	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first, as JSON",
		Args:  cobra.NoArgs,
		RunE:  runBackupList,
	}
	backupVerifyCmd = &cobra.Command{
		Use:   "verify <id|latest>",
		Short: "Check a snapshot against its recorded checksum",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupVerify,
	}
	backupRestoreCmd = &cobra.Command{
		Use:   "restore <id|latest>",
		Short: "Load a snapshot into the result store",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupRestore,
	}
	backupDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupDelete,
	}
	backupPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy",
		Args:  cobra.NoArgs,
		RunE:  runBackupPrune,
	}
)

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupVerifyCmd, backupRestoreCmd, backupDeleteCmd, backupPruneCmd)

	pf := backupCmd.PersistentFlags()
	pf.String("dir", "", "snapshot directory (default from BACKUP_DIR)")
	pf.String("badger-path", "", "result store directory (default from BADGER_PATH)")

	backupRestoreCmd.Flags().Bool("no-pre-snapshot", false, "skip the safety snapshot of the current store")
}

func backupManager(cmd *cobra.Command) (*backup.Manager, error) {
	override(cmd, "dir", &cfg.Backup.Dir)
	return backup.NewManager(&cfg.Backup)
}

// openResultStore opens the Badger store named in config whether or not
// BADGER_ENABLED is set; the backup commands always need it.
func openResultStore(cmd *cobra.Command) (*store.Store, error) {
	override(cmd, "badger-path", &cfg.Store.Path)
	if cfg.Store.InMemory {
		return nil, fmt.Errorf("backup needs an on-disk result store; BADGER_IN_MEMORY is set")
	}
	s, err := store.Open(&cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return s, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runBackupCreate(cmd *cobra.Command, _ []string) error {
	m, err := backupManager(cmd)
	if err != nil {
		return err
	}
	s, err := openResultStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := m.Create(cmd.Context(), s, backup.TriggerManual)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), b)
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	m, err := backupManager(cmd)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), m.List())
}

func runBackupVerify(cmd *cobra.Command, args []string) error {
	m, err := backupManager(cmd)
	if err != nil {
		return err
	}
	if err := m.Verify(args[0]); err != nil {
		return err
	}
	logging.Info().Str("backup_id", args[0]).Msg("snapshot verified")
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	m, err := backupManager(cmd)
	if err != nil {
		return err
	}
	s, err := openResultStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	target, err := m.Get(args[0])
	if err != nil {
		return err
	}
	if skip, _ := cmd.Flags().GetBool("no-pre-snapshot"); !skip {
		pre, err := m.Create(ctx, s, backup.TriggerPreRestore)
		if err != nil {
			return fmt.Errorf("pre-restore snapshot: %w", err)
		}
		logging.Info().Str("backup_id", pre.ID).Msg("current store saved before restore")
	}
	return m.Restore(ctx, target.ID, s)
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	m, err := backupManager(cmd)
	if err != nil {
		return err
	}
	return m.Delete(args[0])
}

func runBackupPrune(cmd *cobra.Command, _ []string) error {
	m, err := backupManager(cmd)
	if err != nil {
		return err
	}
	res, err := m.Prune()
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}
