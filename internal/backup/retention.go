// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package backup

import (
	"sort"
	"time"
)

// selectForDeletion applies policy to backups and returns the ones to remove.
func selectForDeletion(backups []*Backup, policy RetentionPolicy, now time.Time) []*Backup {
	sorted := make([]*Backup, len(backups))
	copy(sorted, backups)
	// newest first
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	keep := make(map[string]bool, len(sorted))
	for i := 0; i < policy.MinCount && i < len(sorted); i++ {
		keep[sorted[i].ID] = true
	}
	if policy.KeepRecent > 0 {
		cutoff := now.Add(-policy.KeepRecent)
		for _, b := range sorted {
			if b.CreatedAt.After(cutoff) {
				keep[b.ID] = true
			}
		}
	}

	if policy.MaxCount <= 0 {
		return nil
	}

	var victims []*Backup
	remaining := len(sorted)
	// oldest first
	for i := len(sorted) - 1; i >= 0 && remaining > policy.MaxCount; i-- {
		b := sorted[i]
		if keep[b.ID] {
			continue
		}
		victims = append(victims, b)
		remaining--
	}
	return victims
}

// Prune deletes snapshots the retention policy does not keep.
func (m *Manager) Prune() (PruneResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	victims := selectForDeletion(m.meta.Backups, m.policy, m.now())
	if len(victims) == 0 {
		return PruneResult{Deleted: []string{}, Kept: len(m.meta.Backups)}, nil
	}

	freed, err := m.deleteLocked(victims)
	if saveErr := m.saveMetadataLocked(); err == nil {
		err = saveErr
	}

	res := PruneResult{Deleted: make([]string, 0, len(victims)), FreedBytes: freed, Kept: len(m.meta.Backups)}
	for _, b := range victims {
		res.Deleted = append(res.Deleted, b.ID)
	}
	if err != nil {
		return res, err
	}

	m.logger.Info().
		Strs("deleted", res.Deleted).
		Int64("freed_bytes", freed).
		Int("kept", res.Kept).
		Msg("snapshots pruned")
	return res, nil
}
