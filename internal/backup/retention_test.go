// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package backup

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestSelectForDeletion(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	// b0 is the newest, b4 the oldest, one day apart.
	backups := make([]*Backup, 5)
	for i := range backups {
		backups[i] = &Backup{ID: string(rune('a' + i)), CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour)}
	}

	tests := []struct {
		name   string
		policy RetentionPolicy
		want   []string
	}{
		{"no max count keeps all", RetentionPolicy{MinCount: 1}, nil},
		{"max count removes oldest", RetentionPolicy{MaxCount: 3}, []string{"e", "d"}},
		{"min count protects newest", RetentionPolicy{MinCount: 4, MaxCount: 1}, []string{"e"}},
		{"recent protected", RetentionPolicy{MaxCount: 1, KeepRecent: 36 * time.Hour}, []string{"e", "d", "c"}},
		{"under limit", RetentionPolicy{MaxCount: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, b := range selectForDeletion(backups, tt.policy, now) {
				got = append(got, b.ID)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("selectForDeletion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_Prune(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	m.policy = RetentionPolicy{MinCount: 1, MaxCount: 2}
	src := seededStore(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		m.now = func() time.Time { return at }
		b, err := m.Create(context.Background(), src, TriggerAfterRun)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, b.ID)
	}

	res, err := m.Prune()
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if !slices.Equal(res.Deleted, []string{ids[0], ids[1]}) || res.Kept != 2 || res.FreedBytes <= 0 {
		t.Errorf("Prune() = %+v, want oldest two deleted", res)
	}
	for _, b := range m.List() {
		if err := m.Verify(b.ID); err != nil {
			t.Errorf("Verify(%s) after prune = %v", b.ID, err)
		}
	}

	res, err = m.Prune()
	if err != nil || len(res.Deleted) != 0 {
		t.Errorf("second Prune() = %+v, %v; want nothing deleted", res, err)
	}
}
