// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tomtom215/bookrec/internal/recommend"
)

func TestWriteLibSVM(t *testing.T) {
	ratings := map[recommend.UserID]recommend.SparseVector{
		3: {7: 2.5},
		1: {20: 5, 10: 3},
		2: {},
	}

	var buf bytes.Buffer
	if err := WriteLibSVM(&buf, ratings); err != nil {
		t.Fatalf("WriteLibSVM() error = %v", err)
	}
	want := "10:3 20:5\n\n7:2.5\n"
	if buf.String() != want {
		t.Errorf("WriteLibSVM() = %q, want %q", buf.String(), want)
	}
}

func TestWriteLibSVM_Gaps(t *testing.T) {
	ratings := map[recommend.UserID]recommend.SparseVector{
		2: {1: 4},
		4: {2: 1},
	}
	var buf bytes.Buffer
	if err := WriteLibSVM(&buf, ratings); err != nil {
		t.Fatalf("WriteLibSVM() error = %v", err)
	}
	if want := "\n1:4\n\n2:1\n"; buf.String() != want {
		t.Errorf("WriteLibSVM() = %q, want %q", buf.String(), want)
	}
}

func TestWriteLibSVM_RejectsZeroIDs(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLibSVM(&buf, map[recommend.UserID]recommend.SparseVector{0: {1: 1}}); err == nil {
		t.Error("expected error for user 0")
	}
	if err := WriteLibSVM(&buf, map[recommend.UserID]recommend.SparseVector{1: {0: 1}}); err == nil {
		t.Error("expected error for item 0")
	}
}

func TestLibSVM_RoundTripFromCSV(t *testing.T) {
	set, err := LoadRatings(strings.NewReader(sampleRatings), Options{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteLibSVM(&buf, set.Ratings); err != nil {
		t.Fatal(err)
	}
	got, err := ReadLibSVM(&buf)
	if err != nil {
		t.Fatalf("ReadLibSVM() error = %v", err)
	}
	if len(got) != len(set.Ratings) {
		t.Fatalf("got %d users, want %d", len(got), len(set.Ratings))
	}
	for u, vec := range set.Ratings {
		for item, r := range vec {
			if got[u][item] != r {
				t.Errorf("user %d item %d = %v, want %v", u, item, got[u][item], r)
			}
		}
	}
}

func TestReadLibSVM(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[recommend.UserID]recommend.SparseVector
		wantErr bool
	}{
		{
			name:  "empty line is a user",
			input: "1:5 2:3\n\n3:1\n",
			want: map[recommend.UserID]recommend.SparseVector{
				1: {1: 5, 2: 3},
				2: {},
				3: {3: 1},
			},
		},
		{
			name:  "float item ids",
			input: "12.0:4.0\n",
			want:  map[recommend.UserID]recommend.SparseVector{1: {12: 4}},
		},
		{name: "missing colon", input: "1-5\n", wantErr: true},
		{name: "fractional item", input: "1.5:2\n", wantErr: true},
		{name: "zero item", input: "0:2\n", wantErr: true},
		{name: "bad rating", input: "1:x\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLibSVM(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("ReadLibSVM() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadLibSVM() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d users, want %d", len(got), len(tt.want))
			}
			for u, vec := range tt.want {
				gv, ok := got[u]
				if !ok || len(gv) != len(vec) {
					t.Errorf("user %d = %v, want %v", u, gv, vec)
					continue
				}
				for item, r := range vec {
					if gv[item] != r {
						t.Errorf("user %d item %d = %v, want %v", u, item, gv[item], r)
					}
				}
			}
		})
	}
}
