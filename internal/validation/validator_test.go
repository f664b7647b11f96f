// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type queryStruct struct {
	K     int    `validate:"min=1,max=1000"`
	N     int    `validate:"min=1,max=100"`
	Level string `validate:"omitempty,loglevel"`
	Delim string `validate:"omitempty,delimiter"`
	Mode  string `validate:"omitempty,oneof=csv lines"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     queryStruct
		wantErr   bool
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: queryStruct{K: 10, N: 5}},
		{name: "valid with optional fields", input: queryStruct{K: 1, N: 1, Level: "DEBUG", Delim: ";", Mode: "csv"}},
		{name: "k below min", input: queryStruct{K: 0, N: 5}, wantErr: true, wantField: "K", wantMsg: "K must be at least 1"},
		{name: "n above max", input: queryStruct{K: 1, N: 101}, wantErr: true, wantField: "N", wantMsg: "N must be at most 100"},
		{name: "bad log level", input: queryStruct{K: 1, N: 1, Level: "verbose"}, wantErr: true, wantField: "Level", wantMsg: "Level must be one of trace, debug, info, warn, error"},
		{name: "multi-char delimiter", input: queryStruct{K: 1, N: 1, Delim: ";;"}, wantErr: true, wantField: "Delim", wantMsg: "Delim must be a single character"},
		{name: "newline delimiter", input: queryStruct{K: 1, N: 1, Delim: "\n"}, wantErr: true, wantField: "Delim"},
		{name: "bad mode", input: queryStruct{K: 1, N: 1, Mode: "xml"}, wantErr: true, wantField: "Mode", wantMsg: "Mode must be one of: csv lines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if tt.wantMsg != "" && errs[0].Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := ValidateStruct(&queryStruct{K: 0, N: 5})
		apiErr := err.ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
		}
		if apiErr.Details["field"] != "K" {
			t.Errorf("Details[field] = %v, want K", apiErr.Details["field"])
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := ValidateStruct(&queryStruct{K: 0, N: 0})
		apiErr := err.ToAPIError()
		if !strings.Contains(apiErr.Message, "K: ") || !strings.Contains(apiErr.Message, "N: ") {
			t.Errorf("Message = %q, want both fields listed", apiErr.Message)
		}
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Errorf("Details[fields] = %v, want 2 entries", apiErr.Details["fields"])
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}
