// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestEventLevelConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		expected string
	}{
		{"info level", EventLevelInfo, "info"},
		{"warning level", EventLevelWarning, "warning"},
		{"error level", EventLevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestEventCategoriesUnique(t *testing.T) {
	categories := []string{
		EventCategoryAuth,
		EventCategoryEMag,
		EventCategoryExport,
		EventCategoryConfig,
		EventCategorySystem,
		EventCategoryCache,
	}

	seen := make(map[string]bool)
	for _, cat := range categories {
		if seen[cat] {
			t.Errorf("duplicate category: %q", cat)
		}
		seen[cat] = true
	}
}
