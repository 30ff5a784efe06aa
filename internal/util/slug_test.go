// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"special characters", "Hello, World!", "hello-world"},
		{"numbers", "Issue 123", "issue-123"},
		{"accents", "Café résumé", "cafe-resume"},
		{"multiple spaces", "Hello   World", "hello-world"},
		{"hyphens", "Hello - World", "hello-world"},
		{"underscores", "spring_issue", "spring-issue"},
		{"trim", "  Hello World  ", "hello-world"},
		{"all special", "!@#$%^&*()", ""},
		{"non latin dropped", "日本語タイトル", ""},
		{"umlauts", "Über München", "uber-munchen"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTransliterateSlug(t *testing.T) {
	if got := TransliterateSlug("Журнал"); got != "zhurnal" {
		t.Errorf("TransliterateSlug(Журнал) = %q, want zhurnal", got)
	}
	if got := TransliterateSlug("Spring Issue"); got != "spring-issue" {
		t.Errorf("TransliterateSlug = %q", got)
	}
	got := TransliterateSlug("日本語")
	if got == "" || !IsValidSlug(got) {
		t.Errorf("TransliterateSlug(日本語) = %q, want a non-empty valid slug", got)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"Spring Issue 2026", "spring-issue-2026.html"},
		{"", "emag.html"},
		{"!!!", "emag.html"},
		{"Über uns", "uber-uns.html"},
		{"- _ -", "emag.html"},
		{"Журнал 5", "zhurnal-5.html"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, "emag", ".html"); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}

	long := strings.Repeat("word ", 40)
	got := Filename(long, "emag", ".html")
	slug := strings.TrimSuffix(got, ".html")
	if len(slug) > MaxSlugLength {
		t.Errorf("len(slug) = %d, want <= %d", len(slug), MaxSlugLength)
	}
	if !IsValidSlug(slug) {
		t.Errorf("slug %q is not valid", slug)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"hello-world", true},
		{"page-123", true},
		{"123", true},
		{"", false},
		{"Hello-World", false},
		{"hello world", false},
		{"hello!world", false},
		{"-hello", false},
		{"hello-", false},
		{"hello--world", false},
	}

	for _, tt := range tests {
		if got := IsValidSlug(tt.input); got != tt.expected {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
