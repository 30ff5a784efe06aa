// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides slug helpers used for export file names.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength caps generated slugs; longer input is cut on a hyphen.
const MaxSlugLength = 80

var (
	slugRegex       = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	whitespace      = regexp.MustCompile(`[\s_]+`)
)

// Slugify converts a string to a URL-friendly slug. Accents are stripped;
// characters outside Latin script are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return clean(result)
}

// TransliterateSlug is Slugify with an ASCII transliteration pass first, so
// "Журнал" becomes "zhurnal" instead of an empty slug.
func TransliterateSlug(s string) string {
	return Slugify(unidecode.Unidecode(s))
}

// Filename builds a download name from a title: a transliterated slug plus
// ext, or fallback+ext when no valid slug remains.
func Filename(title, fallback, ext string) string {
	slug := TransliterateSlug(title)
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
		if i := strings.LastIndexByte(slug, '-'); i > MaxSlugLength/2 {
			slug = slug[:i]
		}
	}
	if !IsValidSlug(slug) {
		slug = fallback
	}
	return slug + ext
}

func clean(s string) string {
	s = strings.ToLower(s)
	s = whitespace.ReplaceAllString(s, "-")
	s = slugRegex.ReplaceAllString(s, "")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	return !strings.Contains(s, "--")
}
