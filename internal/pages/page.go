// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pages holds the ordered page collection of an eMag document and the
// rules that keep it consistent: cover and back cover placement, protected
// deletion, derived names and orders.
package pages

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-emag/internal/block"
)

// PageType classifies a page within the document.
type PageType string

// Page types.
const (
	TypeCover     PageType = "cover"
	TypeContent   PageType = "content"
	TypeBackCover PageType = "back_cover"
)

// Valid reports whether t is a known page type.
func (t PageType) Valid() bool {
	switch t {
	case TypeCover, TypeContent, TypeBackCover:
		return true
	}
	return false
}

// Protected reports whether pages of this type may never be deleted.
func (t PageType) Protected() bool {
	return t == TypeCover || t == TypeBackCover
}

// Page is one page of an eMag.
type Page struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Content *block.Node `json:"content"`
	Order   int         `json:"order"`
	Type    PageType    `json:"type"`
}

// Clone returns a deep copy of the page.
func (p Page) Clone() Page {
	p.Content = p.Content.Clone()
	return p
}

// NewPage creates an empty page of the given type with a fresh ID.
func NewPage(t PageType) Page {
	return Page{
		ID:      uuid.NewString(),
		Content: block.NewPage(),
		Type:    t,
	}
}

// DefaultPages returns the three-page skeleton of a new document. The content
// page is seeded with content when it is non-nil.
func DefaultPages(content *block.Node) []Page {
	middle := NewPage(TypeContent)
	if content != nil {
		middle.Content = content.Clone()
	}
	return Reindex([]Page{NewPage(TypeCover), middle, NewPage(TypeBackCover)})
}

// Reindex derives order, type and name from each page's position. Pages
// without a type get cover at position 0, back cover at the last position
// (only when there is more than one page) and content otherwise. Missing IDs
// and contents are filled in. The input slice is not modified and applying
// Reindex to its own output returns an equal slice.
func Reindex(pages []Page) []Page {
	out := make([]Page, len(pages))
	contentOrdinal := 0
	for i, p := range pages {
		if !p.Type.Valid() {
			p.Type = inferType(i, len(pages))
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Content == nil {
			p.Content = block.NewPage()
		}
		p.Order = i
		if p.Type == TypeContent {
			contentOrdinal++
		}
		p.Name = pageName(p.Type, contentOrdinal)
		out[i] = p
	}
	return out
}

func inferType(index, total int) PageType {
	switch {
	case index == 0:
		return TypeCover
	case total > 1 && index == total-1:
		return TypeBackCover
	default:
		return TypeContent
	}
}

func pageName(t PageType, contentOrdinal int) string {
	switch t {
	case TypeCover:
		return "Cover"
	case TypeBackCover:
		return "Back Cover"
	default:
		return fmt.Sprintf("Page %d", contentOrdinal)
	}
}

// clonePages deep-copies a page slice.
func clonePages(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}
