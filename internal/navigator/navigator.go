// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package navigator builds the page tab strip shown above the editor.
package navigator

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/olegiv/ocms-emag/internal/pages"
)

// Tab is one entry of the page strip.
type Tab struct {
	Index     int            `json:"index"`
	Name      string         `json:"name"`
	Type      pages.PageType `json:"type"`
	Active    bool           `json:"active"`
	Deletable bool           `json:"deletable"`
	Hard      bool           `json:"hard"`
}

// Options tune the strip.
type Options struct {
	// AlwaysShowDelete shows a delete control on every tab. Protected pages
	// are still refused by DeleteIntent.
	AlwaysShowDelete bool
}

// Tabs derives the tab strip from a collection snapshot.
func Tabs(state pages.State, opts Options) []Tab {
	tabs := make([]Tab, len(state.Pages))
	single := len(state.Pages) <= 1
	for i, p := range state.Pages {
		tabs[i] = Tab{
			Index:     i,
			Name:      p.Name,
			Type:      p.Type,
			Active:    i == state.CurrentPageIndex,
			Deletable: opts.AlwaysShowDelete || (!p.Type.Protected() && !single),
			Hard:      p.Type.Protected(),
		}
	}
	return tabs
}

// IntentKind classifies a delete request before it reaches the collection.
type IntentKind string

const (
	IntentConfirm       IntentKind = "confirm"
	IntentWarnLastPage  IntentKind = "warn_last_page"
	IntentWarnProtected IntentKind = "warn_protected"
	IntentInvalid       IntentKind = "invalid"
)

// Intent is what the UI should do when the user asks to delete a page.
type Intent struct {
	Kind    IntentKind `json:"kind"`
	Index   int        `json:"index"`
	Message string     `json:"message"`
}

// CanDelete reports whether the collection may go ahead after confirmation.
func (i Intent) CanDelete() bool {
	return i.Kind == IntentConfirm
}

// DeleteIntent decides how a delete request for page i is handled.
func DeleteIntent(state pages.State, i int) Intent {
	if i < 0 || i >= len(state.Pages) {
		return Intent{Kind: IntentInvalid, Index: i, Message: fmt.Sprintf("Page %d does not exist.", i+1)}
	}
	if len(state.Pages) <= 1 {
		return Intent{Kind: IntentWarnLastPage, Index: i, Message: "Cannot delete the last page."}
	}
	p := state.Pages[i]
	if p.Type.Protected() {
		return Intent{Kind: IntentWarnProtected, Index: i, Message: fmt.Sprintf("%s cannot be deleted.", p.Name)}
	}
	return Intent{Kind: IntentConfirm, Index: i, Message: fmt.Sprintf("Delete %s? This cannot be undone.", p.Name)}
}

//go:embed templates/*.html
var templatesFS embed.FS

var tabsTmpl = template.Must(template.ParseFS(templatesFS, "templates/tabs.html"))

type viewData struct {
	Tabs      []Tab
	ContentID int64
}

// Render writes the tab strip fragment for content version cv.
func Render(w io.Writer, cv int64, tabs []Tab) error {
	return tabsTmpl.ExecuteTemplate(w, "tabs.html", viewData{Tabs: tabs, ContentID: cv})
}
