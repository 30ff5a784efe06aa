// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pages

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/olegiv/ocms-emag/internal/block"
)

// ErrIndexOutOfRange is returned when a page index does not address a page.
var ErrIndexOutOfRange = errors.New("page index out of range")

// DeleteResult reports the outcome of DeletePage.
type DeleteResult string

// Delete outcomes. Only DeleteOK changes the collection.
const (
	DeleteOK         DeleteResult = "deleted"
	DeleteProtected  DeleteResult = "protected"
	DeleteLastPage   DeleteResult = "last_page"
	DeleteOutOfRange DeleteResult = "out_of_range"
)

// Deleted reports whether the page was actually removed.
func (r DeleteResult) Deleted() bool {
	return r == DeleteOK
}

// State is a point-in-time copy of a collection.
type State struct {
	Pages            []Page `json:"pages"`
	CurrentPageIndex int    `json:"currentPageIndex"`
}

// Current returns the page under the cursor.
func (s State) Current() (Page, bool) {
	if s.CurrentPageIndex < 0 || s.CurrentPageIndex >= len(s.Pages) {
		return Page{}, false
	}
	return s.Pages[s.CurrentPageIndex], true
}

// Template seeds a collection. When Pages is non-empty it replaces the whole
// collection; otherwise a skeleton is built around Content.
type Template struct {
	Content *block.Node `json:"content,omitempty"`
	Pages   []Page      `json:"pages,omitempty"`
}

// Collection is the ordered page list of one document plus the index of the
// page open in the editor. All methods are safe for concurrent use and each
// operation is applied atomically.
type Collection struct {
	mu      sync.RWMutex
	pages   []Page
	current int
}

// NewCollection returns a collection holding the default three-page skeleton.
func NewCollection() *Collection {
	return &Collection{pages: DefaultPages(nil)}
}

// Len returns the number of pages.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

// CurrentPageIndex returns the cursor position.
func (c *Collection) CurrentPageIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Snapshot returns a deep copy of the collection state.
func (c *Collection) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{Pages: clonePages(c.pages), CurrentPageIndex: c.current}
}

// Pages returns a deep copy of the page list.
func (c *Collection) Pages() []Page {
	return c.Snapshot().Pages
}

// SetPages replaces the page list. The result is reindexed and the cursor is
// clamped into range. An empty list resets to the default skeleton so the
// collection never becomes empty.
func (c *Collection) SetPages(pages []Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(pages) == 0 {
		c.pages = DefaultPages(nil)
	} else {
		c.pages = Reindex(clonePages(pages))
	}
	c.clampCurrent()
}

// SetCurrentPageIndex moves the cursor. Out-of-range indices are rejected and
// leave the cursor where it was.
func (c *Collection) SetCurrentPageIndex(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.pages) {
		return fmt.Errorf("%w: %d (have %d pages)", ErrIndexOutOfRange, i, len(c.pages))
	}
	c.current = i
	return nil
}

// AddPage inserts an empty content page immediately before the back cover, or
// at the end when there is no back cover, and moves the cursor to it. It
// returns the new page's index and a copy of the page.
func (c *Collection) AddPage() (int, Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := len(c.pages)
	if back := indexOfType(c.pages, TypeBackCover); back >= 0 {
		at = back
	}

	next := make([]Page, 0, len(c.pages)+1)
	next = append(next, c.pages[:at]...)
	next = append(next, NewPage(TypeContent))
	next = append(next, c.pages[at:]...)

	c.pages = Reindex(next)
	c.current = at
	return at, c.pages[at].Clone()
}

// DeletePage removes the page at index i unless it is a cover or back cover,
// or the only remaining page. The cursor is clamped to the new last index
// when it pointed past the end.
func (c *Collection) DeletePage(i int) DeleteResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.pages) {
		return DeleteOutOfRange
	}
	if c.pages[i].Type.Protected() {
		return DeleteProtected
	}
	if len(c.pages) == 1 {
		return DeleteLastPage
	}

	next := make([]Page, 0, len(c.pages)-1)
	next = append(next, c.pages[:i]...)
	next = append(next, c.pages[i+1:]...)
	c.pages = Reindex(next)
	c.clampCurrent()
	return DeleteOK
}

// UpdateCurrentPageContent replaces the content of the page under the cursor.
func (c *Collection) UpdateCurrentPageContent(content *block.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pages) == 0 {
		return
	}
	if content == nil {
		content = block.NewPage()
	}
	c.pages[c.current].Content = content.Clone()
}

// RenamePage sets a display name on the page at index i. Names are derived
// again on the next structural change.
func (c *Collection) RenamePage(i int, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.pages) {
		return fmt.Errorf("%w: %d (have %d pages)", ErrIndexOutOfRange, i, len(c.pages))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("page name must not be empty")
	}
	c.pages[i].Name = name
	return nil
}

// InitializeFromTemplate replaces the collection from a template. A template
// with pages replaces the whole list and moves the cursor to the first page;
// a template without pages builds the skeleton around its content and opens
// the content page.
func (c *Collection) InitializeFromTemplate(t Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(t.Pages) > 0 {
		c.pages = Reindex(clonePages(t.Pages))
		c.current = 0
		return
	}
	c.pages = DefaultPages(t.Content)
	c.current = 1
}

// ResetPages restores the empty three-page skeleton.
func (c *Collection) ResetPages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = DefaultPages(nil)
	c.current = 0
}

func (c *Collection) clampCurrent() {
	if c.current >= len(c.pages) {
		c.current = len(c.pages) - 1
	}
	if c.current < 0 {
		c.current = 0
	}
}

func indexOfType(pages []Page, t PageType) int {
	for i, p := range pages {
		if p.Type == t {
			return i
		}
	}
	return -1
}
