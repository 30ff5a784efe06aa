// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package editor

import (
	"slices"
	"sync"
	"time"

	"github.com/olegiv/ocms-emag/internal/pages"
)

// Session is one open editor for a content version. The page collection is
// owned by the session; everything else is bookkeeping for the manager.
type Session struct {
	ContentVersionID int64
	ContentID        int64
	EMagID           int64
	Subject          string
	Pages            *pages.Collection

	saveMu sync.Mutex

	mu              sync.Mutex
	lastActive      time.Time
	lastSaved       time.Time
	savedPages      []pages.Page
	stale           []int
	trailingPending bool
	loadWarning     string
}

// SessionInfo is a read-only view of a session.
type SessionInfo struct {
	ContentVersionID int64     `json:"content_version"`
	ContentID        int64     `json:"content_id,omitempty"`
	EMagID           int64     `json:"emag_id"`
	Subject          string    `json:"subject,omitempty"`
	PageCount        int       `json:"page_count"`
	CurrentPageIndex int       `json:"current_page_index"`
	LastActive       time.Time `json:"last_active"`
	LastSaved        time.Time `json:"last_saved,omitzero"`
	StalePages       []int     `json:"stale_pages,omitempty"`
	Warning          string    `json:"warning,omitempty"`
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// StalePages returns the 1-based page numbers whose records are out of step.
func (s *Session) StalePages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.stale)
}

func (s *Session) hasPendingSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stale) > 0 || s.trailingPending
}

// markSaved records the pages written by a save. Background resyncs only
// ever reconcile these, never the live collection.
func (s *Session) markSaved(pp []pages.Page) {
	s.mu.Lock()
	s.savedPages = pp
	s.mu.Unlock()
}

func (s *Session) setSyncState(stale []int, trailingPending bool, saved time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = stale
	s.trailingPending = trailingPending
	if !saved.IsZero() {
		s.lastSaved = saved
	}
}

// Info returns a snapshot of the session metadata.
func (s *Session) Info() SessionInfo {
	st := s.Pages.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ContentVersionID: s.ContentVersionID,
		ContentID:        s.ContentID,
		EMagID:           s.EMagID,
		Subject:          s.Subject,
		PageCount:        len(st.Pages),
		CurrentPageIndex: st.CurrentPageIndex,
		LastActive:       s.lastActive,
		LastSaved:        s.lastSaved,
		StalePages:       slices.Clone(s.stale),
		Warning:          s.loadWarning,
	}
}
