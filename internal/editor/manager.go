// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package editor owns the open editing sessions. Each session holds the page
// collection of one content version and is synchronised with the eMag store
// through the emagsync adapter.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/cache"
	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/export"
	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/pages"
)

// ErrSessionNotFound is returned for operations on a content version that
// has no open session.
var ErrSessionNotFound = errors.New("editor session not found")

// Manager is the registry of open sessions.
type Manager struct {
	adapter   *emagsync.Adapter
	templates TemplateLoader
	generator *export.Generator
	exports   *cache.ExportCache
	logger    *slog.Logger
	now       func() time.Time

	// opening collapses concurrent opens of one content version so the
	// store sees a single load-or-create.
	opening singleflight.Group

	mu       sync.Mutex
	sessions map[int64]*Session
}

// Options wires a Manager. Templates and Exports are optional.
type Options struct {
	Adapter   *emagsync.Adapter
	Templates TemplateLoader
	Generator *export.Generator
	Exports   *cache.ExportCache
	Logger    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		adapter:   opts.Adapter,
		templates: opts.Templates,
		generator: opts.Generator,
		exports:   opts.Exports,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[int64]*Session),
	}
}

// OpenParams selects what an editor session loads.
type OpenParams struct {
	ContentID        int64
	ContentVersionID int64
	TemplateID       int64
	Subject          string
}

// OpenResult reports how a session was opened.
type OpenResult struct {
	Session *Session
	// Reused is true when the session was already open.
	Reused bool
	Load   emagsync.LoadResult
	// Warning carries a non-fatal load problem such as an unreadable payload.
	Warning string
}

// Open returns the session of a content version, creating it when needed.
// A new session starts from the template (or the empty skeleton) and is then
// replaced by the stored eMag when one exists. An unreadable stored payload
// keeps the in-memory pages and is reported as a warning; other store errors
// fail the open.
func (m *Manager) Open(ctx context.Context, p OpenParams) (OpenResult, error) {
	if p.ContentVersionID <= 0 {
		return OpenResult{}, fmt.Errorf("content version id must be positive, got %d", p.ContentVersionID)
	}

	m.mu.Lock()
	if s, ok := m.sessions[p.ContentVersionID]; ok {
		m.mu.Unlock()
		s.touch(m.now())
		return OpenResult{Session: s, Reused: true}, nil
	}
	m.mu.Unlock()

	v, err, _ := m.opening.Do(strconv.FormatInt(p.ContentVersionID, 10), func() (any, error) {
		// Shared by every waiting caller; one disconnecting must not fail the rest.
		return m.open(context.WithoutCancel(ctx), p)
	})
	if err != nil {
		return OpenResult{}, err
	}
	return v.(OpenResult), nil
}

func (m *Manager) open(ctx context.Context, p OpenParams) (OpenResult, error) {
	m.mu.Lock()
	if s, ok := m.sessions[p.ContentVersionID]; ok {
		m.mu.Unlock()
		s.touch(m.now())
		return OpenResult{Session: s, Reused: true}, nil
	}
	m.mu.Unlock()

	s := &Session{
		ContentVersionID: p.ContentVersionID,
		ContentID:        p.ContentID,
		Subject:          p.Subject,
		Pages:            pages.NewCollection(),
	}

	if p.TemplateID > 0 {
		if m.templates == nil {
			return OpenResult{}, fmt.Errorf("%w: %d", ErrTemplateNotFound, p.TemplateID)
		}
		tpl, err := m.templates.LoadTemplate(ctx, p.TemplateID)
		if err != nil {
			return OpenResult{}, err
		}
		s.Pages.InitializeFromTemplate(tpl.PageTemplate())
		if s.Subject == "" {
			s.Subject = tpl.Subject
		}
	}

	res := OpenResult{Session: s}
	load, err := m.adapter.LoadOrCreate(ctx, p.ContentVersionID, s.Pages)
	switch {
	case errors.Is(err, emagsync.ErrMalformedPayload):
		res.Warning = "The stored eMag could not be read; continuing with the current pages."
		s.loadWarning = res.Warning
	case err != nil:
		return OpenResult{}, err
	}
	res.Load = load
	s.EMagID = load.EMagID
	s.touch(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[p.ContentVersionID] = s
	m.logger.Info("editor session opened",
		"content_version", p.ContentVersionID,
		"emag_id", s.EMagID,
		"created", load.Created,
		"pages", s.Pages.Len(),
	)
	return res, nil
}

// Get returns the open session of a content version and marks it active.
func (m *Manager) Get(cv int64) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[cv]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: content version %d", ErrSessionNotFound, cv)
	}
	s.touch(m.now())
	return s, nil
}

// Close discards the session of a content version. Unsaved changes are lost.
func (m *Manager) Close(ctx context.Context, cv int64) error {
	m.mu.Lock()
	_, ok := m.sessions[cv]
	delete(m.sessions, cv)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: content version %d", ErrSessionNotFound, cv)
	}
	m.invalidate(ctx, cv)
	m.logger.Info("editor session closed", "content_version", cv)
	return nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List returns every open session, ordered by content version.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	out := make([]SessionInfo, len(all))
	for i, s := range all {
		out[i] = s.Info()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentVersionID < out[j].ContentVersionID })
	return out
}

// Mutate applies fn to the session's collection and drops cached exports of
// the content version. The returned state is taken after fn ran.
func (m *Manager) Mutate(ctx context.Context, cv int64, fn func(*pages.Collection) error) (pages.State, error) {
	s, err := m.Get(cv)
	if err != nil {
		return pages.State{}, err
	}
	if err := fn(s.Pages); err != nil {
		return s.Pages.Snapshot(), err
	}
	m.invalidate(ctx, cv)
	return s.Pages.Snapshot(), nil
}

// Save writes the session's pages to the store. Saves of one session run one
// at a time; the store sees the latest snapshot last.
func (m *Manager) Save(ctx context.Context, cv int64) (emagsync.SaveReport, error) {
	s, err := m.Get(cv)
	if err != nil {
		return emagsync.SaveReport{}, err
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	pp := s.Pages.Pages()
	report, err := m.adapter.Save(ctx, s.EMagID, pp)
	if err != nil {
		return report, err
	}
	s.markSaved(pp)
	s.setSyncState(report.Stale(), report.RemoveErr != nil, m.now())
	return report, nil
}

// ExportParams customise an export.
type ExportParams struct {
	// Title defaults to the session subject.
	Title string
	// Content overlays the live editor buffer onto the current page.
	Content   *block.Node
	MergeTags map[string]string
}

// ExportResult is a generated flipbook.
type ExportResult struct {
	HTML     string
	Filename string
	Cached   bool
}

// Export generates the flipbook of a session. Results are cached per content
// version until the next mutation.
func (m *Manager) Export(ctx context.Context, cv int64, p ExportParams) (ExportResult, error) {
	s, err := m.Get(cv)
	if err != nil {
		return ExportResult{}, err
	}
	state := s.Pages.Snapshot()
	title := p.Title
	if title == "" {
		title = s.Subject
	}
	in := export.Input{
		Pages:          state.Pages,
		CurrentIndex:   state.CurrentPageIndex,
		CurrentContent: p.Content,
		Title:          title,
		MergeTags:      p.MergeTags,
	}
	res := ExportResult{Filename: export.Filename(title)}

	key, keyErr := export.Key(in)
	if keyErr == nil && m.exports != nil {
		if doc, ok := m.exports.Get(ctx, cv, key); ok {
			res.HTML, res.Cached = doc, true
			return res, nil
		}
	}

	doc, err := m.generator.Generate(ctx, in)
	if err != nil {
		m.logger.Warn("export failed", "category", model.EventCategoryExport, "content_version", cv, "error", err)
		return ExportResult{}, err
	}
	res.HTML = doc

	if keyErr == nil && m.exports != nil {
		if err := m.exports.Put(ctx, cv, key, doc); err != nil {
			m.logger.Warn("caching export failed", "category", model.EventCategoryCache, "content_version", cv, "error", err)
		}
	}
	m.logger.Info("eMag exported", "content_version", cv, "pages", len(state.Pages), "bytes", len(doc))
	return res, nil
}

// SweepIdle closes sessions idle for longer than maxIdle. Sessions with page
// records still out of step are kept so the resync job can finish them.
func (m *Manager) SweepIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var closed []int64
	for cv, s := range m.sessions {
		if s.LastActive().Before(cutoff) && !s.hasPendingSync() {
			delete(m.sessions, cv)
			closed = append(closed, cv)
		}
	}
	m.mu.Unlock()

	for _, cv := range closed {
		m.invalidate(ctx, cv)
	}
	if len(closed) > 0 {
		m.logger.Info("idle editor sessions closed", "count", len(closed))
	}
	return len(closed)
}

// ResyncStale retries page records that failed to save. It returns the
// number of sessions that are fully in step afterwards.
func (m *Manager) ResyncStale(ctx context.Context) int {
	m.mu.Lock()
	var pending []*Session
	for _, s := range m.sessions {
		if s.hasPendingSync() {
			pending = append(pending, s)
		}
	}
	m.mu.Unlock()

	repaired := 0
	for _, s := range pending {
		if ctx.Err() != nil {
			break
		}
		if m.resync(ctx, s) {
			repaired++
		}
	}
	return repaired
}

func (m *Manager) resync(ctx context.Context, s *Session) bool {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	stale := s.stale
	trailing := s.trailingPending
	pp := s.savedPages
	s.mu.Unlock()

	// Records follow the last save. Unsaved edits stay in memory.
	var report emagsync.SaveReport
	if trailing {
		report = m.adapter.ReconcileAll(ctx, s.EMagID, pp)
	} else {
		report = m.adapter.ResyncPages(ctx, s.EMagID, pp, stale)
	}

	s.setSyncState(report.Stale(), trailing && report.RemoveErr != nil, time.Time{})
	if report.OK() {
		m.logger.Info("page records resynced", "content_version", s.ContentVersionID, "emag_id", s.EMagID)
		return true
	}
	return false
}

func (m *Manager) invalidate(ctx context.Context, cv int64) {
	if m.exports == nil {
		return
	}
	if err := m.exports.Invalidate(ctx, cv); err != nil {
		m.logger.Warn("invalidating export cache failed", "category", model.EventCategoryCache, "content_version", cv, "error", err)
	}
}
