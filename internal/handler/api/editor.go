// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/editor"
	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/handler"
	"github.com/olegiv/ocms-emag/internal/navigator"
	"github.com/olegiv/ocms-emag/internal/pages"
)

// StateResponse is the collection state returned by every mutation.
type StateResponse struct {
	State pages.State     `json:"state"`
	Tabs  []navigator.Tab `json:"tabs"`
}

// SessionResponse describes an open session.
type SessionResponse struct {
	Session editor.SessionInfo `json:"session"`
	StateResponse
}

// OpenResponse is returned when a session is opened.
type OpenResponse struct {
	SessionResponse
	Reused  bool   `json:"reused"`
	Created bool   `json:"created"`
	Loaded  bool   `json:"loaded"`
	Warning string `json:"warning,omitempty"`
}

// DeleteResponse reports the outcome of a page delete request. Refusals
// are outcomes, not errors.
type DeleteResponse struct {
	Deleted bool             `json:"deleted"`
	Result  string           `json:"result"`
	Intent  navigator.Intent `json:"intent"`
	StateResponse
}

// ResultConfirmationRequired is reported when a deletable page was requested
// without confirm=true.
const ResultConfirmationRequired = "confirmation_required"

func stateResponse(st pages.State) StateResponse {
	return StateResponse{State: st, Tabs: navigator.Tabs(st, navigator.Options{})}
}

func sessionResponse(s *editor.Session) SessionResponse {
	return SessionResponse{Session: s.Info(), StateResponse: stateResponse(s.Pages.Snapshot())}
}

// contentVersion parses the {cv} URL parameter. On failure a 400 is written.
func contentVersion(w http.ResponseWriter, r *http.Request) (int64, bool) {
	cv, err := handler.ParseIDParam(r, "cv")
	if err != nil {
		WriteBadRequest(w, "Invalid content version")
		return 0, false
	}
	return cv, true
}

func pageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteBadRequest(w, "Invalid page index")
		return 0, false
	}
	return i, true
}

// optionalID parses an optional positive integer query parameter.
func optionalID(r *http.Request, name string, errs map[string]string) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		errs[name] = "Must be a positive integer"
		return 0
	}
	return v
}

// OpenSession handles POST /api/v1/editor/sessions.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	errs := map[string]string{}
	p := editor.OpenParams{
		ContentID:        optionalID(r, "content_id", errs),
		ContentVersionID: optionalID(r, "content_version", errs),
		TemplateID:       optionalID(r, "template", errs),
		Subject:          strings.TrimSpace(r.URL.Query().Get("subject")),
	}
	if p.ContentVersionID == 0 && errs["content_version"] == "" {
		errs["content_version"] = "Content version is required"
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	res, err := h.sessions.Open(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, r, err, "open editor session")
		return
	}

	resp := OpenResponse{
		SessionResponse: sessionResponse(res.Session),
		Reused:          res.Reused,
		Created:         res.Load.Created,
		Loaded:          res.Load.Loaded,
		Warning:         res.Warning,
	}
	if res.Reused {
		WriteSuccess(w, resp)
		return
	}
	WriteCreated(w, resp)
}

// ListSessions handles GET /api/v1/editor/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.sessions.List())
}

// GetSession handles GET /api/v1/editor/{cv}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	cv, ok := contentVersion(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Get(cv)
	if err != nil {
		h.writeDomainError(w, r, err, "load editor session")
		return
	}
	WriteSuccess(w, sessionResponse(s))
}

// CloseSession handles DELETE /api/v1/editor/{cv}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	cv, ok := contentVersion(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Close(r.Context(), cv); err != nil {
		h.writeDomainError(w, r, err, "close editor session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutate runs fn on the session's collection and writes the resulting state.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, action string, fn func(*pages.Collection) error) {
	cv, ok := contentVersion(w, r)
	if !ok {
		return
	}
	st, err := h.sessions.Mutate(r.Context(), cv, fn)
	if err != nil {
		h.writeDomainError(w, r, err, action)
		return
	}
	WriteSuccess(w, stateResponse(st))
}

// SetPagesRequest replaces the whole page list.
type SetPagesRequest struct {
	Pages []pages.Page `json:"pages"`
}

// SetPages handles PUT /api/v1/editor/{cv}/pages.
func (h *Handler) SetPages(w http.ResponseWriter, r *http.Request) {
	var req SetPagesRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	errs := map[string]string{}
	for i, p := range req.Pages {
		if p.Type != "" && !p.Type.Valid() {
			errs[fmt.Sprintf("pages[%d].type", i)] = "Unknown page type " + strconv.Quote(string(p.Type))
		}
		if p.Content != nil {
			if err := block.Validate(p.Content); err != nil {
				errs[fmt.Sprintf("pages[%d].content", i)] = err.Error()
			}
		}
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	h.mutate(w, r, "set pages", func(c *pages.Collection) error {
		c.SetPages(req.Pages)
		return nil
	})
}

// AddPage handles POST /api/v1/editor/{cv}/pages.
func (h *Handler) AddPage(w http.ResponseWriter, r *http.Request) {
	cv, ok := contentVersion(w, r)
	if !ok {
		return
	}
	var (
		index int
		page  pages.Page
	)
	st, err := h.sessions.Mutate(r.Context(), cv, func(c *pages.Collection) error {
		index, page = c.AddPage()
		return nil
	})
	if err != nil {
		h.writeDomainError(w, r, err, "add page")
		return
	}
	WriteCreated(w, struct {
		Index int        `json:"index"`
		Page  pages.Page `json:"page"`
		StateResponse
	}{index, page, stateResponse(st)})
}

// DeletePage handles DELETE /api/v1/editor/{cv}/pages/{index}. The page is
// only removed with confirm=true and when the navigator allows it.
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	cv, ok := contentVersion(w, r)
	if !ok {
		return
	}
	index, ok := pageIndex(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Get(cv)
	if err != nil {
		h.writeDomainError(w, r, err, "delete page")
		return
	}

	intent := navigator.DeleteIntent(s.Pages.Snapshot(), index)
	switch {
	case intent.Kind == navigator.IntentInvalid:
		WriteError(w, http.StatusUnprocessableEntity, "validation_error", intent.Message,
			map[string]string{"index": pages.ErrIndexOutOfRange.Error()})
		return
	case !intent.CanDelete():
		result := pages.DeleteProtected
		if intent.Kind == navigator.IntentWarnLastPage {
			result = pages.DeleteLastPage
		}
		WriteSuccess(w, DeleteResponse{Result: string(result), Intent: intent, StateResponse: stateResponse(s.Pages.Snapshot())})
		return
	case r.URL.Query().Get("confirm") != "true":
		WriteSuccess(w, DeleteResponse{Result: ResultConfirmationRequired, Intent: intent, StateResponse: stateResponse(s.Pages.Snapshot())})
		return
	}

	var result pages.DeleteResult
	st, err := h.sessions.Mutate(r.Context(), cv, func(c *pages.Collection) error {
		result = c.DeletePage(index)
		return nil
	})
	if err != nil {
		h.writeDomainError(w, r, err, "delete page")
		return
	}
	WriteSuccess(w, DeleteResponse{Deleted: result.Deleted(), Result: string(result), Intent: intent, StateResponse: stateResponse(st)})
}

// RenamePageRequest sets a page's display name.
type RenamePageRequest struct {
	Name string `json:"name"`
}

// RenamePage handles PATCH /api/v1/editor/{cv}/pages/{index}.
func (h *Handler) RenamePage(w http.ResponseWriter, r *http.Request) {
	index, ok := pageIndex(w, r)
	if !ok {
		return
	}
	var req RenamePageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		WriteValidationError(w, map[string]string{"name": "Name is required"})
		return
	case len(name) > 120:
		WriteValidationError(w, map[string]string{"name": "Name must be at most 120 characters"})
		return
	}
	h.mutate(w, r, "rename page", func(c *pages.Collection) error {
		return c.RenamePage(index, name)
	})
}

// SetCurrentRequest moves the cursor.
type SetCurrentRequest struct {
	Index *int `json:"index"`
}

// SetCurrentPage handles PUT /api/v1/editor/{cv}/current.
func (h *Handler) SetCurrentPage(w http.ResponseWriter, r *http.Request) {
	var req SetCurrentRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Index == nil {
		WriteValidationError(w, map[string]string{"index": "Index is required"})
		return
	}
	h.mutate(w, r, "set current page", func(c *pages.Collection) error {
		return c.SetCurrentPageIndex(*req.Index)
	})
}

// ContentRequest carries a block document.
type ContentRequest struct {
	Content json.RawMessage `json:"content"`
}

// UpdateCurrentContent handles PUT /api/v1/editor/{cv}/current/content.
func (h *Handler) UpdateCurrentContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if len(req.Content) == 0 || string(req.Content) == "null" {
		WriteValidationError(w, map[string]string{"content": "Content is required"})
		return
	}
	content, err := block.Parse(req.Content)
	if err != nil {
		WriteValidationError(w, map[string]string{"content": err.Error()})
		return
	}
	h.mutate(w, r, "update page content", func(c *pages.Collection) error {
		c.UpdateCurrentPageContent(content)
		return nil
	})
}

// TemplateRequest initialises the collection from a stored template or an
// inline one.
type TemplateRequest struct {
	TemplateID int64           `json:"template_id"`
	Content    json.RawMessage `json:"content"`
	Pages      []pages.Page    `json:"pages"`
}

// ApplyTemplate handles POST /api/v1/editor/{cv}/template.
func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	var tpl pages.Template
	switch {
	case req.TemplateID > 0:
		t, err := h.templates.LoadTemplate(r.Context(), req.TemplateID)
		if err != nil {
			h.writeDomainError(w, r, err, "load template")
			return
		}
		tpl = t.PageTemplate()
	case len(req.Pages) > 0 || len(req.Content) > 0:
		tpl.Pages = req.Pages
		if len(req.Content) > 0 && string(req.Content) != "null" {
			content, err := block.Parse(req.Content)
			if err != nil {
				WriteValidationError(w, map[string]string{"content": err.Error()})
				return
			}
			tpl.Content = content
		}
		for i, p := range tpl.Pages {
			if p.Content == nil {
				continue
			}
			if err := block.Validate(p.Content); err != nil {
				WriteValidationError(w, map[string]string{fmt.Sprintf("pages[%d].content", i): err.Error()})
				return
			}
		}
	default:
		WriteValidationError(w, map[string]string{"template_id": "A template id, content or pages are required"})
		return
	}

	h.mutate(w, r, "apply template", func(c *pages.Collection) error {
		c.InitializeFromTemplate(tpl)
		return nil
	})
}

// ResetPages handles POST /api/v1/editor/{cv}/reset.
func (h *Handler) ResetPages(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "reset pages", func(c *pages.Collection) error {
		c.ResetPages()
		return nil
	})
}

// Save handles POST /api/v1/editor/{cv}/save. Page records that failed to
// write are listed in the report; the save itself still succeeds.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	cv, ok := contentVersion(w, r)
	if !ok {
		return
	}
	report, err := h.sessions.Save(r.Context(), cv)
	if err != nil {
		h.writeDomainError(w, r, err, "save eMag")
		return
	}

	resp := struct {
		Report emagsync.SaveReport `json:"report"`
		OK     bool                `json:"ok"`
		Stale  []int               `json:"stale,omitempty"`
	}{report, report.OK(), report.Stale()}
	if report.RemoveErr != nil {
		h.logger.Warn("trailing page records not removed", "content_version", cv, "error", report.RemoveErr)
	}
	WriteSuccess(w, resp)
}

// ExportRequest customises an export. All fields are optional.
type ExportRequest struct {
	Title     string            `json:"title"`
	Content   json.RawMessage   `json:"content"`
	MergeTags map[string]string `json:"merge_tags"`
}

// Export handles POST /api/v1/editor/{cv}/export and returns the flipbook
// document. ?download=1 asks the browser to save it.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	cv, ok := contentVersion(w, r)
	if !ok {
		return
	}
	var req ExportRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	p := editor.ExportParams{Title: strings.TrimSpace(req.Title), MergeTags: req.MergeTags}
	if len(req.Content) > 0 && string(req.Content) != "null" {
		content, err := block.Parse(req.Content)
		if err != nil {
			WriteValidationError(w, map[string]string{"content": err.Error()})
			return
		}
		p.Content = content
	}

	res, err := h.sessions.Export(r.Context(), cv, p)
	if err != nil {
		h.writeDomainError(w, r, err, "export eMag")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.Cached {
		w.Header().Set("X-Emag-Cache", "hit")
	} else {
		w.Header().Set("X-Emag-Cache", "miss")
	}
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.HTML))
}
