// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-emag/internal/editor"
	"github.com/olegiv/ocms-emag/internal/navigator"
)

// SessionLookup returns the open session of a content version.
type SessionLookup interface {
	Get(cv int64) (*editor.Session, error)
}

// NavigatorHandler serves the page strip as an HTML fragment.
type NavigatorHandler struct {
	sessions SessionLookup
	logger   *slog.Logger
}

// NewNavigatorHandler creates a NavigatorHandler.
func NewNavigatorHandler(sessions SessionLookup, logger *slog.Logger) *NavigatorHandler {
	return &NavigatorHandler{sessions: sessions, logger: logger}
}

// Tabs handles GET /editor/{cv}/navigator. With ?embedded=1 every tab shows
// a delete control, matching the dashboard variant.
func (h *NavigatorHandler) Tabs(w http.ResponseWriter, r *http.Request) {
	cv, err := ParseIDParam(r, "cv")
	if err != nil {
		http.Error(w, "Invalid content version", http.StatusBadRequest)
		return
	}

	s, err := h.sessions.Get(cv)
	if errors.Is(err, editor.ErrSessionNotFound) {
		http.Error(w, "Editor session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("loading editor session", "content_version", cv, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	opts := navigator.Options{AlwaysShowDelete: r.URL.Query().Get("embedded") == "1"}
	tabs := navigator.Tabs(s.Pages.Snapshot(), opts)

	var buf bytes.Buffer
	if err := navigator.Render(&buf, cv, tabs); err != nil {
		h.logger.Error("rendering navigator", "content_version", cv, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// DeleteIntent handles GET /editor/{cv}/navigator/intent/{index} and reports
// what the UI should do before deleting that page.
func (h *NavigatorHandler) DeleteIntent(w http.ResponseWriter, r *http.Request) {
	cv, err := ParseIDParam(r, "cv")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid content version"})
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page index"})
		return
	}
	s, err := h.sessions.Get(cv)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "editor session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]navigator.Intent{"data": navigator.DeleteIntent(s.Pages.Snapshot(), index)})
}

// ParseIDParam parses a positive int64 chi URL parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
