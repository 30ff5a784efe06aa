// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/ocms-emag/internal/editor"
)

// TemplateSummary is a template without its documents.
type TemplateSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject,omitempty"`
	PageCount int    `json:"page_count"`
}

// ListTemplates handles GET /api/v1/templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.templates.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, "list templates")
		return
	}
	out := make([]TemplateSummary, len(list))
	for i, t := range list {
		out[i] = TemplateSummary{ID: t.ID, Name: t.Name, Subject: t.Subject, PageCount: pageCount(t)}
	}
	WriteSuccess(w, out)
}

// GetTemplate handles GET /api/v1/templates/{id}.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	t, err := h.templates.LoadTemplate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err, "load template")
		return
	}
	WriteSuccess(w, t)
}

// pageCount is the number of pages a template produces.
func pageCount(t editor.Template) int {
	if len(t.Pages) > 0 {
		return len(t.Pages)
	}
	return 3
}
