// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/handler"
	"github.com/olegiv/ocms-emag/internal/pages"
)

// CreateEMagRequest is the body of POST /api/v1/emags.
type CreateEMagRequest struct {
	ContentVersionID int64  `json:"content_version"`
	HTMLData         string `json:"htmlData"`
}

// UpdateEMagRequest is the body of PUT /api/v1/emags/{id}.
type UpdateEMagRequest struct {
	HTMLData string `json:"htmlData"`
}

// validateHTMLData checks that a payload decodes as an eMag snapshot.
func validateHTMLData(data string, errs map[string]string) {
	if data == "" {
		errs["htmlData"] = "htmlData is required"
		return
	}
	if _, err := emagsync.DecodeSnapshot(data); err != nil {
		errs["htmlData"] = err.Error()
	}
}

func validatePageRecord(rec emagsync.PageRecord, errs map[string]string) {
	if rec.PageNumber < 1 {
		errs["page_number"] = "Must be at least 1"
	}
	if !pages.PageType(rec.PageType).Valid() {
		errs["page_type"] = "Unknown page type " + strconv.Quote(rec.PageType)
	}
}

// ListEMags handles GET /api/v1/emags?content_version=.
func (h *Handler) ListEMags(w http.ResponseWriter, r *http.Request) {
	cv, err := strconv.ParseInt(r.URL.Query().Get("content_version"), 10, 64)
	if err != nil || cv <= 0 {
		WriteValidationError(w, map[string]string{"content_version": "Must be a positive integer"})
		return
	}
	list, err := h.emags.FindEMags(r.Context(), cv)
	if err != nil {
		h.writeDomainError(w, r, err, "list eMags")
		return
	}
	if list == nil {
		list = []emagsync.EMag{}
	}
	WriteSuccess(w, list)
}

// CreateEMag handles POST /api/v1/emags.
func (h *Handler) CreateEMag(w http.ResponseWriter, r *http.Request) {
	var req CreateEMagRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	errs := map[string]string{}
	if req.ContentVersionID <= 0 {
		errs["content_version"] = "Must be a positive integer"
	}
	validateHTMLData(req.HTMLData, errs)
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	e, err := h.emags.CreateEMag(r.Context(), req.ContentVersionID, req.HTMLData)
	if err != nil {
		h.writeDomainError(w, r, err, "create eMag")
		return
	}
	WriteCreated(w, e)
}

// GetEMag handles GET /api/v1/emags/{id}.
func (h *Handler) GetEMag(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	e, err := h.emags.GetEMag(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err, "load eMag")
		return
	}
	WriteSuccess(w, e)
}

// UpdateEMag handles PUT /api/v1/emags/{id}.
func (h *Handler) UpdateEMag(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	var req UpdateEMagRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	errs := map[string]string{}
	validateHTMLData(req.HTMLData, errs)
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}
	if err := h.emags.UpdateEMag(r.Context(), id, req.HTMLData); err != nil {
		h.writeDomainError(w, r, err, "update eMag")
		return
	}
	e, err := h.emags.GetEMag(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err, "load eMag")
		return
	}
	WriteSuccess(w, e)
}

// ListPageRecords handles GET /api/v1/emags/{id}/pages.
func (h *Handler) ListPageRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	if _, err := h.emags.GetEMag(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err, "load eMag")
		return
	}
	recs, err := h.emags.ListPageRecords(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err, "list page records")
		return
	}
	if recs == nil {
		recs = []emagsync.PageRecord{}
	}
	WriteSuccess(w, recs)
}

// CreatePageRecord handles POST /api/v1/emags/{id}/pages.
func (h *Handler) CreatePageRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	var rec emagsync.PageRecord
	if !decodeJSON(w, r, &rec, false) {
		return
	}
	rec.ID = 0
	rec.EMagID = id
	errs := map[string]string{}
	validatePageRecord(rec, errs)
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}
	if _, err := h.emags.GetEMag(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err, "load eMag")
		return
	}

	created, err := h.emags.CreatePageRecord(r.Context(), rec)
	if err != nil {
		h.writeDomainError(w, r, err, "create page record")
		return
	}
	WriteCreated(w, created)
}

// DeletePageRecordsAfter handles DELETE /api/v1/emags/{id}/pages?after=N.
func (h *Handler) DeletePageRecordsAfter(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	after, err := strconv.Atoi(r.URL.Query().Get("after"))
	if err != nil || after < 0 {
		WriteValidationError(w, map[string]string{"after": "Must be a non-negative integer"})
		return
	}
	n, err := h.emags.DeletePageRecordsAfter(r.Context(), id, after)
	if err != nil {
		h.writeDomainError(w, r, err, "delete page records")
		return
	}
	WriteSuccess(w, map[string]int64{"removed": n})
}

// UpdatePageRecord handles PUT /api/v1/emag-pages/{id}.
func (h *Handler) UpdatePageRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r)
	if !ok {
		return
	}
	var rec emagsync.PageRecord
	if !decodeJSON(w, r, &rec, false) {
		return
	}
	rec.ID = id
	if !pages.PageType(rec.PageType).Valid() {
		WriteValidationError(w, map[string]string{"page_type": "Unknown page type " + strconv.Quote(rec.PageType)})
		return
	}
	if err := h.emags.UpdatePageRecord(r.Context(), rec); err != nil {
		h.writeDomainError(w, r, err, "update page record")
		return
	}
	WriteSuccess(w, rec)
}

func resourceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := handler.ParseIDParam(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid id")
		return 0, false
	}
	return id, true
}
