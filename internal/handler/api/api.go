// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API of the eMag service: editor sessions,
// the eMag resource store and templates.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/editor"
	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/export"
	"github.com/olegiv/ocms-emag/internal/pages"
	"github.com/olegiv/ocms-emag/internal/remote"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 8 << 20

// Templates lists and resolves stored templates.
type Templates interface {
	editor.TemplateLoader
	List(ctx context.Context) ([]editor.Template, error)
}

// EMagRecords is the store behind the eMag resource API.
type EMagRecords interface {
	emagsync.Store
	GetEMag(ctx context.Context, id int64) (emagsync.EMag, error)
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	sessions  *editor.Manager
	templates Templates
	emags     EMagRecords
	logger    *slog.Logger
}

// Options wires a Handler. EMags is nil when eMags live in a remote store;
// the resource API is then not mounted.
type Options struct {
	Sessions  *editor.Manager
	Templates Templates
	EMags     EMagRecords
	Logger    *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:  opts.Sessions,
		templates: opts.Templates,
		emags:     opts.EMags,
		logger:    logger,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any `json:"data"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// errConflict marks requests that clash with stored state.
var errConflict = errors.New("conflict")

// writeDomainError maps service errors onto the API error envelope.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var upstream *remote.APIError
	switch {
	case errors.Is(err, editor.ErrSessionNotFound),
		errors.Is(err, editor.ErrTemplateNotFound),
		errors.Is(err, remote.ErrNotFound),
		errors.Is(err, sql.ErrNoRows):
		WriteNotFound(w, firstLine(err))
	case errors.Is(err, pages.ErrIndexOutOfRange),
		errors.Is(err, block.ErrInvalidNode),
		errors.Is(err, block.ErrUnsupportedRoot),
		errors.Is(err, export.ErrNoPages):
		WriteError(w, http.StatusUnprocessableEntity, "validation_error", firstLine(err), nil)
	case errors.Is(err, emagsync.ErrMalformedPayload), errors.Is(err, errConflict), isUniqueViolation(err):
		WriteError(w, http.StatusConflict, "conflict", firstLine(err), nil)
	case errors.As(err, &upstream):
		h.logger.Warn("upstream eMag store error", "action", action, "status", upstream.Status, "error", err)
		WriteError(w, http.StatusBadGateway, "upstream_error", "The eMag store rejected the request", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusServiceUnavailable, "timeout", "Request cancelled or timed out", nil)
	default:
		h.logger.Error("API request failed", "action", action, "path", r.URL.Path, "error", err)
		WriteInternalError(w, "Failed to "+action)
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func firstLine(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set. On failure a 400 is written and false returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
			return false
		}
		WriteBadRequest(w, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}
