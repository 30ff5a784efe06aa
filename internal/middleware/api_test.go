// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/olegiv/ocms-emag/internal/authz"
	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTokens struct {
	mu      sync.Mutex
	byHash  map[string]store.ApiToken
	err     error
	touched chan int64
}

func newFakeTokens(raw map[string]string) *fakeTokens {
	f := &fakeTokens{byHash: map[string]store.ApiToken{}, touched: make(chan int64, 10)}
	id := int64(0)
	for tok, role := range raw {
		id++
		f.byHash[model.HashToken(tok)] = store.ApiToken{ID: id, Name: role, Role: role, IsActive: true}
	}
	return f
}

func (f *fakeTokens) GetAPITokenByHash(_ context.Context, hash string) (store.ApiToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return store.ApiToken{}, f.err
	}
	tok, ok := f.byHash[hash]
	if !ok {
		return store.ApiToken{}, sql.ErrNoRows
	}
	return tok, nil
}

func (f *fakeTokens) UpdateAPITokenLastUsed(_ context.Context, arg store.UpdateAPITokenLastUsedParams) error {
	f.touched <- arg.ID
	return nil
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	tok := GetToken(r)
	if tok == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = io.WriteString(w, tok.Role)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("response is not an API error: %v (%s)", err, rec.Body.String())
	}
	return e
}

func TestTokenAuth(t *testing.T) {
	tokens := newFakeTokens(map[string]string{"editor-token": model.RoleEditor})
	h := TokenAuth(tokens, testLogger())(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"bearer header", "Bearer editor-token", "", http.StatusOK, "editor"},
		{"lowercase scheme", "bearer editor-token", "", http.StatusOK, "editor"},
		{"query parameter", "", "?token=editor-token", http.StatusOK, "editor"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"header wins over query", "Bearer nope", "?token=editor-token", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/editor/1"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if rec.Body.String() != tt.wantBody {
					t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
				}
				return
			}
			if e := decodeError(t, rec); e.Error.Code != "unauthorized" {
				t.Errorf("code = %q, want unauthorized", e.Error.Code)
			}
		})
	}
}

func TestTokenAuth_TouchesLastUsed(t *testing.T) {
	tokens := newFakeTokens(map[string]string{"tok": model.RoleAdmin})
	h := TokenAuth(tokens, testLogger())(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if id := <-tokens.touched; id != 1 {
		t.Errorf("touched token %d, want 1", id)
	}
}

func TestTokenAuth_StoreError(t *testing.T) {
	tokens := newFakeTokens(nil)
	tokens.err = errors.New("db down")
	h := TokenAuth(tokens, testLogger())(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/?token=x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if e := decodeError(t, rec); e.Error.Code != "internal_error" {
		t.Errorf("code = %q", e.Error.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	tokens := newFakeTokens(map[string]string{
		"author":   model.RoleAuthor,
		"reviewer": model.RoleReviewer,
	})
	policy := authz.DefaultPolicy()
	chain := func(page, action string) http.Handler {
		return TokenAuth(tokens, testLogger())(
			RequirePermission(policy, page, action)(http.HandlerFunc(okHandler)))
	}

	tests := []struct {
		token      string
		page       string
		action     string
		wantStatus int
	}{
		{"author", model.PageEMagEditor, model.ActionEdit, http.StatusOK},
		{"reviewer", model.PageEMagEditor, model.ActionView, http.StatusOK},
		{"reviewer", model.PageEMagEditor, model.ActionEdit, http.StatusForbidden},
		{"author", model.PageEMagStore, model.ActionDelete, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.token+"/"+tt.page+"/"+tt.action, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?token="+tt.token, nil)
			rec := httptest.NewRecorder()
			chain(tt.page, tt.action).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if e := decodeError(t, rec); e.Error.Code != "forbidden" {
					t.Errorf("code = %q, want forbidden", e.Error.Code)
				}
			}
		})
	}
}

func TestRequirePermission_NoToken(t *testing.T) {
	h := RequirePermission(authz.DefaultPolicy(), model.PageEMagEditor, model.ActionView)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, http.StatusUnprocessableEntity, "validation_error", "bad input", map[string]string{"index": "out of range"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	e := decodeError(t, rec)
	if e.Error.Code != "validation_error" || e.Error.Details["index"] != "out of range" {
		t.Errorf("error = %+v", e.Error)
	}
}
