// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-emag/internal/emagsync"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Token: "secret", Retries: 2, RetryDelay: time.Millisecond})
}

func TestClient_FindEMags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/emags", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("content_version"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{"id": 3, "content_version": 12, "htmlData": `{"pages":[]}`}},
		})
	})

	got, err := c.FindEMags(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, `{"pages":[]}`, got[0].HTMLData)
}

func TestClient_FindEMagsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]string{"code": "not_found", "message": "none"}})
	})

	got, err := c.FindEMags(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_CreateAndUpdate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/emags":
			assert.Equal(t, float64(5), body["content_version"])
			writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": 9, "content_version": 5, "htmlData": body["htmlData"]}})
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/emags/9":
			assert.Equal(t, "new", body["htmlData"])
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 9}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/emags/9/pages":
			assert.Equal(t, float64(2), body["page_number"])
			assert.Equal(t, float64(9), body["eMag_id"])
			body["id"] = 100
			writeJSON(w, http.StatusCreated, map[string]any{"data": body})
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/emag-pages/100":
			writeJSON(w, http.StatusOK, map[string]any{"data": body})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()

	e, err := c.CreateEMag(ctx, 5, "old")
	require.NoError(t, err)
	assert.Equal(t, int64(9), e.ID)

	require.NoError(t, c.UpdateEMag(ctx, 9, "new"))

	rec, err := c.CreatePageRecord(ctx, emagsync.PageRecord{EMagID: 9, PageNumber: 2, PageType: "content", PageData: "{}"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.ID)

	require.NoError(t, c.UpdatePageRecord(ctx, rec))
}

func TestClient_ListAndDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
				{"id": 1, "eMag_id": 4, "page_number": 1, "page_type": "cover"},
				{"id": 2, "eMag_id": 4, "page_number": 2, "page_type": "content"},
			}})
		case http.MethodDelete:
			assert.Equal(t, "/api/v1/emags/4/pages", r.URL.Path)
			assert.Equal(t, "3", r.URL.Query().Get("after"))
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"removed": 2}})
		}
	})
	ctx := context.Background()

	recs, err := c.ListPageRecords(ctx, 4)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[1].PageNumber)

	n, err := c.DeletePageRecordsAfter(ctx, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": map[string]string{"code": "upstream_error"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 1}})
	})

	require.NoError(t, c.UpdateEMag(context.Background(), 1, "x"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": map[string]string{"code": "internal_error", "message": "boom"}})
	})

	err := c.UpdateEMag(context.Background(), 1, "x")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": map[string]string{"code": "validation_error", "message": "bad"}})
	})

	_, err := c.CreateEMag(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "validation_error")
}

func TestClient_UpdateNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]string{"code": "not_found"}})
	})

	err := c.UpdateEMag(context.Background(), 1, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_SyncsThroughAdapter(t *testing.T) {
	// The remote store is a drop-in emagsync.Store.
	var _ emagsync.Store = New(Config{BaseURL: "http://example.invalid"})
}
