// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/store"
	"github.com/olegiv/ocms-emag/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, q *store.Queries) []store.Event {
	t.Helper()
	events, err := q.ListEvents(context.Background(), store.ListEventsParams{Limit: 50})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Levels(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	logger := slog.New(NewEventLogHandler(discardHandler{}, q))

	logger.Info("session opened", "cv", 1)
	logger.Debug("noise")
	logger.Warn("slow save detected", "duration_ms", 5000)
	logger.Error("database connection failed", "host", "localhost")

	events := listEvents(t, q)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	levels := map[string]string{}
	for _, e := range events {
		levels[e.Message] = e.Level
	}
	if levels["slow save detected"] != model.EventLevelWarning {
		t.Errorf("warn level = %q", levels["slow save detected"])
	}
	if levels["database connection failed"] != model.EventLevelError {
		t.Errorf("error level = %q", levels["database connection failed"])
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, q, slog.LevelInfo))

	logger.Info("eMag saved", "cv", 3)

	events := listEvents(t, q)
	if len(events) != 1 || events[0].Level != model.EventLevelInfo {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Category != model.EventCategoryEMag {
		t.Errorf("Category = %q, want %q", events[0].Category, model.EventCategoryEMag)
	}
}

func TestEventLogHandler_CategoryAndMetadata(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	logger := slog.New(NewEventLogHandler(discardHandler{}, q)).
		With("category", model.EventCategoryCache).
		WithGroup("redis")

	logger.Warn("falling back", "url", "redis://x", "attempt", 2)

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != model.EventCategoryCache {
		t.Errorf("Category = %q, want cache", events[0].Category)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata not JSON: %v (%s)", err, events[0].Metadata)
	}
	if meta["redis.url"] != "redis://x" || meta["redis.attempt"] != "2" {
		t.Errorf("metadata = %v", meta)
	}
	if _, ok := meta["category"]; ok {
		t.Error("category should not be copied into metadata")
	}
}

func TestCategory_Inference(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"invalid API token", model.EventCategoryAuth},
		{"permission denied", model.EventCategoryAuth},
		{"export failed", model.EventCategoryExport},
		{"page record update failed", model.EventCategoryEMag},
		{"idle session closed", model.EventCategoryEMag},
		{"config reloaded", model.EventCategoryConfig},
		{"redis unreachable", model.EventCategoryCache},
		{"shutting down", model.EventCategorySystem},
	}
	for _, tt := range tests {
		if got := category(tt.msg, nil); got != tt.want {
			t.Errorf("category(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestMetadata_Empty(t *testing.T) {
	if got := metadata(nil); got != "{}" {
		t.Errorf("metadata(nil) = %q", got)
	}
	if got := metadata([]slog.Attr{slog.String("category", "x")}); got != "{}" {
		t.Errorf("metadata(category only) = %q", got)
	}
}

type failingWriter struct{ calls int }

func (f *failingWriter) CreateEvent(context.Context, store.CreateEventParams) (store.Event, error) {
	f.calls++
	return store.Event{}, errors.New("disk full")
}

func TestEventLogHandler_WriterErrorIgnored(t *testing.T) {
	var buf bytes.Buffer
	w := &failingWriter{}
	logger := slog.New(NewEventLogHandler(slog.NewTextHandler(&buf, nil), w))

	logger.Error("boom")

	if w.calls != 1 {
		t.Errorf("writer calls = %d, want 1", w.calls)
	}
	if !bytes.Contains(buf.Bytes(), []byte("msg=boom")) {
		t.Errorf("inner handler output = %q", buf.String())
	}
}

func TestEventLogHandler_NilWriter(t *testing.T) {
	logger := slog.New(NewEventLogHandler(discardHandler{}, nil))
	logger.Error("no writer")
}
