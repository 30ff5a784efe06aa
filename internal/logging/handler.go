// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors warnings and errors
// into the events table.
package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/store"
)

// EventWriter persists one event row.
type EventWriter interface {
	CreateEvent(ctx context.Context, arg store.CreateEventParams) (store.Event, error)
}

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the event log.
type EventLogHandler struct {
	inner  slog.Handler
	events EventWriter
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

// NewEventLogHandler wraps inner and forwards WARN and above to events.
func NewEventLogHandler(inner slog.Handler, events EventWriter) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, events, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates an EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, events EventWriter, level slog.Level) *EventLogHandler {
	return &EventLogHandler{inner: inner, events: events, level: level}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level && h.events != nil {
		h.writeEvent(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.inner = h.inner.WithAttrs(attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return c
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.inner = h.inner.WithGroup(name)
	if c.group != "" {
		c.group += "."
	}
	c.group += name
	return c
}

func (h *EventLogHandler) clone() *EventLogHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	return &c
}

func (h *EventLogHandler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" && a.Key != "category" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

// writeEvent stores r. A background context keeps the event even when the
// request that logged it was cancelled.
func (h *EventLogHandler) writeEvent(r slog.Record) {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	created := r.Time
	if created.IsZero() {
		created = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = h.events.CreateEvent(ctx, store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category(r.Message, attrs),
		Message:   r.Message,
		Metadata:  metadata(attrs),
		CreatedAt: created,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// category returns the last "category" attribute, or infers one from the message.
func category(msg string, attrs []slog.Attr) string {
	for i := len(attrs) - 1; i >= 0; i-- {
		if attrs[i].Key == "category" {
			if c := attrs[i].Value.String(); c != "" {
				return c
			}
		}
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "token") || strings.Contains(msg, "auth") || strings.Contains(msg, "permission"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "export"):
		return model.EventCategoryExport
	case strings.Contains(msg, "emag") || strings.Contains(msg, "page") || strings.Contains(msg, "session"):
		return model.EventCategoryEMag
	case strings.Contains(msg, "config") || strings.Contains(msg, "setting"):
		return model.EventCategoryConfig
	case strings.Contains(msg, "cache") || strings.Contains(msg, "redis"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

// metadata encodes attributes other than category as a flat JSON object.
func metadata(attrs []slog.Attr) string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Key == "category" || a.Key == "" {
			continue
		}
		m[a.Key] = a.Value.Resolve().String()
	}
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}
