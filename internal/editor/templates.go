// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package editor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/pages"
	"github.com/olegiv/ocms-emag/internal/store"
)

// ErrTemplateNotFound is returned when a template id does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// Template is a stored starting point for a new eMag.
type Template struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	Subject string       `json:"subject,omitempty"`
	Content *block.Node  `json:"content"`
	Pages   []pages.Page `json:"pages,omitempty"`
}

// PageTemplate converts t into the collection initialiser.
func (t Template) PageTemplate() pages.Template {
	return pages.Template{Content: t.Content, Pages: t.Pages}
}

// TemplateLoader resolves template ids.
type TemplateLoader interface {
	LoadTemplate(ctx context.Context, id int64) (Template, error)
}

// StoreTemplates loads templates from the database.
type StoreTemplates struct {
	q *store.Queries
}

// NewStoreTemplates creates a TemplateLoader backed by db.
func NewStoreTemplates(db store.DBTX) *StoreTemplates {
	return &StoreTemplates{q: store.New(db)}
}

// LoadTemplate implements TemplateLoader.
func (s *StoreTemplates) LoadTemplate(ctx context.Context, id int64) (Template, error) {
	row, err := s.q.GetTemplate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
	}
	if err != nil {
		return Template{}, fmt.Errorf("loading template %d: %w", id, err)
	}
	return TemplateFromRow(row)
}

// List returns all templates ordered by name.
func (s *StoreTemplates) List(ctx context.Context) ([]Template, error) {
	rows, err := s.q.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	out := make([]Template, 0, len(rows))
	for _, r := range rows {
		t, err := TemplateFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// TemplateFromRow decodes a stored template. The pages column is optional.
func TemplateFromRow(row store.Template) (Template, error) {
	t := Template{ID: row.ID, Name: row.Name, Subject: row.Subject}

	content, err := block.Parse([]byte(row.Content))
	if err != nil {
		return Template{}, fmt.Errorf("template %q content: %w", row.Name, err)
	}
	t.Content = content

	if row.Pages != "" {
		if err := json.Unmarshal([]byte(row.Pages), &t.Pages); err != nil {
			return Template{}, fmt.Errorf("template %q pages: %w", row.Name, err)
		}
	}
	return t, nil
}
