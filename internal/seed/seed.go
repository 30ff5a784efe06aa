// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seed installs the page templates shipped with the service.
package seed

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/editor"
	"github.com/olegiv/ocms-emag/internal/pages"
	"github.com/olegiv/ocms-emag/internal/store"
)

//go:embed templates/*.yaml
var templatesFS embed.FS

// node is the YAML form of a block node. Empty maps and lists may be left out.
type node struct {
	Type       string            `yaml:"type"`
	Attributes map[string]string `yaml:"attributes"`
	Value      map[string]any    `yaml:"value"`
	Children   []node            `yaml:"children"`
}

func (n node) block() *block.Node {
	b := block.NewNode(n.Type)
	for k, v := range n.Attributes {
		b.WithAttr(k, v)
	}
	for k, v := range n.Value {
		b.WithValue(k, v)
	}
	for _, c := range n.Children {
		b.Append(c.block())
	}
	return b
}

type pageDef struct {
	Type    pages.PageType `yaml:"type"`
	Name    string         `yaml:"name"`
	Content *node          `yaml:"content"`
}

type templateDef struct {
	Name    string    `yaml:"name"`
	Subject string    `yaml:"subject"`
	Content *node     `yaml:"content"`
	Pages   []pageDef `yaml:"pages"`
}

// Templates parses the embedded template definitions, sorted by name.
func Templates() ([]editor.Template, error) {
	files, err := fs.Glob(templatesFS, "templates/*.yaml")
	if err != nil {
		return nil, err
	}
	out := make([]editor.Template, 0, len(files))
	for _, f := range files {
		data, err := templatesFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		t, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(f), err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Parse decodes one YAML template definition. The result is validated the
// same way a stored template is.
func Parse(data []byte) (editor.Template, error) {
	var def templateDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return editor.Template{}, fmt.Errorf("decoding template: %w", err)
	}
	if def.Name == "" {
		return editor.Template{}, errors.New("template name is required")
	}

	t := editor.Template{Name: def.Name, Subject: def.Subject, Content: block.NewPage()}
	if def.Content != nil {
		t.Content = def.Content.block()
	}
	if err := block.Validate(t.Content); err != nil {
		return editor.Template{}, fmt.Errorf("template %q content: %w", def.Name, err)
	}

	for i, p := range def.Pages {
		if p.Type != "" && !p.Type.Valid() {
			return editor.Template{}, fmt.Errorf("template %q page %d: unknown type %q", def.Name, i+1, p.Type)
		}
		page := pages.Page{Type: p.Type, Name: p.Name}
		if p.Content != nil {
			page.Content = p.Content.block()
			if err := block.Validate(page.Content); err != nil {
				return editor.Template{}, fmt.Errorf("template %q page %d: %w", def.Name, i+1, err)
			}
		}
		t.Pages = append(t.Pages, page)
	}
	return t, nil
}

// Run stores every embedded template whose name is not taken yet and returns
// the number created.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) (int, error) {
	templates, err := Templates()
	if err != nil {
		return 0, err
	}
	queries := store.New(db)

	created := 0
	for _, t := range templates {
		_, err := queries.GetTemplateByName(ctx, t.Name)
		if err == nil {
			logger.Debug("template already exists, skipping", "name", t.Name)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return created, fmt.Errorf("checking template %q: %w", t.Name, err)
		}

		params, err := createParams(t)
		if err != nil {
			return created, err
		}
		if _, err := queries.CreateTemplate(ctx, params); err != nil {
			return created, fmt.Errorf("creating template %q: %w", t.Name, err)
		}
		created++
	}

	logger.Info("templates seeded", "created", created, "available", len(templates))
	return created, nil
}

func createParams(t editor.Template) (store.CreateTemplateParams, error) {
	content, err := json.Marshal(t.Content)
	if err != nil {
		return store.CreateTemplateParams{}, fmt.Errorf("encoding template %q content: %w", t.Name, err)
	}
	p := store.CreateTemplateParams{
		Name:      t.Name,
		Subject:   t.Subject,
		Content:   string(content),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if len(t.Pages) > 0 {
		pp, err := json.Marshal(t.Pages)
		if err != nil {
			return store.CreateTemplateParams{}, fmt.Errorf("encoding template %q pages: %w", t.Name, err)
		}
		p.Pages = string(pp)
	}
	return p, nil
}
