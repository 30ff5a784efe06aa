// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package export turns a page collection into a single self-contained
// flipbook HTML document.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/pages"
	"github.com/olegiv/ocms-emag/internal/util"
)

// ErrNoPages is returned when there is nothing to export.
var ErrNoPages = errors.New("no pages to export")

// Input is everything one export needs.
type Input struct {
	Pages []pages.Page `json:"pages"`
	// CurrentIndex and CurrentContent overlay the live editor buffer onto
	// the page being edited. CurrentContent may be nil.
	CurrentIndex   int               `json:"current_index"`
	CurrentContent *block.Node       `json:"current_content,omitempty"`
	Title          string            `json:"title"`
	MergeTags      map[string]string `json:"merge_tags,omitempty"`
}

// Generator produces flipbook documents.
type Generator struct {
	Renderer block.Renderer
}

// NewGenerator creates a Generator using r for page markup.
func NewGenerator(r block.Renderer) *Generator {
	return &Generator{Renderer: r}
}

type slide struct {
	Number int
	Hard   bool
	Type   pages.PageType
	Body   template.HTML
}

type searchEntry struct {
	Page int    `json:"page"`
	Name string `json:"name"`
	Text string `json:"text"`
}

type shellData struct {
	Title  string
	Head   template.HTML
	Slides []slide
	Search []searchEntry
	Width  int
	Height int
}

// Page geometry of the flipbook, portrait.
const (
	PageWidth  = 600
	PageHeight = 848
)

// Generate renders every page and assembles the flipbook document. Renderer
// errors are returned wrapped with the failing page number.
func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	pp := overlay(in.Pages, in.CurrentIndex, in.CurrentContent)
	if len(pp) == 0 {
		return "", ErrNoPages
	}

	data := shellData{
		Title:  in.Title,
		Width:  PageWidth,
		Height: PageHeight,
	}
	for i, p := range pp {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		doc, err := g.Renderer.Render(ctx, p.Content)
		if err != nil {
			return "", fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		head, body, err := splitDocument(doc)
		if err != nil {
			return "", fmt.Errorf("parsing page %d: %w", i+1, err)
		}
		if i == 0 {
			data.Head = template.HTML(head) //nolint:gosec // renderer output
		}
		body = applyMergeTags(body, in.MergeTags)

		data.Slides = append(data.Slides, slide{
			Number: i + 1,
			Hard:   p.Type.Protected(),
			Type:   p.Type,
			Body:   template.HTML(body), //nolint:gosec // renderer output
		})
		data.Search = append(data.Search, searchEntry{
			Page: i + 1,
			Name: p.Name,
			Text: plainText(body),
		})
	}

	var buf bytes.Buffer
	if err := shellTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing flipbook template: %w", err)
	}
	return buf.String(), nil
}

// Filename returns the download name for a flipbook titled title.
func Filename(title string) string {
	return util.Filename(title, "emag", ".html")
}

// Key returns a stable cache key for in.
func Key(in Input) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encoding export input: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

// overlay deep-copies pp and swaps in content for the page at index.
func overlay(pp []pages.Page, index int, content *block.Node) []pages.Page {
	out := make([]pages.Page, len(pp))
	for i, p := range pp {
		out[i] = p.Clone()
	}
	if content != nil && index >= 0 && index < len(out) {
		out[index].Content = content.Clone()
	}
	return out
}
