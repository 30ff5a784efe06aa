// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package block

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// ErrUnsupportedRoot is returned when a document root is not a page node.
var ErrUnsupportedRoot = errors.New("block document root must be a page node")

// Renderer compiles a block document into a complete markup document
// (head with styles plus body). Implementations must not retain or mutate
// the tree.
type Renderer interface {
	Render(ctx context.Context, root *Node) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, root *Node) (string, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, root *Node) (string, error) {
	return f(ctx, root)
}

// baseStyles is emitted into the head of every rendered document.
const baseStyles = `.emag-page{box-sizing:border-box;margin:0 auto;overflow:hidden;font-family:Helvetica,Arial,sans-serif;line-height:1.5}
.block-section{display:flex;flex-wrap:wrap;width:100%}
.block-column{flex:1 1 0;min-width:0}
.block-text p{margin:0 0 .75em}
.block-image{display:block;max-width:100%;height:auto}
.block-audio,.block-video{display:block;width:100%}
.block-button{display:inline-block;padding:.5em 1.25em;text-decoration:none;border-radius:4px}
.block-spacer{height:20px}`

var (
	cssProperty = regexp.MustCompile(`^-?[a-z][a-z0-9-]*$`)
	cssUnsafe   = strings.NewReplacer(";", "", "{", "", "}", "", "<", "", ">", "", `"`, "", "\\", "")
)

// HTMLRenderer is the reference block renderer. Text payloads are sanitised
// with a UGC policy and markdown payloads are converted with goldmark.
type HTMLRenderer struct {
	policy *bluemonday.Policy
	md     goldmark.Markdown
}

// NewHTMLRenderer creates an HTMLRenderer with the default sanitising policy.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		policy: bluemonday.UGCPolicy(),
		md:     goldmark.New(),
	}
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, root *Node) (string, error) {
	if err := Validate(root); err != nil {
		return "", err
	}
	if root.Type != TypePage {
		return "", fmt.Errorf("%w: got %q", ErrUnsupportedRoot, root.Type)
	}

	var body bytes.Buffer
	if err := r.renderNode(ctx, &body, root); err != nil {
		return "", err
	}

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	if title := root.String("title"); title != "" {
		doc.WriteString("<title>" + html.EscapeString(title) + "</title>")
	}
	doc.WriteString("<style>" + baseStyles + "</style></head><body>")
	doc.Write(body.Bytes())
	doc.WriteString("</body></html>")
	return doc.String(), nil
}

func (r *HTMLRenderer) renderNode(ctx context.Context, buf *bytes.Buffer, n *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	style := styleAttr(n.Attributes)
	switch n.Type {
	case TypePage:
		buf.WriteString(`<div class="emag-page"` + style + `>`)
		if err := r.renderChildren(ctx, buf, n); err != nil {
			return err
		}
		buf.WriteString(`</div>`)
	case TypeSection:
		buf.WriteString(`<section class="block-section"` + style + `>`)
		if err := r.renderChildren(ctx, buf, n); err != nil {
			return err
		}
		buf.WriteString(`</section>`)
	case TypeColumn, TypeGroup, TypeWrapper:
		buf.WriteString(`<div class="block-` + n.Type + `"` + style + `>`)
		if err := r.renderChildren(ctx, buf, n); err != nil {
			return err
		}
		buf.WriteString(`</div>`)
	case TypeText:
		buf.WriteString(`<div class="block-text"` + style + `>`)
		buf.WriteString(r.policy.Sanitize(n.String("content")))
		buf.WriteString(`</div>`)
	case TypeMarkdown:
		var md bytes.Buffer
		if err := r.md.Convert([]byte(n.String("content")), &md); err != nil {
			return fmt.Errorf("converting markdown block: %w", err)
		}
		buf.WriteString(`<div class="block-text"` + style + `>`)
		buf.Write(r.policy.SanitizeBytes(md.Bytes()))
		buf.WriteString(`</div>`)
	case TypeImage:
		img := `<img class="block-image" src="` + safeURL(n.String("src")) + `" alt="` + html.EscapeString(n.String("alt")) + `"` + style + `>`
		if href := n.String("href"); href != "" {
			img = `<a href="` + safeURL(href) + `">` + img + `</a>`
		}
		buf.WriteString(img)
	case TypeAudio, TypeVideo:
		buf.WriteString(`<` + n.Type + ` class="block-` + n.Type + `" controls src="` + safeURL(n.String("src")) + `"` + style + `></` + n.Type + `>`)
	case TypeButton:
		buf.WriteString(`<a class="block-button" href="` + safeURL(n.String("href")) + `"` + style + `>`)
		buf.WriteString(html.EscapeString(n.String("content")))
		buf.WriteString(`</a>`)
	case TypeDivider:
		buf.WriteString(`<hr class="block-divider"` + style + `>`)
	case TypeSpacer:
		buf.WriteString(`<div class="block-spacer"` + style + `></div>`)
	default:
		buf.WriteString(`<div data-block-type="` + html.EscapeString(n.Type) + `"` + style + `>`)
		if err := r.renderChildren(ctx, buf, n); err != nil {
			return err
		}
		buf.WriteString(`</div>`)
	}
	return nil
}

func (r *HTMLRenderer) renderChildren(ctx context.Context, buf *bytes.Buffer, n *Node) error {
	for _, child := range n.Children {
		if err := r.renderNode(ctx, buf, child); err != nil {
			return err
		}
	}
	return nil
}

// styleAttr turns node attributes into an inline style attribute. Keys are
// emitted in sorted order so output is stable.
func styleAttr(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if cssProperty.MatchString(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	decls := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(cssUnsafe.Replace(attrs[k]))
		if v == "" {
			continue
		}
		decls = append(decls, k+": "+v)
	}
	if len(decls) == 0 {
		return ""
	}
	return ` style="` + html.EscapeString(strings.Join(decls, "; ")) + `"`
}

// safeURL escapes a URL for an attribute and drops script URLs.
func safeURL(u string) string {
	trimmed := strings.TrimSpace(u)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "vbscript:") {
		return ""
	}
	if strings.HasPrefix(lower, "data:") && !strings.HasPrefix(lower, "data:image/") {
		return ""
	}
	return html.EscapeString(trimmed)
}
