// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// splitDocument parses a rendered page and returns the serialised children
// of its head and body elements.
func splitDocument(doc string) (head, body string, err error) {
	root, err := xhtml.Parse(strings.NewReader(doc))
	if err != nil {
		return "", "", err
	}

	var headNode, bodyNode *xhtml.Node
	var find func(*xhtml.Node)
	find = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			switch n.DataAtom {
			case atom.Head:
				if headNode == nil {
					headNode = n
				}
			case atom.Body:
				if bodyNode == nil {
					bodyNode = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)

	if head, err = renderChildren(headNode); err != nil {
		return "", "", err
	}
	if body, err = renderChildren(bodyNode); err != nil {
		return "", "", err
	}
	return head, body, nil
}

func renderChildren(n *xhtml.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := xhtml.Render(&buf, c); err != nil {
			return "", fmt.Errorf("serialising %s: %w", n.Data, err)
		}
	}
	return buf.String(), nil
}

// plainText returns the visible text of an HTML fragment with whitespace
// collapsed. Script and style contents are skipped.
func plainText(fragment string) string {
	z := xhtml.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				skip++
			}
			sb.WriteByte(' ')
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		case xhtml.SelfClosingTagToken:
			sb.WriteByte(' ')
		case xhtml.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

// applyMergeTags substitutes {{name}} placeholders with HTML-escaped values.
// Whitespace inside the braces is ignored; unknown names are left as written.
func applyMergeTags(s string, tags map[string]string) string {
	if len(tags) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	t, err := fasttemplate.NewTemplate(s, "{{", "}}")
	if err != nil {
		// Unbalanced braces: nothing we can substitute safely.
		return s
	}
	return t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if v, ok := tags[strings.TrimSpace(tag)]; ok {
			return io.WriteString(w, html.EscapeString(v))
		}
		return io.WriteString(w, "{{"+tag+"}}")
	})
}
