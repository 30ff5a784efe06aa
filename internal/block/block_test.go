// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package block

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePage() *Node {
	return NewPage().Append(
		NewNode(TypeSection).Append(
			NewNode(TypeColumn).Append(
				NewNode(TypeText).WithValue("content", "<p>Hello</p>"),
				NewNode(TypeImage).WithValue("src", "https://example.com/a.png").WithValue("alt", "A"),
			),
		),
	)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		node    *Node
		wantErr string
	}{
		{name: "valid tree", node: samplePage()},
		{name: "unknown type accepted", node: NewPage().Append(NewNode("carousel"))},
		{name: "nil root", node: nil, wantErr: "$ is null"},
		{name: "missing type", node: &Node{Attributes: map[string]string{}, Data: Data{Value: map[string]any{}}, Children: []*Node{}}, wantErr: "$.type"},
		{name: "missing attributes", node: &Node{Type: "page", Data: Data{Value: map[string]any{}}, Children: []*Node{}}, wantErr: "$.attributes"},
		{name: "missing value", node: &Node{Type: "page", Attributes: map[string]string{}, Children: []*Node{}}, wantErr: "$.data.value"},
		{name: "missing children", node: &Node{Type: "page", Attributes: map[string]string{}, Data: Data{Value: map[string]any{}}}, wantErr: "$.children"},
		{
			name:    "nested failure reports path",
			node:    NewPage().Append(NewNode(TypeSection).Append(&Node{Type: "text"})),
			wantErr: "$.children[0].children[0].attributes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.node)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidNode))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse(t *testing.T) {
	doc := `{"type":"page","attributes":{"width":"600px"},"data":{"value":{"title":"T"}},"children":[
		{"type":"text","attributes":{},"data":{"value":{"content":"hi"}},"children":[]}]}`

	n, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "page", n.Type)
	assert.Equal(t, "T", n.String("title"))
	require.Len(t, n.Children, 1)
	assert.Equal(t, "hi", n.Children[0].String("content"))

	_, err = Parse([]byte(`{"type":"page"}`))
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}

func TestClone_DeepCopy(t *testing.T) {
	orig := samplePage()
	orig.WithValue("meta", map[string]any{"tags": []any{"a", "b"}})

	c := orig.Clone()
	require.Equal(t, orig, c)

	c.Attributes["width"] = "300px"
	c.Children[0].Children[0].Children[0].Data.Value["content"] = "changed"
	c.Data.Value["meta"].(map[string]any)["tags"].([]any)[0] = "z"

	assert.Equal(t, "600px", orig.Attributes["width"])
	assert.Equal(t, "<p>Hello</p>", orig.Children[0].Children[0].Children[0].String("content"))
	assert.Equal(t, "a", orig.Data.Value["meta"].(map[string]any)["tags"].([]any)[0])

	var nilNode *Node
	assert.Nil(t, nilNode.Clone())
}

func TestWalk(t *testing.T) {
	var types []string
	samplePage().Walk(func(n *Node) bool {
		types = append(types, n.Type)
		return n.Type != TypeColumn
	})
	assert.Equal(t, []string{"page", "section", "column"}, types)
}

func TestHTMLRenderer_Render(t *testing.T) {
	r := NewHTMLRenderer()
	ctx := context.Background()

	out, err := r.Render(ctx, samplePage())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<style>")
	assert.Contains(t, out, `<div class="emag-page" style="background-color: #ffffff; width: 600px">`)
	assert.Contains(t, out, `<div class="block-text"><p>Hello</p></div>`)
	assert.Contains(t, out, `<img class="block-image" src="https://example.com/a.png" alt="A">`)
}

func TestHTMLRenderer_Sanitises(t *testing.T) {
	r := NewHTMLRenderer()
	page := NewPage().Append(
		NewNode(TypeText).WithValue("content", `<p>ok</p><script>alert(1)</script>`),
		NewNode(TypeMarkdown).WithValue("content", "# Title\n\n<img src=x onerror=alert(1)>"),
		NewNode(TypeButton).WithValue("href", "javascript:alert(1)").WithValue("content", "Go"),
		NewNode(TypeText).WithAttr("color", `red;}</style><script>`).WithValue("content", "x"),
	)

	out, err := r.Render(context.Background(), page)
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "onerror")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, `<a class="block-button" href="">Go</a>`)
}

func TestHTMLRenderer_Deterministic(t *testing.T) {
	r := NewHTMLRenderer()
	page := NewPage().Append(NewNode(TypeSpacer).
		WithAttr("padding", "4px").
		WithAttr("margin", "0").
		WithAttr("height", "10px").
		WithAttr("background", "#000"))

	first, err := r.Render(context.Background(), page)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Render(context.Background(), page)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	assert.Contains(t, first, `style="background: #000; height: 10px; margin: 0; padding: 4px"`)
}

func TestHTMLRenderer_Errors(t *testing.T) {
	r := NewHTMLRenderer()

	_, err := r.Render(context.Background(), NewNode(TypeSection))
	assert.ErrorIs(t, err, ErrUnsupportedRoot)

	_, err = r.Render(context.Background(), &Node{Type: "page"})
	assert.ErrorIs(t, err, ErrInvalidNode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, samplePage())
	assert.ErrorIs(t, err, context.Canceled)
}
