// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package block models the block-editor document tree that every eMag page
// carries. The tree is opaque to the rest of the service: nodes are passed
// through, cloned and rendered, never interpreted beyond their type tag.
package block

import (
	"encoding/json"
	"fmt"
)

// Well-known node types produced by the block editor.
const (
	TypePage     = "page"
	TypeSection  = "section"
	TypeColumn   = "column"
	TypeGroup    = "group"
	TypeWrapper  = "wrapper"
	TypeText     = "text"
	TypeMarkdown = "markdown"
	TypeImage    = "image"
	TypeAudio    = "audio"
	TypeVideo    = "video"
	TypeButton   = "button"
	TypeDivider  = "divider"
	TypeSpacer   = "spacer"
)

// Node is one element of a block document.
type Node struct {
	Type       string            `json:"type" validate:"required"`
	Attributes map[string]string `json:"attributes" validate:"required"`
	Data       Data              `json:"data"`
	Children   []*Node           `json:"children" validate:"required"`
}

// Data wraps the content-specific payload of a node.
type Data struct {
	Value map[string]any `json:"value" validate:"required"`
}

// NewNode returns a node of the given type with empty attributes, payload and children.
func NewNode(nodeType string) *Node {
	return &Node{
		Type:       nodeType,
		Attributes: map[string]string{},
		Data:       Data{Value: map[string]any{}},
		Children:   []*Node{},
	}
}

// NewPage returns an empty page root as the editor creates it for a blank page.
func NewPage() *Node {
	n := NewNode(TypePage)
	n.Attributes["width"] = "600px"
	n.Attributes["background-color"] = "#ffffff"
	return n
}

// Append adds children to the node and returns it for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// WithValue sets a payload field and returns the node for chaining.
func (n *Node) WithValue(key string, value any) *Node {
	if n.Data.Value == nil {
		n.Data.Value = map[string]any{}
	}
	n.Data.Value[key] = value
	return n
}

// WithAttr sets an attribute and returns the node for chaining.
func (n *Node) WithAttr(key, value string) *Node {
	if n.Attributes == nil {
		n.Attributes = map[string]string{}
	}
	n.Attributes[key] = value
	return n
}

// String returns a payload field as a string, or "" when it is absent or not a string.
func (n *Node) String(key string) string {
	if n == nil || n.Data.Value == nil {
		return ""
	}
	s, _ := n.Data.Value[key].(string)
	return s
}

// Clone returns a deep copy of the node. Payload maps and slices are copied
// recursively so the copy never aliases the original.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Type:       n.Type,
		Attributes: make(map[string]string, len(n.Attributes)),
		Data:       Data{Value: cloneMap(n.Data.Value)},
		Children:   make([]*Node, 0, len(n.Children)),
	}
	if n.Attributes == nil {
		c.Attributes = nil
	}
	for k, v := range n.Attributes {
		c.Attributes[k] = v
	}
	if n.Children == nil {
		c.Children = nil
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return c
}

// Walk visits the node and its descendants depth-first. Returning false from
// fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Parse decodes a JSON block document and validates its structure.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding block document: %w", err)
	}
	if err := Validate(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i, item := range t {
			s[i] = cloneValue(item)
		}
		return s
	default:
		return v
	}
}
