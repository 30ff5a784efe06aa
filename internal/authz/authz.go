// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package authz answers "may this role do that on this page" questions.
package authz

import (
	"context"
	"slices"

	"github.com/olegiv/ocms-emag/internal/model"
)

// Checker is the permission-check capability consumed by the HTTP layer.
type Checker interface {
	Allowed(ctx context.Context, role, page, action string) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, role, page, action string) bool

// Allowed implements Checker.
func (f CheckerFunc) Allowed(ctx context.Context, role, page, action string) bool {
	return f(ctx, role, page, action)
}

// Policy is a static role -> page -> actions matrix. Admin is allowed
// everything regardless of the matrix.
type Policy struct {
	rules map[string]map[string][]string
}

var _ Checker = (*Policy)(nil)

// NewPolicy returns a Policy with the given rules.
func NewPolicy(rules map[string]map[string][]string) *Policy {
	return &Policy{rules: rules}
}

// DefaultPolicy returns the editorial permission matrix.
func DefaultPolicy() *Policy {
	all := []string{model.ActionView, model.ActionEdit, model.ActionSave, model.ActionExport, model.ActionDelete}
	return NewPolicy(map[string]map[string][]string{
		model.RoleAuthor: {
			model.PageEMagEditor: {model.ActionView, model.ActionEdit, model.ActionSave, model.ActionExport},
			model.PageTemplates:  {model.ActionView},
		},
		model.RoleEditor: {
			model.PageEMagEditor: all,
			model.PageTemplates:  {model.ActionView, model.ActionEdit},
			model.PageEMagStore:  {model.ActionView, model.ActionEdit, model.ActionSave, model.ActionDelete},
		},
		model.RoleReviewer: {
			model.PageEMagEditor: {model.ActionView, model.ActionExport},
			model.PageTemplates:  {model.ActionView},
		},
	})
}

// Allowed implements Checker.
func (p *Policy) Allowed(_ context.Context, role, page, action string) bool {
	if role == model.RoleAdmin {
		return true
	}
	pages, ok := p.rules[role]
	if !ok {
		return false
	}
	return slices.Contains(pages[page], action)
}

// Actions lists what role may do on page, in matrix order.
func (p *Policy) Actions(role, page string) []string {
	if role == model.RoleAdmin {
		return []string{model.ActionView, model.ActionEdit, model.ActionSave, model.ActionExport, model.ActionDelete}
	}
	return slices.Clone(p.rules[role][page])
}
