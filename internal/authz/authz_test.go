// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olegiv/ocms-emag/internal/model"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	ctx := context.Background()

	tests := []struct {
		role, page, action string
		want               bool
	}{
		{model.RoleAdmin, model.PageEMagStore, model.ActionDelete, true},
		{model.RoleAdmin, "anything", "whatever", true},
		{model.RoleAuthor, model.PageEMagEditor, model.ActionSave, true},
		{model.RoleAuthor, model.PageEMagEditor, model.ActionDelete, false},
		{model.RoleAuthor, model.PageEMagStore, model.ActionView, false},
		{model.RoleEditor, model.PageEMagEditor, model.ActionDelete, true},
		{model.RoleEditor, model.PageEMagStore, model.ActionSave, true},
		{model.RoleEditor, model.PageEMagStore, model.ActionDelete, true},
		{model.RoleReviewer, model.PageEMagEditor, model.ActionExport, true},
		{model.RoleReviewer, model.PageEMagEditor, model.ActionEdit, false},
		{"guest", model.PageEMagEditor, model.ActionView, false},
		{"", model.PageEMagEditor, model.ActionView, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Allowed(ctx, tt.role, tt.page, tt.action), "%s %s %s", tt.role, tt.page, tt.action)
	}
}

func TestPolicyActions(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, []string{model.ActionView, model.ActionExport}, p.Actions(model.RoleReviewer, model.PageEMagEditor))
	assert.Len(t, p.Actions(model.RoleAdmin, model.PageTemplates), 5)
	assert.Empty(t, p.Actions("guest", model.PageTemplates))

	// Returned slice is a copy.
	a := p.Actions(model.RoleAuthor, model.PageTemplates)
	a[0] = "mutated"
	assert.Equal(t, model.ActionView, p.Actions(model.RoleAuthor, model.PageTemplates)[0])
}

func TestCheckerFunc(t *testing.T) {
	var c Checker = CheckerFunc(func(_ context.Context, role, _, _ string) bool { return role == "x" })
	assert.True(t, c.Allowed(context.Background(), "x", "", ""))
	assert.False(t, c.Allowed(context.Background(), "y", "", ""))
}
