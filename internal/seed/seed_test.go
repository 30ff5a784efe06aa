// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/editor"
	"github.com/olegiv/ocms-emag/internal/pages"
	"github.com/olegiv/ocms-emag/internal/testutil"
)

func TestTemplates(t *testing.T) {
	list, err := Templates()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Newsletter", list[0].Name)
	assert.Empty(t, list[0].Pages)
	require.Len(t, list[0].Content.Children, 1)
	section := list[0].Content.Children[0]
	assert.Equal(t, block.TypeSection, section.Type)
	assert.Equal(t, "24px", section.Attributes["padding"])
	assert.Equal(t, block.TypeMarkdown, section.Children[1].Type)

	catalogue := list[1]
	assert.Equal(t, "Product catalogue", catalogue.Name)
	require.Len(t, catalogue.Pages, 4)
	assert.Equal(t, pages.TypeCover, catalogue.Pages[0].Type)
	assert.Equal(t, pages.TypeBackCover, catalogue.Pages[3].Type)
	assert.Equal(t, "Featured product", catalogue.Pages[1].Content.Children[0].String("alt"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"invalid yaml", "name: [", "decoding template"},
		{"missing name", "subject: x", "name is required"},
		{"bad page type", "name: x\npages:\n  - type: poster", "unknown type"},
		{"untyped node", "name: x\ncontent:\n  children:\n    - value: {content: hi}", "invalid block node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_DefaultContent(t *testing.T) {
	tpl, err := Parse([]byte("name: Blank"))
	require.NoError(t, err)
	assert.Equal(t, block.TypePage, tpl.Content.Type)
	assert.Equal(t, "600px", tpl.Content.Attributes["width"])
}

func TestRun(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	logger := testutil.TestLoggerSilent()

	n, err := Run(ctx, db, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = Run(ctx, db, logger)
	require.NoError(t, err)
	assert.Zero(t, n, "second run must not duplicate templates")

	stored, err := editor.NewStoreTemplates(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Len(t, stored[1].Pages, 4)

	coll := pages.NewCollection()
	coll.InitializeFromTemplate(stored[1].PageTemplate())
	st := coll.Snapshot()
	assert.Equal(t, 0, st.CurrentPageIndex)
	assert.Equal(t, "Page 2", st.Pages[2].Name)
}
