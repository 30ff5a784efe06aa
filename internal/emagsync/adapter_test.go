// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package emagsync_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/pages"
	"github.com/olegiv/ocms-emag/internal/testutil"
)

func newAdapter(s emagsync.Store) *emagsync.Adapter {
	return emagsync.New(s, testutil.TestLoggerSilent(), emagsync.Config{
		Concurrency: 4,
		Attempts:    3,
		RetryDelay:  time.Millisecond,
	})
}

type triple struct {
	ID    string
	Type  pages.PageType
	Order int
}

func triples(pp []pages.Page) []triple {
	out := make([]triple, len(pp))
	for i, p := range pp {
		out[i] = triple{p.ID, p.Type, p.Order}
	}
	return out
}

func TestLoadOrCreate_CreatesWhenMissing(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	a := newAdapter(s)
	coll := pages.NewCollection()
	before := coll.Pages()

	res, err := a.LoadOrCreate(ctx, 7, coll)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Loaded)
	assert.Equal(t, 3, res.PageCount)

	rec, ok := s.EMag(res.EMagID)
	require.True(t, ok)
	assert.Equal(t, int64(7), rec.ContentVersionID)

	stored, err := emagsync.DecodeSnapshot(rec.HTMLData)
	require.NoError(t, err)
	assert.Equal(t, triples(before), triples(stored))
	assert.Equal(t, triples(before), triples(coll.Pages()))
}

func TestLoadOrCreate_LoadsFirstRecord(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()

	saved := pages.Reindex([]pages.Page{
		{ID: "c", Type: pages.TypeCover},
		{ID: "p1", Type: pages.TypeContent},
		{ID: "p2", Type: pages.TypeContent},
		{ID: "b", Type: pages.TypeBackCover},
	})
	payload, err := emagsync.EncodeSnapshot(saved)
	require.NoError(t, err)
	first := s.PutEMag(9, payload)
	s.PutEMag(9, `{"pages":[]}`)

	coll := pages.NewCollection()
	res, err := newAdapter(s).LoadOrCreate(ctx, 9, coll)
	require.NoError(t, err)
	assert.Equal(t, first, res.EMagID)
	assert.True(t, res.Loaded)
	assert.Equal(t, 0, s.CallCount("create"))
	assert.Equal(t, triples(saved), triples(coll.Pages()))
	assert.Equal(t, 0, coll.CurrentPageIndex())
}

func TestLoadOrCreate_MalformedPayloadKeepsMemory(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	id := s.PutEMag(3, `{"pages": [`)

	coll := pages.NewCollection()
	coll.AddPage()
	before := coll.Snapshot()

	res, err := newAdapter(s).LoadOrCreate(ctx, 3, coll)
	require.Error(t, err)
	assert.ErrorIs(t, err, emagsync.ErrMalformedPayload)
	assert.Equal(t, id, res.EMagID)
	assert.Equal(t, before, coll.Snapshot())
	assert.Equal(t, 0, s.CallCount("create"))
}

func TestLoadOrCreate_InvalidContentIsMalformed(t *testing.T) {
	s := testutil.NewMemoryStore()
	s.PutEMag(3, `{"pages":[{"id":"a","type":"cover","content":{"type":"page"}}]}`)

	_, err := newAdapter(s).LoadOrCreate(context.Background(), 3, pages.NewCollection())
	assert.ErrorIs(t, err, emagsync.ErrMalformedPayload)
}

func TestLoadOrCreate_EmptyPagesKeepsMemory(t *testing.T) {
	s := testutil.NewMemoryStore()
	s.PutEMag(4, `{"pages":[]}`)
	coll := pages.NewCollection()
	before := coll.Snapshot()

	res, err := newAdapter(s).LoadOrCreate(context.Background(), 4, coll)
	require.NoError(t, err)
	assert.False(t, res.Loaded)
	assert.Equal(t, before, coll.Snapshot())
}

func TestLoadOrCreate_StoreErrors(t *testing.T) {
	boom := errors.New("boom")

	s := testutil.NewMemoryStore()
	s.FailFind = boom
	coll := pages.NewCollection()
	before := coll.Snapshot()
	_, err := newAdapter(s).LoadOrCreate(context.Background(), 1, coll)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, coll.Snapshot())

	s = testutil.NewMemoryStore()
	s.FailCreate = boom
	_, err = newAdapter(s).LoadOrCreate(context.Background(), 1, coll)
	assert.ErrorIs(t, err, boom)
}

func TestSave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	a := newAdapter(s)

	coll := pages.NewCollection()
	res, err := a.LoadOrCreate(ctx, 11, coll)
	require.NoError(t, err)

	coll.AddPage()
	coll.UpdateCurrentPageContent(block.NewPage().Append(block.NewNode(block.TypeText).WithValue("content", "new")))
	saved := coll.Pages()

	report, err := a.Save(ctx, res.EMagID, saved)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, []int{1, 2, 3, 4}, report.Created)
	assert.Empty(t, report.Updated)

	fresh := pages.NewCollection()
	res2, err := a.LoadOrCreate(ctx, 11, fresh)
	require.NoError(t, err)
	assert.Equal(t, res.EMagID, res2.EMagID)
	assert.Equal(t, triples(saved), triples(fresh.Pages()))
	assert.Equal(t, "new", fresh.Pages()[2].Content.Children[0].String("content"))

	records := s.Records(res.EMagID)
	require.Len(t, records, 4)
	for i, r := range records {
		assert.Equal(t, i+1, r.PageNumber)
		assert.Equal(t, string(saved[i].Type), r.PageType)
		var content block.Node
		require.NoError(t, json.Unmarshal([]byte(r.PageData), &content))
		assert.Equal(t, "page", content.Type)
	}
}

func TestSave_UpdatesExistingRecordsAndRemovesTrailing(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	a := newAdapter(s)
	coll := pages.NewCollection()
	res, err := a.LoadOrCreate(ctx, 5, coll)
	require.NoError(t, err)

	coll.AddPage()
	coll.AddPage()
	_, err = a.Save(ctx, res.EMagID, coll.Pages())
	require.NoError(t, err)
	require.Len(t, s.Records(res.EMagID), 5)

	require.Equal(t, pages.DeleteOK, coll.DeletePage(1))
	report, err := a.Save(ctx, res.EMagID, coll.Pages())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, report.Updated)
	assert.Empty(t, report.Created)
	assert.Equal(t, int64(1), report.Removed)

	records := s.Records(res.EMagID)
	require.Len(t, records, 4)
	assert.Equal(t, string(pages.TypeBackCover), records[3].PageType)
}

func TestSave_PrimaryFailureShortCircuits(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	a := newAdapter(s)
	coll := pages.NewCollection()
	res, err := a.LoadOrCreate(ctx, 5, coll)
	require.NoError(t, err)

	boom := errors.New("update failed")
	s.FailUpdate = boom
	_, err = a.Save(ctx, res.EMagID, coll.Pages())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.CallCount("list"))
	assert.Equal(t, 0, s.CallCount("create_page"))
	assert.Empty(t, s.Records(res.EMagID))
}

func TestSave_PageFailuresAreReported(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	a := newAdapter(s)
	coll := pages.NewCollection()
	res, err := a.LoadOrCreate(ctx, 5, coll)
	require.NoError(t, err)

	s.FailPage[2] = -1
	s.FailPage[3] = 1 // succeeds on retry

	report, err := a.Save(ctx, res.EMagID, coll.Pages())
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []int{2}, report.Stale())
	assert.Equal(t, []int{1, 3}, report.Created)
	require.Len(t, report.Failed, 1)
	assert.Error(t, report.Failed[0].Err)

	delete(s.FailPage, 2)
	resync := a.ResyncPages(ctx, res.EMagID, coll.Pages(), report.Stale())
	assert.True(t, resync.OK())
	assert.Equal(t, []int{2}, resync.Created)
	assert.Len(t, s.Records(res.EMagID), 3)
}

func TestSave_CancelledAfterEMagUpdate(t *testing.T) {
	s := testutil.NewMemoryStore()
	a := newAdapter(s)
	coll := pages.NewCollection()
	res, err := a.LoadOrCreate(context.Background(), 5, coll)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coll.UpdateCurrentPageContent(block.NewPage().Append(block.NewNode(block.TypeText).WithValue("content", "<p>Written</p>")))
	report, err := a.Save(ctx, res.EMagID, coll.Pages())
	require.NoError(t, err, "the eMag record was written")
	assert.Equal(t, []int{1, 2, 3}, report.Stale())
	for _, f := range report.Failed {
		assert.ErrorIs(t, f.Err, context.Canceled)
	}

	e, ok := s.EMag(res.EMagID)
	require.True(t, ok)
	assert.Contains(t, e.HTMLData, "Written")
	assert.Empty(t, s.Records(res.EMagID))
}

func TestReconcileAll_LeavesEMagAlone(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	a := newAdapter(s)
	coll := pages.NewCollection()
	res, err := a.LoadOrCreate(ctx, 5, coll)
	require.NoError(t, err)
	_, err = a.Save(ctx, res.EMagID, coll.Pages())
	require.NoError(t, err)
	updates := s.CallCount("update")

	pp := coll.Pages()[:2]
	report := a.ReconcileAll(ctx, res.EMagID, pp)
	assert.True(t, report.OK())
	assert.Equal(t, int64(1), report.Removed)
	assert.Len(t, s.Records(res.EMagID), 2)
	assert.Equal(t, updates, s.CallCount("update"))
}

func TestSave_ListFailureMarksAllStale(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemoryStore()
	a := newAdapter(s)
	coll := pages.NewCollection()
	res, err := a.LoadOrCreate(ctx, 5, coll)
	require.NoError(t, err)

	s.FailList = errors.New("list failed")
	report, err := a.Save(ctx, res.EMagID, coll.Pages())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, report.Stale())
	assert.Error(t, report.RemoveErr)
	assert.Equal(t, 0, s.CallCount("delete_pages"))
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	pp := pages.DefaultPages(nil)
	data, err := emagsync.EncodeSnapshot(pp)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	first := raw["pages"].([]any)[0].(map[string]any)
	for _, key := range []string{"id", "name", "content", "order", "type"} {
		assert.Contains(t, first, key)
	}

	empty, err := emagsync.EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pages":[]}`, empty)
}
