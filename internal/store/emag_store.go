// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/ocms-emag/internal/emagsync"
)

// EMagStore persists eMags and their page records in the local database.
type EMagStore struct {
	q   *Queries
	now func() time.Time
}

var _ emagsync.Store = (*EMagStore)(nil)

// NewEMagStore creates an EMagStore on top of db.
func NewEMagStore(db DBTX) *EMagStore {
	return &EMagStore{q: New(db), now: time.Now}
}

// FindEMags returns all eMags attached to a content version, oldest first.
func (s *EMagStore) FindEMags(ctx context.Context, contentVersionID int64) ([]emagsync.EMag, error) {
	rows, err := s.q.ListEmagsByContentVersion(ctx, contentVersionID)
	if err != nil {
		return nil, fmt.Errorf("listing eMags: %w", err)
	}
	out := make([]emagsync.EMag, 0, len(rows))
	for _, r := range rows {
		out = append(out, emagFromRow(r))
	}
	return out, nil
}

// GetEMag returns a single eMag by ID.
func (s *EMagStore) GetEMag(ctx context.Context, id int64) (emagsync.EMag, error) {
	r, err := s.q.GetEmag(ctx, id)
	if err != nil {
		return emagsync.EMag{}, fmt.Errorf("getting eMag %d: %w", id, err)
	}
	return emagFromRow(r), nil
}

func (s *EMagStore) CreateEMag(ctx context.Context, contentVersionID int64, htmlData string) (emagsync.EMag, error) {
	now := s.now()
	r, err := s.q.CreateEmag(ctx, CreateEmagParams{
		ContentVersionID: contentVersionID,
		HtmlData:         htmlData,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return emagsync.EMag{}, fmt.Errorf("creating eMag: %w", err)
	}
	return emagFromRow(r), nil
}

func (s *EMagStore) UpdateEMag(ctx context.Context, id int64, htmlData string) error {
	n, err := s.q.UpdateEmagHtmlData(ctx, UpdateEmagHtmlDataParams{
		HtmlData:  htmlData,
		UpdatedAt: s.now(),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("updating eMag %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating eMag %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (s *EMagStore) ListPageRecords(ctx context.Context, emagID int64) ([]emagsync.PageRecord, error) {
	rows, err := s.q.ListEmagPages(ctx, emagID)
	if err != nil {
		return nil, fmt.Errorf("listing page records: %w", err)
	}
	out := make([]emagsync.PageRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, pageRecordFromRow(r))
	}
	return out, nil
}

func (s *EMagStore) CreatePageRecord(ctx context.Context, rec emagsync.PageRecord) (emagsync.PageRecord, error) {
	now := s.now()
	r, err := s.q.CreateEmagPage(ctx, CreateEmagPageParams{
		EmagID:     rec.EMagID,
		PageNumber: int64(rec.PageNumber),
		PageType:   rec.PageType,
		PageData:   rec.PageData,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return emagsync.PageRecord{}, fmt.Errorf("creating page record %d: %w", rec.PageNumber, err)
	}
	return pageRecordFromRow(r), nil
}

func (s *EMagStore) UpdatePageRecord(ctx context.Context, rec emagsync.PageRecord) error {
	n, err := s.q.UpdateEmagPage(ctx, UpdateEmagPageParams{
		PageType:  rec.PageType,
		PageData:  rec.PageData,
		UpdatedAt: s.now(),
		ID:        rec.ID,
	})
	if err != nil {
		return fmt.Errorf("updating page record %d: %w", rec.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating page record %d: %w", rec.ID, sql.ErrNoRows)
	}
	return nil
}

func (s *EMagStore) DeletePageRecordsAfter(ctx context.Context, emagID int64, pageNumber int) (int64, error) {
	n, err := s.q.DeleteEmagPagesAfter(ctx, DeleteEmagPagesAfterParams{
		EmagID:     emagID,
		PageNumber: int64(pageNumber),
	})
	if err != nil {
		return 0, fmt.Errorf("deleting page records after %d: %w", pageNumber, err)
	}
	return n, nil
}

func emagFromRow(r Emag) emagsync.EMag {
	return emagsync.EMag{
		ID:               r.ID,
		ContentVersionID: r.ContentVersionID,
		HTMLData:         r.HtmlData,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func pageRecordFromRow(r EmagPage) emagsync.PageRecord {
	return emagsync.PageRecord{
		ID:         r.ID,
		EMagID:     r.EmagID,
		PageNumber: int(r.PageNumber),
		PageType:   r.PageType,
		PageData:   r.PageData,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
