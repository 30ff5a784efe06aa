// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package emagsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/pages"
)

// ErrMalformedPayload is returned when a persisted eMag snapshot cannot be decoded.
var ErrMalformedPayload = errors.New("malformed eMag payload")

// EMag is the persisted snapshot of one multi-page document.
type EMag struct {
	ID               int64     `json:"id"`
	ContentVersionID int64     `json:"content_version"`
	HTMLData         string    `json:"htmlData"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PageRecord is the denormalised per-page copy of an eMag page. PageNumber is
// 1-based.
type PageRecord struct {
	ID         int64     `json:"id"`
	EMagID     int64     `json:"eMag_id"`
	PageNumber int       `json:"page_number"`
	PageType   string    `json:"page_type"`
	PageData   string    `json:"page_data"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the remote persistence the adapter synchronises with.
type Store interface {
	FindEMags(ctx context.Context, contentVersionID int64) ([]EMag, error)
	CreateEMag(ctx context.Context, contentVersionID int64, htmlData string) (EMag, error)
	UpdateEMag(ctx context.Context, id int64, htmlData string) error
	ListPageRecords(ctx context.Context, emagID int64) ([]PageRecord, error)
	CreatePageRecord(ctx context.Context, rec PageRecord) (PageRecord, error)
	UpdatePageRecord(ctx context.Context, rec PageRecord) error
	DeletePageRecordsAfter(ctx context.Context, emagID int64, pageNumber int) (int64, error)
}

// Snapshot is the JSON document stored in EMag.HTMLData.
type Snapshot struct {
	Pages []pages.Page `json:"pages"`
}

// EncodeSnapshot serialises pages into the htmlData payload.
func EncodeSnapshot(pp []pages.Page) (string, error) {
	if pp == nil {
		pp = []pages.Page{}
	}
	data, err := json.Marshal(Snapshot{Pages: pp})
	if err != nil {
		return "", fmt.Errorf("encoding eMag snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses an htmlData payload. Page contents are validated
// structurally; a page without content is accepted and filled in on reindex.
func DecodeSnapshot(htmlData string) ([]pages.Page, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(htmlData), &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	for i, p := range snap.Pages {
		if p.Content == nil {
			continue
		}
		if err := block.Validate(p.Content); err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrMalformedPayload, i+1, err)
		}
	}
	return snap.Pages, nil
}

// pageRecordFor builds the page record for the page at position i.
func pageRecordFor(emagID int64, i int, p pages.Page) (PageRecord, error) {
	data, err := json.Marshal(p.Content)
	if err != nil {
		return PageRecord{}, fmt.Errorf("encoding page %d content: %w", i+1, err)
	}
	return PageRecord{
		EMagID:     emagID,
		PageNumber: i + 1,
		PageType:   string(p.Type),
		PageData:   string(data),
	}, nil
}
