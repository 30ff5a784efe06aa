// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/olegiv/ocms-emag/internal/emagsync"
)

// ErrNotFound is returned by MemoryStore for unknown records.
var ErrNotFound = errors.New("not found")

// MemoryStore is an in-memory emagsync.Store with failure injection.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	emags   map[int64]emagsync.EMag
	records map[int64]emagsync.PageRecord

	// FailFind, FailCreate, FailUpdate, FailList and FailDelete make the
	// matching operation return the error when set.
	FailFind   error
	FailCreate error
	FailUpdate error
	FailList   error
	FailDelete error
	// FailPage makes page record writes for the given page number fail the
	// given number of times before succeeding (-1 fails forever).
	FailPage map[int]int

	Calls map[string]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		emags:    map[int64]emagsync.EMag{},
		records:  map[int64]emagsync.PageRecord{},
		FailPage: map[int]int{},
		Calls:    map[string]int{},
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// FindEMags implements emagsync.Store.
func (s *MemoryStore) FindEMags(_ context.Context, contentVersionID int64) ([]emagsync.EMag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["find"]++
	if s.FailFind != nil {
		return nil, s.FailFind
	}
	var out []emagsync.EMag
	for _, e := range s.emags {
		if e.ContentVersionID == contentVersionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateEMag implements emagsync.Store.
func (s *MemoryStore) CreateEMag(_ context.Context, contentVersionID int64, htmlData string) (emagsync.EMag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["create"]++
	if s.FailCreate != nil {
		return emagsync.EMag{}, s.FailCreate
	}
	now := time.Now()
	e := emagsync.EMag{ID: s.id(), ContentVersionID: contentVersionID, HTMLData: htmlData, CreatedAt: now, UpdatedAt: now}
	s.emags[e.ID] = e
	return e, nil
}

// UpdateEMag implements emagsync.Store.
func (s *MemoryStore) UpdateEMag(_ context.Context, id int64, htmlData string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["update"]++
	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	e, ok := s.emags[id]
	if !ok {
		return ErrNotFound
	}
	e.HTMLData = htmlData
	e.UpdatedAt = time.Now()
	s.emags[id] = e
	return nil
}

// ListPageRecords implements emagsync.Store.
func (s *MemoryStore) ListPageRecords(_ context.Context, emagID int64) ([]emagsync.PageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["list"]++
	if s.FailList != nil {
		return nil, s.FailList
	}
	return s.recordsOf(emagID), nil
}

// CreatePageRecord implements emagsync.Store.
func (s *MemoryStore) CreatePageRecord(_ context.Context, rec emagsync.PageRecord) (emagsync.PageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["create_page"]++
	if err := s.pageFailure(rec.PageNumber); err != nil {
		return emagsync.PageRecord{}, err
	}
	rec.ID = s.id()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.records[rec.ID] = rec
	return rec, nil
}

// UpdatePageRecord implements emagsync.Store.
func (s *MemoryStore) UpdatePageRecord(_ context.Context, rec emagsync.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["update_page"]++
	if err := s.pageFailure(rec.PageNumber); err != nil {
		return err
	}
	prev, ok := s.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = time.Now()
	s.records[rec.ID] = rec
	return nil
}

// DeletePageRecordsAfter implements emagsync.Store.
func (s *MemoryStore) DeletePageRecordsAfter(_ context.Context, emagID int64, pageNumber int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["delete_pages"]++
	if s.FailDelete != nil {
		return 0, s.FailDelete
	}
	var n int64
	for id, r := range s.records {
		if r.EMagID == emagID && r.PageNumber > pageNumber {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// EMag returns a stored eMag.
func (s *MemoryStore) EMag(id int64) (emagsync.EMag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emags[id]
	return e, ok
}

// PutEMag stores an eMag as-is and returns its ID.
func (s *MemoryStore) PutEMag(contentVersionID int64, htmlData string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := emagsync.EMag{ID: s.id(), ContentVersionID: contentVersionID, HTMLData: htmlData}
	s.emags[e.ID] = e
	return e.ID
}

// Records returns the page records of an eMag ordered by page number.
func (s *MemoryStore) Records(emagID int64) []emagsync.PageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordsOf(emagID)
}

// CallCount returns how often an operation was called.
func (s *MemoryStore) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[op]
}

func (s *MemoryStore) recordsOf(emagID int64) []emagsync.PageRecord {
	var out []emagsync.PageRecord
	for _, r := range s.records {
		if r.EMagID == emagID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out
}

func (s *MemoryStore) pageFailure(number int) error {
	left, ok := s.FailPage[number]
	if !ok || left == 0 {
		return nil
	}
	if left > 0 {
		s.FailPage[number] = left - 1
	}
	return errors.New("injected page failure")
}
