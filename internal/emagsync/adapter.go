// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package emagsync maps an in-memory page collection to and from its
// persisted eMag record and keeps the per-page records in step with it.
package emagsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/pages"
)

// Config tunes page-record reconciliation.
type Config struct {
	// Concurrency caps the number of page records written in parallel.
	Concurrency int
	// Attempts is the number of tries per page record (at least 1).
	Attempts uint
	// RetryDelay is the base backoff delay between attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns the reconciliation defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 8,
		Attempts:    3,
		RetryDelay:  100 * time.Millisecond,
	}
}

// Adapter synchronises page collections with a Store.
type Adapter struct {
	store  Store
	logger *slog.Logger
	cfg    Config
}

// New creates an Adapter.
func New(store Store, logger *slog.Logger, cfg Config) *Adapter {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, logger: logger, cfg: cfg}
}

// LoadResult describes what LoadOrCreate did.
type LoadResult struct {
	EMagID int64 `json:"emag_id"`
	// Created is true when no record existed and a new one was created.
	Created bool `json:"created"`
	// Loaded is true when the stored pages replaced the collection.
	Loaded    bool `json:"loaded"`
	PageCount int  `json:"page_count"`
}

// LoadOrCreate loads the eMag of a content version into coll, or creates the
// record from coll's current pages when none exists. When several records
// exist the first one wins.
//
// A stored payload that cannot be decoded leaves coll untouched and returns
// an error wrapping ErrMalformedPayload together with the record ID, so later
// saves still update the existing record. A payload with no pages also leaves
// coll untouched.
func (a *Adapter) LoadOrCreate(ctx context.Context, contentVersionID int64, coll *pages.Collection) (LoadResult, error) {
	found, err := a.store.FindEMags(ctx, contentVersionID)
	if err != nil {
		return LoadResult{}, fmt.Errorf("finding eMag for content version %d: %w", contentVersionID, err)
	}

	if len(found) > 0 {
		rec := found[0]
		res := LoadResult{EMagID: rec.ID}
		loaded, err := DecodeSnapshot(rec.HTMLData)
		if err != nil {
			a.logger.Warn("stored eMag payload could not be parsed",
				"category", model.EventCategoryEMag,
				"emag_id", rec.ID,
				"content_version", contentVersionID,
				"error", err,
			)
			return res, fmt.Errorf("loading eMag %d: %w", rec.ID, err)
		}
		if len(loaded) > 0 {
			coll.InitializeFromTemplate(pages.Template{Pages: loaded})
			res.Loaded = true
		}
		res.PageCount = coll.Len()
		a.logger.Info("eMag loaded", "emag_id", rec.ID, "content_version", contentVersionID, "pages", res.PageCount, "applied", res.Loaded)
		return res, nil
	}

	initial := coll.Pages()
	if len(initial) == 0 {
		initial = pages.Reindex([]pages.Page{pages.NewPage(pages.TypeContent)})
	}
	payload, err := EncodeSnapshot(initial)
	if err != nil {
		return LoadResult{}, err
	}
	created, err := a.store.CreateEMag(ctx, contentVersionID, payload)
	if err != nil {
		return LoadResult{}, fmt.Errorf("creating eMag for content version %d: %w", contentVersionID, err)
	}
	a.logger.Info("eMag created", "emag_id", created.ID, "content_version", contentVersionID, "pages", len(initial))
	return LoadResult{EMagID: created.ID, Created: true, PageCount: len(initial)}, nil
}

// PageFailure records a page record that could not be written.
type PageFailure struct {
	PageNumber int   `json:"page_number"`
	Err        error `json:"-"`
}

// SaveReport summarises the page-record reconciliation of a save.
type SaveReport struct {
	EMagID  int64         `json:"emag_id"`
	Created []int         `json:"created"`
	Updated []int         `json:"updated"`
	Failed  []PageFailure `json:"failed,omitempty"`
	// Removed counts page records deleted because their page no longer exists.
	Removed   int64 `json:"removed"`
	RemoveErr error `json:"-"`
}

// Stale returns the page numbers whose records could not be written.
func (r SaveReport) Stale() []int {
	out := make([]int, len(r.Failed))
	for i, f := range r.Failed {
		out[i] = f.PageNumber
	}
	return out
}

// OK reports whether every page record is in step with the pages.
func (r SaveReport) OK() bool {
	return len(r.Failed) == 0 && r.RemoveErr == nil
}

// Save writes pages to the eMag record and then reconciles the per-page
// records. A failed eMag update aborts before any page record is touched.
// Page records are written concurrently; individual failures are retried,
// then reported in the SaveReport without failing the save. Records beyond
// the last page are deleted.
func (a *Adapter) Save(ctx context.Context, emagID int64, pp []pages.Page) (SaveReport, error) {
	payload, err := EncodeSnapshot(pp)
	if err != nil {
		return SaveReport{}, err
	}
	if err := a.store.UpdateEMag(ctx, emagID, payload); err != nil {
		return SaveReport{}, fmt.Errorf("updating eMag %d: %w", emagID, err)
	}

	report := a.ReconcileAll(ctx, emagID, pp)
	if !report.OK() {
		a.logger.Warn("eMag saved with stale page records",
			"category", model.EventCategoryEMag,
			"emag_id", emagID,
			"stale_pages", report.Stale(),
			"remove_error", report.RemoveErr,
		)
	}
	return report, nil
}

// ReconcileAll brings every page record in step with pp and deletes records
// beyond the last page. The eMag record itself is left untouched.
func (a *Adapter) ReconcileAll(ctx context.Context, emagID int64, pp []pages.Page) SaveReport {
	report := a.reconcile(ctx, emagID, pp, nil)
	if report.RemoveErr == nil {
		report.Removed, report.RemoveErr = a.removeTrailing(ctx, emagID, len(pp))
	}
	return report
}

// ResyncPages re-runs reconciliation for the given 1-based page numbers only.
func (a *Adapter) ResyncPages(ctx context.Context, emagID int64, pp []pages.Page, numbers []int) SaveReport {
	only := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		only[n] = true
	}
	return a.reconcile(ctx, emagID, pp, only)
}

// reconcile never fails as a whole. A cancelled context leaves the pages it
// did not reach in Failed with the context error.
func (a *Adapter) reconcile(ctx context.Context, emagID int64, pp []pages.Page, only map[int]bool) SaveReport {
	report := SaveReport{EMagID: emagID}

	existing, err := a.store.ListPageRecords(ctx, emagID)
	if err != nil {
		// Without the existing records nothing can be matched; every page is stale.
		for i := range pp {
			if only == nil || only[i+1] {
				report.Failed = append(report.Failed, PageFailure{PageNumber: i + 1, Err: err})
			}
		}
		report.RemoveErr = err
		a.logger.Warn("listing page records failed", "category", model.EventCategoryEMag, "emag_id", emagID, "error", err)
		return report
	}
	byNumber := make(map[int]PageRecord, len(existing))
	for _, rec := range existing {
		if _, dup := byNumber[rec.PageNumber]; !dup {
			byNumber[rec.PageNumber] = rec
		}
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)

	for i, p := range pp {
		number := i + 1
		if only != nil && !only[number] {
			continue
		}
		rec, err := pageRecordFor(emagID, i, p)
		if err != nil {
			mu.Lock()
			report.Failed = append(report.Failed, PageFailure{PageNumber: number, Err: err})
			mu.Unlock()
			continue
		}
		prev, exists := byNumber[number]

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				report.Failed = append(report.Failed, PageFailure{PageNumber: number, Err: err})
				mu.Unlock()
				return nil
			}
			err := a.withRetry(ctx, func() error {
				if exists {
					rec.ID = prev.ID
					return a.store.UpdatePageRecord(ctx, rec)
				}
				_, err := a.store.CreatePageRecord(ctx, rec)
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, PageFailure{PageNumber: number, Err: err})
				a.logger.Warn("page record reconciliation failed",
					"category", model.EventCategoryEMag,
					"emag_id", emagID,
					"page_number", number,
					"error", err,
				)
			case exists:
				report.Updated = append(report.Updated, number)
			default:
				report.Created = append(report.Created, number)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(report.Created)
	sort.Ints(report.Updated)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].PageNumber < report.Failed[j].PageNumber })
	return report
}

func (a *Adapter) removeTrailing(ctx context.Context, emagID int64, pageCount int) (int64, error) {
	n, err := a.store.DeletePageRecordsAfter(ctx, emagID, pageCount)
	if err != nil {
		return 0, fmt.Errorf("removing page records after %d: %w", pageCount, err)
	}
	if n > 0 {
		a.logger.Info("removed page records of deleted pages", "emag_id", emagID, "removed", n)
	}
	return n, nil
}

func (a *Adapter) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(a.cfg.Attempts),
		retry.Delay(a.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
	)
}
