// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package remote talks to the eMag resource API of another instance and
// exposes it as an emagsync.Store.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"

	"github.com/olegiv/ocms-emag/internal/emagsync"
)

// ErrNotFound is matched by errors for 404 responses.
var ErrNotFound = errors.New("remote resource not found")

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote api: status %d", e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Retries is the number of extra attempts for transport errors and 5xx.
	Retries    uint
	RetryDelay time.Duration
}

// Client is an emagsync.Store backed by a remote eMag API.
type Client struct {
	http       *resty.Client
	retries    uint
	retryDelay time.Duration
}

var _ emagsync.Store = (*Client)(nil)

// New creates a Client.
func New(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "emag-sync")
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Client{http: c, retries: cfg.Retries, retryDelay: delay}
}

type createEMagBody struct {
	ContentVersionID int64  `json:"content_version"`
	HTMLData         string `json:"htmlData"`
}

type updateEMagBody struct {
	HTMLData string `json:"htmlData"`
}

type removedBody struct {
	Removed int64 `json:"removed"`
}

// FindEMags lists the eMags of a content version. A 404 means none.
func (c *Client) FindEMags(ctx context.Context, contentVersionID int64) ([]emagsync.EMag, error) {
	var out envelope[[]emagsync.EMag]
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("content_version", strconv.FormatInt(contentVersionID, 10)).
			SetResult(&out).
			Get("/api/v1/emags")
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding eMags: %w", err)
	}
	return out.Data, nil
}

func (c *Client) CreateEMag(ctx context.Context, contentVersionID int64, htmlData string) (emagsync.EMag, error) {
	var out envelope[emagsync.EMag]
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(createEMagBody{ContentVersionID: contentVersionID, HTMLData: htmlData}).
			SetResult(&out).
			Post("/api/v1/emags")
	})
	if err != nil {
		return emagsync.EMag{}, fmt.Errorf("creating eMag: %w", err)
	}
	return out.Data, nil
}

func (c *Client) UpdateEMag(ctx context.Context, id int64, htmlData string) error {
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.FormatInt(id, 10)).
			SetBody(updateEMagBody{HTMLData: htmlData}).
			Put("/api/v1/emags/{id}")
	})
	if err != nil {
		return fmt.Errorf("updating eMag %d: %w", id, err)
	}
	return nil
}

func (c *Client) ListPageRecords(ctx context.Context, emagID int64) ([]emagsync.PageRecord, error) {
	var out envelope[[]emagsync.PageRecord]
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.FormatInt(emagID, 10)).
			SetResult(&out).
			Get("/api/v1/emags/{id}/pages")
	})
	if err != nil {
		return nil, fmt.Errorf("listing page records: %w", err)
	}
	return out.Data, nil
}

func (c *Client) CreatePageRecord(ctx context.Context, rec emagsync.PageRecord) (emagsync.PageRecord, error) {
	var out envelope[emagsync.PageRecord]
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.FormatInt(rec.EMagID, 10)).
			SetBody(rec).
			SetResult(&out).
			Post("/api/v1/emags/{id}/pages")
	})
	if err != nil {
		return emagsync.PageRecord{}, fmt.Errorf("creating page record %d: %w", rec.PageNumber, err)
	}
	return out.Data, nil
}

func (c *Client) UpdatePageRecord(ctx context.Context, rec emagsync.PageRecord) error {
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.FormatInt(rec.ID, 10)).
			SetBody(rec).
			Put("/api/v1/emag-pages/{id}")
	})
	if err != nil {
		return fmt.Errorf("updating page record %d: %w", rec.ID, err)
	}
	return nil
}

func (c *Client) DeletePageRecordsAfter(ctx context.Context, emagID int64, pageNumber int) (int64, error) {
	var out envelope[removedBody]
	err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.FormatInt(emagID, 10)).
			SetQueryParam("after", strconv.Itoa(pageNumber)).
			SetResult(&out).
			Delete("/api/v1/emags/{id}/pages")
	})
	if err != nil {
		return 0, fmt.Errorf("deleting page records after %d: %w", pageNumber, err)
	}
	return out.Data.Removed, nil
}

// do runs send with retries. Transport errors, 429 and 5xx are retried;
// other API errors fail at once.
func (c *Client) do(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) error {
	return retry.Do(
		func() error {
			var apiErr errorEnvelope
			resp, err := send(c.http.R().SetContext(ctx).SetError(&apiErr))
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				return err
			}
			if !resp.IsError() {
				return nil
			}
			e := &APIError{Status: resp.StatusCode(), Code: apiErr.Error.Code, Message: apiErr.Error.Message}
			if !e.Retryable() {
				return retry.Unrecoverable(e)
			}
			return e
		},
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
