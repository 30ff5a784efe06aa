// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createEmag = `-- name: CreateEmag :one
INSERT INTO emags (content_version_id, html_data, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING id, content_version_id, html_data, created_at, updated_at
`

type CreateEmagParams struct {
	ContentVersionID int64     `json:"content_version_id"`
	HtmlData         string    `json:"html_data"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (q *Queries) CreateEmag(ctx context.Context, arg CreateEmagParams) (Emag, error) {
	row := q.db.QueryRowContext(ctx, createEmag,
		arg.ContentVersionID,
		arg.HtmlData,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Emag
	err := row.Scan(
		&i.ID,
		&i.ContentVersionID,
		&i.HtmlData,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getEmag = `-- name: GetEmag :one
SELECT id, content_version_id, html_data, created_at, updated_at FROM emags
WHERE id = ?
`

func (q *Queries) GetEmag(ctx context.Context, id int64) (Emag, error) {
	row := q.db.QueryRowContext(ctx, getEmag, id)
	var i Emag
	err := row.Scan(
		&i.ID,
		&i.ContentVersionID,
		&i.HtmlData,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listEmagsByContentVersion = `-- name: ListEmagsByContentVersion :many
SELECT id, content_version_id, html_data, created_at, updated_at FROM emags
WHERE content_version_id = ?
ORDER BY id
`

func (q *Queries) ListEmagsByContentVersion(ctx context.Context, contentVersionID int64) ([]Emag, error) {
	rows, err := q.db.QueryContext(ctx, listEmagsByContentVersion, contentVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Emag
	for rows.Next() {
		var i Emag
		if err := rows.Scan(
			&i.ID,
			&i.ContentVersionID,
			&i.HtmlData,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateEmagHtmlData = `-- name: UpdateEmagHtmlData :execrows
UPDATE emags SET html_data = ?, updated_at = ?
WHERE id = ?
`

type UpdateEmagHtmlDataParams struct {
	HtmlData  string    `json:"html_data"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        int64     `json:"id"`
}

func (q *Queries) UpdateEmagHtmlData(ctx context.Context, arg UpdateEmagHtmlDataParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateEmagHtmlData, arg.HtmlData, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listEmagPages = `-- name: ListEmagPages :many
SELECT id, emag_id, page_number, page_type, page_data, created_at, updated_at FROM emag_pages
WHERE emag_id = ?
ORDER BY page_number
`

func (q *Queries) ListEmagPages(ctx context.Context, emagID int64) ([]EmagPage, error) {
	rows, err := q.db.QueryContext(ctx, listEmagPages, emagID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EmagPage
	for rows.Next() {
		var i EmagPage
		if err := rows.Scan(
			&i.ID,
			&i.EmagID,
			&i.PageNumber,
			&i.PageType,
			&i.PageData,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getEmagPage = `-- name: GetEmagPage :one
SELECT id, emag_id, page_number, page_type, page_data, created_at, updated_at FROM emag_pages
WHERE id = ?
`

func (q *Queries) GetEmagPage(ctx context.Context, id int64) (EmagPage, error) {
	row := q.db.QueryRowContext(ctx, getEmagPage, id)
	var i EmagPage
	err := row.Scan(
		&i.ID,
		&i.EmagID,
		&i.PageNumber,
		&i.PageType,
		&i.PageData,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createEmagPage = `-- name: CreateEmagPage :one
INSERT INTO emag_pages (emag_id, page_number, page_type, page_data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, emag_id, page_number, page_type, page_data, created_at, updated_at
`

type CreateEmagPageParams struct {
	EmagID     int64     `json:"emag_id"`
	PageNumber int64     `json:"page_number"`
	PageType   string    `json:"page_type"`
	PageData   string    `json:"page_data"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (q *Queries) CreateEmagPage(ctx context.Context, arg CreateEmagPageParams) (EmagPage, error) {
	row := q.db.QueryRowContext(ctx, createEmagPage,
		arg.EmagID,
		arg.PageNumber,
		arg.PageType,
		arg.PageData,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i EmagPage
	err := row.Scan(
		&i.ID,
		&i.EmagID,
		&i.PageNumber,
		&i.PageType,
		&i.PageData,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateEmagPage = `-- name: UpdateEmagPage :execrows
UPDATE emag_pages SET page_type = ?, page_data = ?, updated_at = ?
WHERE id = ?
`

type UpdateEmagPageParams struct {
	PageType  string    `json:"page_type"`
	PageData  string    `json:"page_data"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        int64     `json:"id"`
}

func (q *Queries) UpdateEmagPage(ctx context.Context, arg UpdateEmagPageParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateEmagPage,
		arg.PageType,
		arg.PageData,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEmagPagesAfter = `-- name: DeleteEmagPagesAfter :execrows
DELETE FROM emag_pages
WHERE emag_id = ? AND page_number > ?
`

type DeleteEmagPagesAfterParams struct {
	EmagID     int64 `json:"emag_id"`
	PageNumber int64 `json:"page_number"`
}

func (q *Queries) DeleteEmagPagesAfter(ctx context.Context, arg DeleteEmagPagesAfterParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEmagPagesAfter, arg.EmagID, arg.PageNumber)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
