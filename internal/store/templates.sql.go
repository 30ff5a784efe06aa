// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createTemplate = `-- name: CreateTemplate :one
INSERT INTO templates (name, subject, content, pages, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, name, subject, content, pages, created_at, updated_at
`

type CreateTemplateParams struct {
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Pages     string    `json:"pages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) CreateTemplate(ctx context.Context, arg CreateTemplateParams) (Template, error) {
	row := q.db.QueryRowContext(ctx, createTemplate,
		arg.Name,
		arg.Subject,
		arg.Content,
		arg.Pages,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanTemplate(row)
}

const getTemplate = `-- name: GetTemplate :one
SELECT id, name, subject, content, pages, created_at, updated_at FROM templates
WHERE id = ?
`

func (q *Queries) GetTemplate(ctx context.Context, id int64) (Template, error) {
	return scanTemplate(q.db.QueryRowContext(ctx, getTemplate, id))
}

const getTemplateByName = `-- name: GetTemplateByName :one
SELECT id, name, subject, content, pages, created_at, updated_at FROM templates
WHERE name = ?
`

func (q *Queries) GetTemplateByName(ctx context.Context, name string) (Template, error) {
	return scanTemplate(q.db.QueryRowContext(ctx, getTemplateByName, name))
}

const listTemplates = `-- name: ListTemplates :many
SELECT id, name, subject, content, pages, created_at, updated_at FROM templates
ORDER BY name
`

func (q *Queries) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := q.db.QueryContext(ctx, listTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Template
	for rows.Next() {
		var i Template
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Subject,
			&i.Content,
			&i.Pages,
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

const updateTemplate = `-- name: UpdateTemplate :execrows
UPDATE templates SET subject = ?, content = ?, pages = ?, updated_at = ?
WHERE id = ?
`

type UpdateTemplateParams struct {
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Pages     string    `json:"pages"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        int64     `json:"id"`
}

func (q *Queries) UpdateTemplate(ctx context.Context, arg UpdateTemplateParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTemplate,
		arg.Subject,
		arg.Content,
		arg.Pages,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (Template, error) {
	var i Template
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Subject,
		&i.Content,
		&i.Pages,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
