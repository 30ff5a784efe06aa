// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const createAPIToken = `-- name: CreateAPIToken :one
INSERT INTO api_tokens (name, token_hash, token_prefix, role, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, name, token_hash, token_prefix, role, is_active, last_used_at, created_at
`

type CreateAPITokenParams struct {
	Name        string    `json:"name"`
	TokenHash   string    `json:"token_hash"`
	TokenPrefix string    `json:"token_prefix"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (q *Queries) CreateAPIToken(ctx context.Context, arg CreateAPITokenParams) (ApiToken, error) {
	row := q.db.QueryRowContext(ctx, createAPIToken,
		arg.Name,
		arg.TokenHash,
		arg.TokenPrefix,
		arg.Role,
		arg.IsActive,
		arg.CreatedAt,
	)
	var i ApiToken
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.TokenHash,
		&i.TokenPrefix,
		&i.Role,
		&i.IsActive,
		&i.LastUsedAt,
		&i.CreatedAt,
	)
	return i, err
}

const getAPITokenByHash = `-- name: GetAPITokenByHash :one
SELECT id, name, token_hash, token_prefix, role, is_active, last_used_at, created_at FROM api_tokens
WHERE token_hash = ? AND is_active = 1
`

func (q *Queries) GetAPITokenByHash(ctx context.Context, tokenHash string) (ApiToken, error) {
	row := q.db.QueryRowContext(ctx, getAPITokenByHash, tokenHash)
	var i ApiToken
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.TokenHash,
		&i.TokenPrefix,
		&i.Role,
		&i.IsActive,
		&i.LastUsedAt,
		&i.CreatedAt,
	)
	return i, err
}

const updateAPITokenLastUsed = `-- name: UpdateAPITokenLastUsed :exec
UPDATE api_tokens SET last_used_at = ? WHERE id = ?
`

type UpdateAPITokenLastUsedParams struct {
	LastUsedAt sql.NullTime `json:"last_used_at"`
	ID         int64        `json:"id"`
}

func (q *Queries) UpdateAPITokenLastUsed(ctx context.Context, arg UpdateAPITokenLastUsedParams) error {
	_, err := q.db.ExecContext(ctx, updateAPITokenLastUsed, arg.LastUsedAt, arg.ID)
	return err
}

const countAPITokens = `-- name: CountAPITokens :one
SELECT COUNT(*) FROM api_tokens
`

func (q *Queries) CountAPITokens(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAPITokens)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listAPITokens = `-- name: ListAPITokens :many
SELECT id, name, token_hash, token_prefix, role, is_active, last_used_at, created_at FROM api_tokens
ORDER BY id
`

func (q *Queries) ListAPITokens(ctx context.Context) ([]ApiToken, error) {
	rows, err := q.db.QueryContext(ctx, listAPITokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ApiToken
	for rows.Next() {
		var i ApiToken
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.TokenHash,
			&i.TokenPrefix,
			&i.Role,
			&i.IsActive,
			&i.LastUsedAt,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deactivateAPIToken = `-- name: DeactivateAPIToken :execrows
UPDATE api_tokens SET is_active = 0 WHERE id = ?
`

func (q *Queries) DeactivateAPIToken(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deactivateAPIToken, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
