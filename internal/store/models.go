// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type Emag struct {
	ID               int64     `json:"id"`
	ContentVersionID int64     `json:"content_version_id"`
	HtmlData         string    `json:"html_data"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type EmagPage struct {
	ID         int64     `json:"id"`
	EmagID     int64     `json:"emag_id"`
	PageNumber int64     `json:"page_number"`
	PageType   string    `json:"page_type"`
	PageData   string    `json:"page_data"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Pages     string    `json:"pages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ApiToken struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	TokenHash   string       `json:"token_hash"`
	TokenPrefix string       `json:"token_prefix"`
	Role        string       `json:"role"`
	IsActive    bool         `json:"is_active"`
	LastUsedAt  sql.NullTime `json:"last_used_at"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
