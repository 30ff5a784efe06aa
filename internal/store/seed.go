// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-emag/internal/model"
)

// ErrInvalidRole is returned when a token is issued for an unknown role.
var ErrInvalidRole = errors.New("invalid role")

// BootstrapTokenName names the admin token created on first start.
const BootstrapTokenName = "bootstrap"

// SeedAdminToken stores rawToken as an admin token when no tokens exist yet.
// It is a no-op on a database that already holds tokens or when rawToken is empty.
func SeedAdminToken(ctx context.Context, db *sql.DB, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	queries := New(db)

	count, err := queries.CountAPITokens(ctx)
	if err != nil {
		return fmt.Errorf("counting api tokens: %w", err)
	}
	if count > 0 {
		slog.Info("api tokens already exist, skipping bootstrap token")
		return nil
	}

	tok, err := queries.CreateAPIToken(ctx, CreateAPITokenParams{
		Name:        BootstrapTokenName,
		TokenHash:   model.HashToken(rawToken),
		TokenPrefix: model.TokenPrefix(rawToken),
		Role:        model.RoleAdmin,
		IsActive:    true,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("creating bootstrap token: %w", err)
	}

	slog.Info("bootstrap admin token created", "id", tok.ID, "prefix", tok.TokenPrefix)
	return nil
}

// IssueAPIToken creates an active token for role and returns the raw token.
// The raw value is not stored and cannot be recovered later.
func IssueAPIToken(ctx context.Context, db DBTX, name, role string) (string, ApiToken, error) {
	if !model.IsValidRole(role) {
		return "", ApiToken{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	raw, prefix, err := model.GenerateToken()
	if err != nil {
		return "", ApiToken{}, fmt.Errorf("generating token: %w", err)
	}
	tok, err := New(db).CreateAPIToken(ctx, CreateAPITokenParams{
		Name:        name,
		TokenHash:   model.HashToken(raw),
		TokenPrefix: prefix,
		Role:        role,
		IsActive:    true,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return "", ApiToken{}, fmt.Errorf("creating token %q: %w", name, err)
	}
	return raw, tok, nil
}
