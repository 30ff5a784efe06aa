// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for token authentication,
// permission checks and rate limiting.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/ocms-emag/internal/authz"
	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyToken is the context key for the authenticated API token.
const ContextKeyToken ContextKey = "api_token"

// APIError represents a JSON error response for the API.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// TokenStore resolves hashed API tokens.
type TokenStore interface {
	GetAPITokenByHash(ctx context.Context, tokenHash string) (store.ApiToken, error)
	UpdateAPITokenLastUsed(ctx context.Context, arg store.UpdateAPITokenLastUsedParams) error
}

// rawToken extracts the token from the Authorization header or, failing
// that, from the token query parameter.
func rawToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return "", false
		}
		return strings.TrimSpace(tok), true
	}
	return r.URL.Query().Get("token"), true
}

// TokenAuth creates middleware that requires a valid, active API token.
func TokenAuth(tokens TokenStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := rawToken(r)
			if !ok {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>", nil)
				return
			}
			if raw == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Missing API token", nil)
				return
			}

			tok, err := tokens.GetAPITokenByHash(r.Context(), model.HashToken(raw))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					logger.Warn("rejected API token", "category", model.EventCategoryAuth,
						"prefix", model.TokenPrefix(raw), "path", r.URL.Path)
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid API token", nil)
					return
				}
				logger.Error("failed to validate API token", "error", err)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to validate API token", nil)
				return
			}

			touchToken(tokens, tok.ID)
			ctx := context.WithValue(r.Context(), ContextKeyToken, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// touchToken updates the last used timestamp in a background goroutine.
func touchToken(tokens TokenStore, id int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tokens.UpdateAPITokenLastUsed(ctx, store.UpdateAPITokenLastUsedParams{
			LastUsedAt: sql.NullTime{Time: time.Now(), Valid: true},
			ID:         id,
		})
	}()
}

// GetToken retrieves the authenticated token from the request context.
func GetToken(r *http.Request) *store.ApiToken {
	tok, ok := r.Context().Value(ContextKeyToken).(store.ApiToken)
	if !ok {
		return nil
	}
	return &tok
}

// RequirePermission creates middleware that asks checker whether the token's
// role may perform action on page. It must run after TokenAuth.
func RequirePermission(checker authz.Checker, page, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := GetToken(r)
			if tok == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "API token required", nil)
				return
			}
			if !checker.Allowed(r.Context(), tok.Role, page, action) {
				WriteAPIError(w, http.StatusForbidden, "forbidden",
					"Role "+tok.Role+" may not "+action+" "+page, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
