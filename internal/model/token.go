// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application.
package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"
)

// APIToken is an access token bound to an editorial role.
type APIToken struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	TokenHash   string    `json:"-"` // Never expose hash in JSON
	TokenPrefix string    `json:"token_prefix"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerateToken generates a new random token.
// Returns the raw token (to show once) and its prefix.
func GenerateToken() (rawToken string, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	rawToken = base64.URLEncoding.EncodeToString(buf)
	prefix = rawToken[:8]
	return rawToken, prefix, nil
}

// HashToken creates a SHA-256 hash of a token for storage.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// TokenPrefix returns the display prefix of a raw token.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
