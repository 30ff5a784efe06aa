// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestGenerateToken(t *testing.T) {
	raw, prefix, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if len(raw) < 40 {
		t.Errorf("token too short: %d", len(raw))
	}
	if prefix != raw[:8] {
		t.Errorf("prefix = %q, want %q", prefix, raw[:8])
	}
	if TokenPrefix(raw) != prefix {
		t.Errorf("TokenPrefix = %q", TokenPrefix(raw))
	}

	other, _, _ := GenerateToken()
	if other == raw {
		t.Error("two generated tokens are equal")
	}
}

func TestHashToken(t *testing.T) {
	h := HashToken("secret")
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64", len(h))
	}
	if h != HashToken("secret") {
		t.Error("hash is not stable")
	}
	if h == HashToken("secret2") {
		t.Error("different tokens hash equal")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range AllRoles() {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	for _, r := range []string{"", "public", "Admin"} {
		if IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = true", r)
		}
	}
}
