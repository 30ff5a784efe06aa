// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Editorial roles.
const (
	RoleAuthor   = "author"
	RoleEditor   = "editor"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

// Pages the permission check is keyed by.
const (
	PageEMagEditor = "emag_editor"
	PageTemplates  = "templates"
	PageEMagStore  = "emag_store"
)

// Actions checked against a page.
const (
	ActionView   = "view"
	ActionEdit   = "edit"
	ActionSave   = "save"
	ActionExport = "export"
	ActionDelete = "delete"
)

// AllRoles returns every editorial role.
func AllRoles() []string {
	return []string{RoleAuthor, RoleEditor, RoleReviewer, RoleAdmin}
}

// IsValidRole reports whether role is a known editorial role.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
