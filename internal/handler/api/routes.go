// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-emag/internal/authz"
	"github.com/olegiv/ocms-emag/internal/middleware"
	"github.com/olegiv/ocms-emag/internal/model"
)

// RouteConfig configures authentication and throttling of the API.
type RouteConfig struct {
	Tokens    middleware.TokenStore
	Checker   authz.Checker
	RateLimit float64
	Burst     int
	Logger    *slog.Logger
}

// Routes returns the /api/v1 router. Every route requires a token whose role
// passes the permission check for the route's page and action.
func (h *Handler) Routes(cfg RouteConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = h.logger
	}
	can := func(page, action string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(cfg.Checker, page, action)
	}

	r := chi.NewRouter()
	r.Use(middleware.TokenAuth(cfg.Tokens, logger))
	if cfg.RateLimit > 0 {
		r.Use(middleware.TokenRateLimit(cfg.RateLimit, cfg.Burst, logger))
	}

	r.Route("/editor", func(r chi.Router) {
		r.With(can(model.PageEMagEditor, model.ActionView)).Post("/sessions", h.OpenSession)
		r.With(can(model.PageEMagEditor, model.ActionView)).Get("/sessions", h.ListSessions)

		r.Route("/{cv}", func(r chi.Router) {
			r.With(can(model.PageEMagEditor, model.ActionView)).Get("/", h.GetSession)
			r.With(can(model.PageEMagEditor, model.ActionView)).Delete("/", h.CloseSession)

			r.Group(func(r chi.Router) {
				r.Use(can(model.PageEMagEditor, model.ActionEdit))
				r.Put("/pages", h.SetPages)
				r.Post("/pages", h.AddPage)
				r.Patch("/pages/{index}", h.RenamePage)
				r.Put("/current", h.SetCurrentPage)
				r.Put("/current/content", h.UpdateCurrentContent)
				r.Post("/template", h.ApplyTemplate)
				r.Post("/reset", h.ResetPages)
			})

			r.With(can(model.PageEMagEditor, model.ActionDelete)).Delete("/pages/{index}", h.DeletePage)
			r.With(can(model.PageEMagEditor, model.ActionSave)).Post("/save", h.Save)
			r.With(can(model.PageEMagEditor, model.ActionExport)).Post("/export", h.Export)
		})
	})

	r.Route("/templates", func(r chi.Router) {
		r.Use(can(model.PageTemplates, model.ActionView))
		r.Get("/", h.ListTemplates)
		r.Get("/{id}", h.GetTemplate)
	})

	if h.emags != nil {
		r.Group(func(r chi.Router) {
			r.With(can(model.PageEMagStore, model.ActionView)).Get("/emags", h.ListEMags)
			r.With(can(model.PageEMagStore, model.ActionSave)).Post("/emags", h.CreateEMag)
			r.With(can(model.PageEMagStore, model.ActionView)).Get("/emags/{id}", h.GetEMag)
			r.With(can(model.PageEMagStore, model.ActionSave)).Put("/emags/{id}", h.UpdateEMag)
			r.With(can(model.PageEMagStore, model.ActionView)).Get("/emags/{id}/pages", h.ListPageRecords)
			r.With(can(model.PageEMagStore, model.ActionSave)).Post("/emags/{id}/pages", h.CreatePageRecord)
			r.With(can(model.PageEMagStore, model.ActionDelete)).Delete("/emags/{id}/pages", h.DeletePageRecordsAfter)
			r.With(can(model.PageEMagStore, model.ActionSave)).Put("/emag-pages/{id}", h.UpdatePageRecord)
		})
	}

	return r
}
