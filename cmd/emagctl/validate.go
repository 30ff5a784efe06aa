// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/navigator"
	"github.com/olegiv/ocms-emag/internal/pages"
	"github.com/olegiv/ocms-emag/internal/seed"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check eMag snapshots (.json) and template definitions (.yaml)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, name := range args {
				data, err := readInput(cmd, name)
				if err == nil {
					err = validateFile(cmd.OutOrStdout(), name, data)
				}
				if err != nil {
					failed++
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", name, err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("validation failed for %d of %d file(s)", failed, len(args))
			}
			return nil
		},
	}
}

func validateFile(w io.Writer, name string, data []byte) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		tpl, err := seed.Parse(data)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "ok   %s: template %q\n", name, tpl.Name)
		return nil
	}

	pp, err := emagsync.DecodeSnapshot(string(data))
	if err != nil {
		return err
	}
	if len(pp) == 0 {
		return errors.New("snapshot has no pages")
	}
	for i, p := range pp {
		if p.Type != "" && !p.Type.Valid() {
			return fmt.Errorf("page %d: unknown type %q", i+1, p.Type)
		}
	}

	state := pages.State{Pages: pages.Reindex(pp)}
	names := make([]string, 0, len(state.Pages))
	for _, tab := range navigator.Tabs(state, navigator.Options{}) {
		names = append(names, tab.Name)
	}
	_, _ = fmt.Fprintf(w, "ok   %s: %d pages [%s]\n", name, len(pp), strings.Join(names, ", "))
	return nil
}
