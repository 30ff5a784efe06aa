// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/olegiv/ocms-emag/internal/block"
	"github.com/olegiv/ocms-emag/internal/emagsync"
	"github.com/olegiv/ocms-emag/internal/export"
	"github.com/olegiv/ocms-emag/internal/pages"
)

func newExportCommand() *cobra.Command {
	var (
		title  string
		output string
		tags   map[string]string
	)

	command := &cobra.Command{
		Use:   "export <snapshot.json>",
		Short: "Render a stored eMag snapshot as a flipbook HTML document",
		Long: "Render the htmlData payload of an eMag as a standalone flipbook.\n" +
			"Use - to read the snapshot from stdin. Without --out the document is\n" +
			"written to a file named after the title.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			pp, err := emagsync.DecodeSnapshot(string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			gen := export.NewGenerator(block.NewHTMLRenderer())
			doc, err := gen.Generate(cmd.Context(), export.Input{
				Pages:     pages.Reindex(pp),
				Title:     title,
				MergeTags: tags,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = export.Filename(title)
			}
			if output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), doc)
				return err
			}
			if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d pages)\n", output, len(pp))
			return nil
		},
	}

	command.Flags().StringVar(&title, "title", "", "Document title")
	command.Flags().StringVarP(&output, "out", "o", "", "Output file, - for stdout")
	command.Flags().StringToStringVar(&tags, "tag", nil, "Merge tag value, e.g. --tag name=Ann (repeatable)")
	return command
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
