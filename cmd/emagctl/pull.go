// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/ocms-emag/internal/remote"
)

func newPullCommand() *cobra.Command {
	var (
		baseURL string
		token   string
		cv      int64
		output  string
		retries uint
	)

	command := &cobra.Command{
		Use:   "pull",
		Short: "Download the eMag snapshot of a content version from an eMag API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baseURL == "" {
				return errors.New("--url or EMAG_REMOTE_URL is required")
			}
			if cv <= 0 {
				return errors.New("--content-version must be positive")
			}

			client := remote.New(remote.Config{
				BaseURL:    baseURL,
				Token:      token,
				Timeout:    30 * time.Second,
				Retries:    retries,
				RetryDelay: 500 * time.Millisecond,
			})
			found, err := client.FindEMags(cmd.Context(), cv)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return fmt.Errorf("no eMag for content version %d", cv)
			}
			e := found[0]

			records, err := client.ListPageRecords(cmd.Context(), e.ID)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), e.HTMLData)
				return err
			}
			if output == "" {
				output = fmt.Sprintf("emag-%d.json", cv)
			}
			if err := os.WriteFile(output, []byte(e.HTMLData), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (eMag %d, %d page records)\n", output, e.ID, len(records))
			return nil
		},
	}

	command.Flags().StringVar(&baseURL, "url", os.Getenv("EMAG_REMOTE_URL"), "eMag API base URL")
	command.Flags().StringVar(&token, "token", os.Getenv("EMAG_REMOTE_TOKEN"), "API token")
	command.Flags().Int64Var(&cv, "content-version", 0, "Content version id")
	command.Flags().StringVarP(&output, "out", "o", "", "Output file, - for stdout")
	command.Flags().UintVar(&retries, "retries", 2, "Extra attempts on transport errors and 5xx")
	return command
}
