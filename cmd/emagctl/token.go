// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olegiv/ocms-emag/internal/model"
	"github.com/olegiv/ocms-emag/internal/store"
)

func newTokenCommand() *cobra.Command {
	var dbPath string

	command := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens in the service database",
	}
	defaultPath := os.Getenv("EMAG_DB_PATH")
	if defaultPath == "" {
		defaultPath = "./data/emag.db"
	}
	command.PersistentFlags().StringVar(&dbPath, "db", defaultPath, "SQLite database path")

	open := func() (*sql.DB, error) {
		db, err := store.NewDB(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", dbPath, err)
		}
		if err := store.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	command.AddCommand(
		newTokenCreateCommand(open),
		newTokenListCommand(open),
		newTokenRevokeCommand(open),
	)
	return command
}

func newTokenCreateCommand(open func() (*sql.DB, error)) *cobra.Command {
	var name, role string

	command := &cobra.Command{
		Use:   "create",
		Short: "Create a token and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			db, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			raw, tok, err := store.IssueAPIToken(cmd.Context(), db, name, role)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "created token %d (%s, role %s); it will not be shown again\n", tok.ID, tok.TokenPrefix, tok.Role)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), raw)
			return err
		},
	}
	command.Flags().StringVar(&name, "name", "", "Token name")
	command.Flags().StringVar(&role, "role", model.RoleAuthor, "Role: "+strings.Join(model.AllRoles(), ", "))
	return command
}

func newTokenListCommand(open func() (*sql.DB, error)) *cobra.Command {
	var asJSON bool

	command := &cobra.Command{
		Use:   "list",
		Short: "List tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			rows, err := store.New(db).ListAPITokens(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing tokens: %w", err)
			}
			tokens := make([]model.APIToken, len(rows))
			for i, r := range rows {
				tokens[i] = model.APIToken{
					ID:          r.ID,
					Name:        r.Name,
					TokenPrefix: r.TokenPrefix,
					Role:        r.Role,
					IsActive:    r.IsActive,
					CreatedAt:   r.CreatedAt,
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tokens)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tROLE\tACTIVE")
			for _, t := range tokens {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", t.ID, t.Name, t.TokenPrefix, t.Role, t.IsActive)
			}
			return tw.Flush()
		},
	}
	command.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return command
}

func newTokenRevokeCommand(open func() (*sql.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Deactivate a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token id %q", args[0])
			}
			db, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := store.New(db).DeactivateAPIToken(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("revoking token %d: %w", id, err)
			}
			if n == 0 {
				return fmt.Errorf("token %d not found", id)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "revoked token %d\n", id)
			return nil
		},
	}
}
