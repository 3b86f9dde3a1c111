package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/platform"
	"github.com/TheMichaelB/enpass/internal/vault"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List item ids and titles",
		Example: `  enpass --vault vault.json list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withItems(cmd.Context(), func(items *vault.Items) error {
				list, err := items.List(cmd.Context())
				if err != nil {
					return err
				}
				if a.cfg.Output.JSON {
					return printJSON(cmd.OutOrStdout(), list)
				}
				printLines(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
}

func newPasswordCmd(a *app) *cobra.Command {
	var copyToClipboard bool

	cmd := &cobra.Command{
		Use:   "password <item_id>",
		Short: "Print the username and password of an item",
		Example: `  enpass --vault vault.json password 42
  enpass --vault vault.json password 42 --copy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}

			var cred *models.Credential
			err = a.withItems(cmd.Context(), func(items *vault.Items) error {
				cred, err = items.Password(cmd.Context(), id)
				return err
			})
			if err != nil {
				return err
			}

			if copyToClipboard {
				return a.copyPassword(cmd, cred)
			}
			if a.cfg.Output.JSON {
				return printJSON(cmd.OutOrStdout(), cred)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cred.String())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&copyToClipboard, "copy", "c", false,
		"Copy the password to the clipboard instead of printing it")
	return cmd
}

// copyPassword puts the password on the clipboard, clearing it again after
// output.clipboard_clear when that is set.
func (a *app) copyPassword(cmd *cobra.Command, cred *models.Credential) error {
	ttl := a.cfg.Output.ClipboardClear
	if ttl > 0 {
		printSuccess(a.stderr, "Copied password for %s, clearing in %v", cred.Username, ttl)
	}
	if err := platform.CopyAndClear(cmd.Context(), a.clipboard, cred.Password, ttl); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	if ttl <= 0 {
		printSuccess(a.stderr, "Copied password for %s", cred.Username)
	}
	return nil
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <item_id>",
		Short: "Print every non-empty field of an item",
		Long: `Dump prints each non-empty field as key and value. Passwords are
decrypted and TOTP seeds are followed by the current code.`,
		Example: `  enpass --vault vault.json dump 42`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}

			return a.withItems(cmd.Context(), func(items *vault.Items) error {
				fields, err := items.Dump(cmd.Context(), id)
				if err != nil {
					return err
				}
				if a.cfg.Output.JSON {
					return printJSON(cmd.OutOrStdout(), fields)
				}
				printLines(cmd.OutOrStdout(), fields)
				return nil
			})
		},
	}
}

func parseItemID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: %w", s, err)
	}
	return uint32(id), nil
}
