package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInterpretCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interpret",
		Short: "Inspect and regenerate Libras interpretations",
	}
	cmd.AddCommand(newInterpretListCommand(ctx))
	cmd.AddCommand(newInterpretRegenerateCommand(ctx))
	return cmd
}

func newInterpretListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List interpretation entries in timeline order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := manager.Interpretations(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No interpretations yet; run `librasflow process` first.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.SubtitleID,
					formatWindow(entry.StartTime, entry.EndTime),
					truncate(entry.OriginalText, 40),
					truncate(entry.LibrasInterpretation, 40) + staleMark(entry.Stale),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Subtitle", "Window", "Original", "Libras"}, rows))
			return nil
		},
	}
}

func newInterpretRegenerateCommand(ctx *commandContext) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "regenerate <project-id> <subtitle-id>",
		Short: "Regenerate one interpretation with a custom instruction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(instruction) == "" {
				return fmt.Errorf("an --instruction is required when regenerating a single entry")
			}
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := manager.RegenerateEntry(cmd.Context(), args[0], args[1], instruction)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Regenerated %s:\n  %s\n", entry.SubtitleID, entry.LibrasInterpretation)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "Interpretation instruction to apply")
	return cmd
}
