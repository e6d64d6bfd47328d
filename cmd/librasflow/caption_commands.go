package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"librasflow/internal/captions"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captions",
		Short: "Inspect and edit a project's captions",
	}
	cmd.AddCommand(newCaptionsListCommand(ctx))
	cmd.AddCommand(newCaptionsEditCommand(ctx))
	cmd.AddCommand(newCaptionsDownloadCommand(ctx))
	return cmd
}

func newCaptionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List caption entries in timeline order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			set, err := manager.Captions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if set.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No captions yet; run `librasflow process` first.")
				return nil
			}

			rows := make([][]string, 0, set.Len())
			for entry := range set.All() {
				rows = append(rows, []string{
					entry.ID,
					formatWindow(entry.StartTime, entry.EndTime),
					truncate(entry.Text, 60),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Window", "Text"}, rows))
			return nil
		},
	}
}

func newCaptionsEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <project-id> <entry-id> <new text>",
		Short: "Replace one caption entry's text",
		Long: "Editing a caption whose interpretation was already generated marks that " +
			"interpretation as stale; regenerate it with `librasflow interpret regenerate`.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			text := strings.Join(args[2:], " ")
			if err := manager.EditCaption(cmd.Context(), args[0], args[1], text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated caption %s\n", args[1])
			return nil
		},
	}
}

func newCaptionsDownloadCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "download <project-id>",
		Short: "Write the captions as an SRT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			set, err := manager.Captions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if set.Len() == 0 {
				return fmt.Errorf("project has no captions to download")
			}

			srt := captions.FormatSRT(set.Entries())
			if strings.TrimSpace(outPath) == "" {
				fmt.Fprint(cmd.OutOrStdout(), srt)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(srt), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries to %s\n", set.Len(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
