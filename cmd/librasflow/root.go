package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var ownerFlag string

	ctx := newCommandContext(&configFlag, &ownerFlag)

	rootCmd := &cobra.Command{
		Use:           "librasflow",
		Short:         "Convert videos into Libras-interpreted versions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ownerFlag, "owner", "", "Acting user id (defaults to LIBRASFLOW_USER)")

	rootCmd.AddCommand(newCreateCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newRetryCommand(ctx))
	rootCmd.AddCommand(newStageCommand(ctx))
	rootCmd.AddCommand(newCaptionsCommand(ctx))
	rootCmd.AddCommand(newInterpretCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	closeAfterRun(rootCmd, ctx)

	return rootCmd
}

// closeAfterRun wraps every RunE so the session lock, store, and service
// clients are released on failure too. Cobra skips PersistentPostRun when a
// command returns an error, so the post hook alone is not enough.
func closeAfterRun(cmd *cobra.Command, ctx *commandContext) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			defer ctx.close()
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, ctx)
	}
}
