package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librasflow/internal/project"
	"librasflow/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "process <project-id>",
		Short: "Resume a project and run its next pending stage",
		Long: "Reconciles the project's stage from its persisted artifacts and runs the " +
			"next stage's work: caption acquisition, or interpretation generation. " +
			"Exporting needs the captured images and has its own command.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			proj, err := manager.Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if proj.Stage == project.StageExport {
				fmt.Fprintln(cmd.OutOrStdout(), "All artifacts ready. Run `librasflow export` to produce the final file.")
				return nil
			}

			params := workflow.StageParams{
				Credentials: ctx.accessToken(),
				Instruction: instruction,
			}
			proj, err = manager.Advance(cmd.Context(), proj.ID, params)
			if err != nil {
				return withRetryHint(err, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stage complete; project is now at %s (%s)\n", proj.Stage, proj.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "Custom directive for interpretation generation")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "retry <project-id>",
		Short: "Re-run the stage that failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			params := workflow.StageParams{
				Credentials: ctx.accessToken(),
				Instruction: instruction,
			}
			proj, err := manager.Retry(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retry succeeded; project is now at %s (%s)\n", proj.Stage, proj.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "Custom directive for interpretation generation")
	return cmd
}

func newStageCommand(ctx *commandContext) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "stage <project-id> <upload|captions|interpretation|export>",
		Short: "Navigate to a specific stage",
		Long: "Moving backward repositions the project without discarding later " +
			"artifacts. Moving forward re-runs that stage's generation step.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := project.ParseStage(args[1])
			if !ok {
				return fmt.Errorf("unknown stage %q", args[1])
			}
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			params := workflow.StageParams{
				Credentials: ctx.accessToken(),
				Instruction: instruction,
			}
			if target == project.StageExport {
				return fmt.Errorf("use `librasflow export` to run the export stage")
			}
			proj, err := manager.EnterStage(cmd.Context(), args[0], target, params)
			if err != nil {
				return withRetryHint(err, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project is now at %s (%s)\n", proj.Stage, proj.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "Custom directive for interpretation generation")
	return cmd
}
