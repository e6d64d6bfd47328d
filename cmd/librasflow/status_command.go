package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report readiness of each pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}

			checks := manager.Health(cmd.Context())
			rows := make([][]string, 0, len(checks))
			degraded := false
			for _, check := range checks {
				state := "ready"
				if !check.Ready {
					state = "unavailable"
					degraded = true
				}
				rows = append(rows, []string{check.Name, state, check.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Stage", "State", "Detail"}, rows))

			if degraded {
				fmt.Fprintln(cmd.OutOrStdout(), "Some stages are unavailable; check the configuration above.")
			}
			return nil
		},
	}
}
