package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semantiva/semantiva-go/internal/app"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/registry"
	"github.com/semantiva/semantiva-go/internal/spec"
)

func newPlanCmd(reg *registry.Registry, log *logger.Logger, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <spec.yaml>",
		Short: "Expand the run_space block without executing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := spec.ParseFile(args[0])
			if err != nil {
				return err
			}

			plan, err := app.NewService(reg, log).PlanRunSpace(doc)
			if err != nil {
				return err
			}
			if plan == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "spec declares no run_space")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run space %s: %d planned runs\n", plan.SpecID, len(plan.Entries))
			for _, entry := range plan.Entries {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %v\n", entry.Index, entry.Context)
			}
			return nil
		},
	}
	return cmd
}
