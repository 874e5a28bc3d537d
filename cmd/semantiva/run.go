package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semantiva/semantiva-go/internal/app"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/registry"
	"github.com/semantiva/semantiva-go/internal/runspace"
	"github.com/semantiva/semantiva-go/internal/spec"
)

func newRunCmd(reg *registry.Registry, log *logger.Logger, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <spec.yaml>",
		Short: "Execute a pipeline spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := spec.ParseFile(args[0])
			if err != nil {
				return err
			}

			service := app.NewService(reg, log)
			if doc.RunSpace != nil {
				launch, err := service.RunSpace(cmd.Context(), doc, initialContext(flags))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "launch %s: %d runs, %d succeeded, %d failed\n",
					launch.LaunchID, len(launch.Runs), launch.Succeeded, launch.Failed)
				if launch.Failed > 0 {
					return firstRunError(launch)
				}
				return nil
			}

			outcome, err := service.Run(cmd.Context(), doc, initialContext(flags))
			if err != nil {
				return err
			}
			result := outcome.Result
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d succeeded, %d error, %d skipped, %d cancelled\n",
				result.RunID, result.Summary.Succeeded, result.Summary.Errored,
				result.Summary.Skipped, result.Summary.Cancelled)
			return result.Err
		},
	}
	return cmd
}

func firstRunError(launch *runspace.LaunchResult) error {
	for _, run := range launch.Runs {
		if run.Err != nil {
			return run.Err
		}
	}
	return nil
}
