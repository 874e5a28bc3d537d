package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semantiva/semantiva-go/internal/app"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/registry"
	"github.com/semantiva/semantiva-go/internal/spec"
)

func newInspectCmd(reg *registry.Registry, log *logger.Logger, flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <spec.yaml>",
		Short: "Build a spec and report identities without executing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := spec.ParseFile(args[0])
			if err != nil {
				return err
			}

			report, err := app.NewService(reg, log).Inspect(doc)
			if err != nil {
				return err
			}

			if asJSON {
				encoded, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pipeline %s\n", report.PipelineID)
			for _, node := range report.Nodes {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (%s) uuid=%s\n",
					node.Index, node.ProcessorRef, node.Role, node.UUID)
				if len(node.UnknownParams) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "      unknown parameters: %v\n", node.UnknownParams)
				}
			}
			if report.RunSpace != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "run space %s: %d planned runs\n",
					report.RunSpace.SpecID, report.RunSpace.PlannedRuns)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	return cmd
}
