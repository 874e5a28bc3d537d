package main

import (
	"github.com/spf13/cobra"

	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/registry"
)

type rootFlags struct {
	verbose bool
	context map[string]string
}

func newRootCmd(reg *registry.Registry, log *logger.Logger) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "semantiva",
		Short:         "Semantiva runs typed dual-channel pipelines from declarative specs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringToStringVar(&flags.context, "context", nil, "Initial context entries (key=value)")

	cmd.AddCommand(newRunCmd(reg, log, flags))
	cmd.AddCommand(newInspectCmd(reg, log, flags))
	cmd.AddCommand(newPlanCmd(reg, log, flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initialContext(flags *rootFlags) map[string]any {
	if len(flags.context) == 0 {
		return nil
	}
	initial := make(map[string]any, len(flags.context))
	for k, v := range flags.context {
		initial[k] = v
	}
	return initial
}
