package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semantiva/semantiva-go/internal/engine"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "semantiva %s (framework %s, commit %s, built %s)\n",
				version, engine.FrameworkVersion, commit, date)
			return nil
		},
	}
	return cmd
}
