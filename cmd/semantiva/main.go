package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/processors"
	"github.com/semantiva/semantiva-go/internal/registry"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Exit codes consumed by callers of the CLI.
const (
	exitOK          = 0
	exitUsage       = 1
	exitFile        = 2
	exitConfig      = 3
	exitRuntime     = 4
	exitInterrupted = 5
)

func main() {
	log, err := logger.New(logger.Options{Level: "info", Component: "cli"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(exitUsage)
	}

	reg := registry.New()
	if err := processors.RegisterBuiltins(reg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register processors: %v\n", err)
		os.Exit(exitUsage)
	}

	root := newRootCmd(reg, log)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var specErr *semerrors.SpecError
	var canonErr *semerrors.CanonicalizationError
	var typeErr *semerrors.TypeError
	var maxRuns *semerrors.MaxRunsError
	var cancelled *semerrors.CancelledError
	var pathErr *os.PathError

	switch {
	case errors.As(err, &cancelled):
		return exitInterrupted
	case errors.As(err, &pathErr):
		return exitFile
	case errors.As(err, &specErr), errors.As(err, &canonErr),
		errors.As(err, &typeErr), errors.As(err, &maxRuns):
		return exitConfig
	default:
		return exitRuntime
	}
}
