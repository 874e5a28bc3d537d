package runspace

import (
	"context"

	"github.com/semantiva/semantiva-go/internal/engine"
	"github.com/semantiva/semantiva-go/internal/identity"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/trace"
)

// LaunchOptions parameterizes one run-space launch.
type LaunchOptions struct {
	InitialContext map[string]any
	// LaunchID overrides the generated identity; callers that need the ID
	// before launching (sink naming) derive it first.
	LaunchID       string
	IdempotencyKey string
	Attempt        int
	DryRun         bool
}

// LaunchResult aggregates a completed launch.
type LaunchResult struct {
	LaunchID  string
	Plan      *Plan
	Runs      []engine.Result
	Succeeded int
	Failed    int
}

// Launcher drives one orchestrator run per plan entry, sharing the launch
// identity across them and bracketing the stream with run_space lifecycle
// records.
type Launcher struct {
	orchestrator *engine.Orchestrator
	sink         trace.Sink
	detail       trace.Detail
	log          *logger.Logger
}

// NewLauncher wires a launcher around an already-built orchestrator. The
// sink is shared with the per-run emitters.
func NewLauncher(orchestrator *engine.Orchestrator, sink trace.Sink, detail trace.Detail, log *logger.Logger) *Launcher {
	if log == nil {
		log = logger.Noop()
	}
	return &Launcher{orchestrator: orchestrator, sink: sink, detail: detail, log: log}
}

// Launch executes the plan. With DryRun set, the plan summary is returned
// without emitting records or submitting any node.
func (l *Launcher) Launch(ctx context.Context, plan *Plan, opts LaunchOptions) (*LaunchResult, error) {
	launchID := opts.LaunchID
	if launchID == "" {
		launchID = identity.NewLaunchID(opts.IdempotencyKey)
	}
	attempt := opts.Attempt
	if attempt < 1 {
		attempt = 1
	}

	result := &LaunchResult{LaunchID: launchID, Plan: plan}
	if opts.DryRun {
		return result, nil
	}

	emitter := trace.NewEmitter(l.sink, launchID, l.detail)
	if err := emitter.EmitRunSpaceStart(trace.RunSpaceStart{
		SpecID:            plan.SpecID,
		InputsID:          plan.InputsID,
		LaunchID:          launchID,
		Attempt:           attempt,
		PlannedRunCount:   len(plan.Entries),
		InputFingerprints: plan.Fingerprints,
	}); err != nil {
		return nil, err
	}

	l.log.Info("run space launched",
		"launch_id", launchID, "spec_id", plan.SpecID, "planned_runs", len(plan.Entries))

	for _, entry := range plan.Entries {
		index := entry.Index
		initial := make(map[string]any, len(opts.InitialContext)+len(entry.Context))
		for k, v := range opts.InitialContext {
			initial[k] = v
		}
		for k, v := range entry.Context {
			initial[k] = v
		}

		run := l.orchestrator.Run(ctx, engine.RunOptions{
			InitialContext:  initial,
			RunSpaceLaunch:  launchID,
			RunSpaceIndex:   &index,
			RunSpaceContext: entry.Context,
		})
		result.Runs = append(result.Runs, run)
		if run.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}

		if ctx.Err() != nil {
			break
		}
	}

	if err := emitter.EmitRunSpaceEnd(trace.RunSpaceEnd{
		LaunchID:  launchID,
		Runs:      len(result.Runs),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}); err != nil {
		return nil, err
	}

	return result, nil
}
