package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/semantiva/semantiva-go/internal/graph"
	"github.com/semantiva/semantiva-go/internal/identity"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/trace"
)

// Policy controls run-wide behavior.
type Policy struct {
	Strict          bool
	ContinueOnError bool
	Timeout         time.Duration
	DryRun          bool
}

// RunOptions parameterizes one orchestrator invocation. The run-space
// fields are foreign keys stamped on pipeline_start when a launch drives
// the run.
type RunOptions struct {
	RunID           string
	InitialContext  map[string]any
	RunSpaceLaunch  string
	RunSpaceIndex   *int
	RunSpaceContext map[string]any
	Tags            map[string]string
}

// Result is what a completed run returns.
type Result struct {
	RunID   string
	Payload pipeline.Payload
	Summary trace.RunSummary
	Err     error
}

// Orchestrator walks a plan's nodes in order. The lifecycle is fixed:
// pipeline_start, one SER per node, pipeline_end. The Executor and
// Transport interfaces are the two seams concrete deployments replace;
// everything else is the template.
type Orchestrator struct {
	plan      *graph.Plan
	executor  Executor
	transport Transport
	sink      trace.Sink
	detail    trace.Detail
	policy    Policy
	log       *logger.Logger
}

// NewOrchestrator wires an orchestrator. Nil executor, transport, and sink
// fall back to the sequential and in-memory defaults.
func NewOrchestrator(plan *graph.Plan, executor Executor, transport Transport, sink trace.Sink, detail trace.Detail, policy Policy, log *logger.Logger) *Orchestrator {
	if executor == nil {
		executor = NewSequentialExecutor()
	}
	if transport == nil {
		transport = NewInMemoryTransport()
	}
	if sink == nil {
		sink = trace.NewMemorySink()
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Orchestrator{
		plan:      plan,
		executor:  executor,
		transport: transport,
		sink:      sink,
		detail:    detail,
		policy:    policy,
		log:       log,
	}
}

// Run executes the plan once.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) Result {
	runID := opts.RunID
	if runID == "" {
		runID = identity.NewRunID()
	}
	emitter := trace.NewEmitter(o.sink, runID, o.detail)
	pins := Pins()
	runStart := time.Now()

	if err := emitter.EmitPipelineStart(trace.PipelineStart{
		PipelineID:      o.plan.Graph.PipelineID,
		Graph:           o.plan.Graph,
		Environment:     pins,
		RunSpaceLaunch:  opts.RunSpaceLaunch,
		RunSpaceIndex:   opts.RunSpaceIndex,
		RunSpaceContext: opts.RunSpaceContext,
		Tags:            opts.Tags,
	}); err != nil {
		return Result{RunID: runID, Err: err}
	}

	o.log.Info("pipeline started",
		"run_id", runID, "pipeline_id", o.plan.Graph.PipelineID, "nodes", len(o.plan.Nodes))

	payload := pipeline.NewPayload(pipeline.NoData{}, pipeline.ContextFromMap(opts.InitialContext))
	var summary trace.RunSummary
	var firstErr error

	for i := range o.plan.Nodes {
		node := &o.plan.Nodes[i]
		var upstream []string
		if i > 0 {
			upstream = []string{o.plan.Nodes[i-1].Canonical.UUID}
		}
		runtime := NewNodeRuntime(node, upstream, o.plan.Graph.PipelineID, emitter, pins, o.policy.Strict, o.log)

		if firstErr != nil && !o.policy.ContinueOnError {
			runtime.EmitCancelled("upstream failure")
			summary.Cancelled++
			continue
		}
		if ctx.Err() != nil {
			runtime.EmitCancelled("run cancelled")
			summary.Cancelled++
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			continue
		}
		if o.policy.DryRun {
			runtime.EmitSkipped("dry_run")
			summary.Skipped++
			continue
		}

		outcome := runtime.Run(ctx, payload, o.executor, o.policy.Timeout)
		switch outcome.Status {
		case trace.StatusSucceeded:
			summary.Succeeded++
		case trace.StatusCancelled:
			summary.Cancelled++
		default:
			summary.Errored++
		}
		if outcome.Err != nil {
			o.log.Error("node failed",
				"run_id", runID, "node", node.Index, "processor", node.Processor.Ref(), "error", outcome.Err)
			if firstErr == nil {
				firstErr = outcome.Err
			}
			if !o.policy.ContinueOnError {
				continue
			}
		}

		payload = o.handoff(i, outcome.Payload)
	}

	summary.TotalWallMS = time.Since(runStart).Milliseconds()
	if err := emitter.EmitPipelineEnd(trace.PipelineEnd{
		PipelineID: o.plan.Graph.PipelineID,
		Summary:    summary,
	}); err != nil && firstErr == nil {
		firstErr = err
	}

	o.log.Info("pipeline finished",
		"run_id", runID, "succeeded", summary.Succeeded, "error", summary.Errored,
		"skipped", summary.Skipped, "cancelled", summary.Cancelled)

	return Result{RunID: runID, Payload: payload, Summary: summary, Err: firstErr}
}

// handoff publishes the payload to the next node's channel and receives it
// back. The last node finalizes without a publish.
func (o *Orchestrator) handoff(index int, payload pipeline.Payload) pipeline.Payload {
	if index+1 >= len(o.plan.Nodes) {
		return payload
	}
	channel := fmt.Sprintf("node-%d", index+1)
	if err := o.transport.Publish(channel, payload); err != nil {
		o.log.Error("transport publish failed", "channel", channel, "error", err)
		return payload
	}
	received, ok := o.transport.Receive(channel)
	if !ok {
		o.log.Error("transport receive returned no payload", "channel", channel)
		return payload
	}
	return received
}
