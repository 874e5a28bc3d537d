// Package app exposes the programmatic surface of the core: inspect a spec,
// run it, or plan and launch a run space. The CLI is a thin shell over this
// service.
package app

import (
	"context"
	"time"

	"github.com/semantiva/semantiva-go/internal/engine"
	"github.com/semantiva/semantiva-go/internal/graph"
	"github.com/semantiva/semantiva-go/internal/identity"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/registry"
	"github.com/semantiva/semantiva-go/internal/runspace"
	"github.com/semantiva/semantiva-go/internal/spec"
	"github.com/semantiva/semantiva-go/internal/trace"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Service coordinates the high-level operations over a processor registry.
type Service struct {
	registry *registry.Registry
	log      *logger.Logger
}

// NewService constructs the application service.
func NewService(reg *registry.Registry, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Noop()
	}
	return &Service{registry: reg, log: log}
}

// NodeReport is the per-node slice of an inspection.
type NodeReport struct {
	Index         int            `json:"index"`
	UUID          string         `json:"uuid"`
	SemanticID    string         `json:"node_semantic_id"`
	ProcessorRef  string         `json:"processor_ref"`
	Role          string         `json:"role"`
	Params        map[string]any `json:"params,omitempty"`
	UnknownParams []string       `json:"unknown_params,omitempty"`
	RequiredKeys  []string       `json:"required_keys,omitempty"`
	InputType     string         `json:"input_type,omitempty"`
	OutputType    string         `json:"output_type,omitempty"`
}

// InspectReport summarizes a built spec without executing it.
type InspectReport struct {
	PipelineID string       `json:"pipeline_id"`
	Nodes      []NodeReport `json:"nodes"`
	RunSpace   *PlanReport  `json:"run_space,omitempty"`
}

// PlanReport summarizes a run-space expansion.
type PlanReport struct {
	SpecID      string           `json:"run_space_spec_id"`
	PlannedRuns int              `json:"planned_run_count"`
	Entries     []runspace.Entry `json:"entries"`
}

// Inspect builds the spec and reports identities, effective and unknown
// parameters, context-only required keys, and declared input/output types.
// Spec-phase failures, including type-chain incompatibilities, surface as
// errors; no trace records are produced.
func (s *Service) Inspect(doc *spec.Document) (*InspectReport, error) {
	plan, err := s.build(doc)
	if err != nil {
		return nil, err
	}

	report := &InspectReport{PipelineID: plan.Graph.PipelineID}
	for _, node := range plan.Nodes {
		entry := NodeReport{
			Index:         node.Index,
			UUID:          node.Canonical.UUID,
			SemanticID:    node.Canonical.SemanticID,
			ProcessorRef:  node.Canonical.ProcessorRef,
			Role:          node.Canonical.Role,
			Params:        node.EffectiveParams,
			UnknownParams: node.UnknownParams,
			RequiredKeys:  node.RequiredKeys,
		}
		if node.InputType != nil {
			entry.InputType = node.InputType.String()
		}
		if node.OutputType != nil {
			entry.OutputType = node.OutputType.String()
		}
		report.Nodes = append(report.Nodes, entry)
	}

	if doc.RunSpace != nil {
		rsPlan, err := runspace.PlanBlocks(doc.RunSpace)
		if err != nil {
			return nil, err
		}
		report.RunSpace = &PlanReport{
			SpecID:      rsPlan.SpecID,
			PlannedRuns: len(rsPlan.Entries),
			Entries:     rsPlan.Entries,
		}
	}

	return report, nil
}

// RunOutcome couples a finished run with the plan and sink it used.
type RunOutcome struct {
	Plan   *graph.Plan
	Result engine.Result
	Sink   trace.Sink
}

// Run builds and executes the spec once. initial seeds the run context.
// A failed run is not reported through the returned error; it is in the
// outcome's Result.Err.
func (s *Service) Run(ctx context.Context, doc *spec.Document, initial map[string]any) (*RunOutcome, error) {
	plan, err := s.build(doc)
	if err != nil {
		return nil, err
	}

	runID := identity.NewRunID()
	sink, detail, err := s.sinkFor(doc, runID)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	orchestrator := engine.NewOrchestrator(
		plan, s.executorFor(doc), engine.NewInMemoryTransport(), sink, detail, policyFor(doc), s.log)
	result := orchestrator.Run(ctx, engine.RunOptions{
		RunID:          runID,
		InitialContext: initial,
	})

	return &RunOutcome{Plan: plan, Result: result, Sink: sink}, nil
}

// PlanRunSpace expands the run_space block without executing anything.
func (s *Service) PlanRunSpace(doc *spec.Document) (*runspace.Plan, error) {
	if _, err := s.build(doc); err != nil {
		return nil, err
	}
	if doc.RunSpace == nil {
		return nil, nil
	}
	return runspace.PlanBlocks(doc.RunSpace)
}

// RunSpace plans and launches the run space, one orchestrator run per
// entry under a shared launch identity.
func (s *Service) RunSpace(ctx context.Context, doc *spec.Document, initial map[string]any) (*runspace.LaunchResult, error) {
	if doc.RunSpace == nil {
		return nil, semerrors.NewSpecFieldError("run_space", "spec declares no run_space", nil)
	}
	plan, err := s.build(doc)
	if err != nil {
		return nil, err
	}
	rsPlan, err := runspace.PlanBlocks(doc.RunSpace)
	if err != nil {
		return nil, err
	}

	launchID := identity.NewLaunchID(idempotencyKey(doc))
	sink, detail, err := s.sinkFor(doc, launchID)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	orchestrator := engine.NewOrchestrator(
		plan, s.executorFor(doc), engine.NewInMemoryTransport(), sink, detail, policyFor(doc), s.log)
	launcher := runspace.NewLauncher(orchestrator, sink, detail, s.log)
	return launcher.Launch(ctx, rsPlan, runspace.LaunchOptions{
		InitialContext: initial,
		LaunchID:       launchID,
		IdempotencyKey: idempotencyKey(doc),
		DryRun:         doc.RunSpace.DryRun,
	})
}

func (s *Service) build(doc *spec.Document) (*graph.Plan, error) {
	builder := graph.NewBuilder(s.registry, s.log)
	return builder.Build(doc)
}

func (s *Service) sinkFor(doc *spec.Document, streamID string) (trace.Sink, trace.Detail, error) {
	detail, err := trace.ParseDetail(doc.Trace.Detail)
	if err != nil {
		return nil, trace.Detail{}, err
	}
	if doc.Trace.Output == "" {
		return trace.NewMemorySink(), detail, nil
	}
	sink, err := trace.NewJSONLSink(doc.Trace.Output, streamID, time.Now())
	if err != nil {
		return nil, trace.Detail{}, err
	}
	return sink, detail, nil
}

func (s *Service) executorFor(doc *spec.Document) engine.Executor {
	if doc.Execution.Parallel > 1 {
		return engine.NewPooledExecutor(doc.Execution.Parallel)
	}
	return engine.NewSequentialExecutor()
}

func policyFor(doc *spec.Document) engine.Policy {
	policy := engine.Policy{
		Strict:          doc.Execution.Strict,
		ContinueOnError: doc.Execution.ContinueOnError,
		DryRun:          doc.Execution.DryRun,
	}
	if doc.Execution.Timeout > 0 {
		policy.Timeout = time.Duration(doc.Execution.Timeout) * time.Second
	}
	return policy
}

func idempotencyKey(doc *spec.Document) string {
	if doc.RunSpace == nil {
		return ""
	}
	return doc.RunSpace.IdempotencyKey
}
