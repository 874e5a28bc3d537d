package engine

import (
	"context"
	"errors"
	"time"

	"github.com/semantiva/semantiva-go/internal/graph"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/trace"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// NodeRuntime executes a single node end to end: type gate, parameter
// resolution, observer attachment, processor invocation, delta capture,
// assertion evaluation, and SER emission.
type NodeRuntime struct {
	node       *graph.PlanNode
	upstream   []string
	pipelineID string
	emitter    *trace.Emitter
	pins       trace.EnvironmentPins
	strict     bool
	log        *logger.Logger
}

// NodeOutcome is what the orchestrator receives back.
type NodeOutcome struct {
	Payload pipeline.Payload
	Status  trace.Status
	Err     error
}

// NewNodeRuntime builds the runtime for one plan node. upstream carries the
// UUIDs of the nodes feeding this one.
func NewNodeRuntime(node *graph.PlanNode, upstream []string, pipelineID string, emitter *trace.Emitter, pins trace.EnvironmentPins, strict bool, log *logger.Logger) *NodeRuntime {
	return &NodeRuntime{
		node:       node,
		upstream:   upstream,
		pipelineID: pipelineID,
		emitter:    emitter,
		pins:       pins,
		strict:     strict,
		log:        log,
	}
}

// Run performs the full node sequence and emits exactly one SER.
func (r *NodeRuntime) Run(ctx context.Context, payload pipeline.Payload, executor Executor, timeout time.Duration) NodeOutcome {
	started := time.Now()
	node := r.node

	inputCheck := checkInputType(node, payload)
	if !inputCheck.Passed {
		err := semerrors.NewTypeError(node.Index-1, node.Index,
			payload.DataType().String(), node.InputType.String())
		return r.fail(payload, started, []trace.Check{inputCheck}, nil, pipeline.ContextDelta{}, nil, err)
	}

	resolved, err := ResolveParameters(node, payload.Context)
	if err != nil {
		requiredCheck := trace.Check{Name: CheckRequiredKeysPresent, Passed: false,
			Details: map[string]any{"missing_keys": node.RequiredKeys}}
		return r.fail(payload, started, []trace.Check{inputCheck, requiredCheck}, nil, pipeline.ContextDelta{}, nil, err)
	}
	requiredCheck := checkRequiredKeys(node, payload.Context, resolved)
	configCheck := checkConfig(node, r.strict)
	pre := []trace.Check{inputCheck, requiredCheck, configCheck}

	if !configCheck.Passed {
		err := semerrors.NewNodeParameterError(node.Canonical.UUID, node.Processor.Ref(), node.UnknownParams)
		return r.fail(payload, started, pre, &resolved, pipeline.ContextDelta{}, nil, err)
	}
	if len(node.UnknownParams) > 0 {
		r.log.Warn("node declares parameters the processor does not accept",
			"node", node.Index, "processor", node.Processor.Ref(), "unknown", node.UnknownParams)
	}

	observer := pipeline.NewValidatingContextObserver(
		payload.Context, node.DeclaredCreatedKeys, node.DeclaredSuppressedKeys)
	for _, key := range resolved.ContextReads {
		observer.RecordRead(key)
	}

	var produced any
	call := func(callCtx context.Context) (pipeline.Payload, error) {
		out, procErr := node.Processor.Process(callCtx, pipeline.Call{
			Data:    payload.Data,
			Params:  resolved.Values,
			Mutator: observer,
		})
		if procErr != nil {
			return payload, procErr
		}
		produced = out

		if node.Processor.Role() == pipeline.RoleProbe && node.ContextKey != "" {
			if writeErr := observer.NotifyUpdate(node.ContextKey, out); writeErr != nil {
				return payload, writeErr
			}
		}
		return pipeline.Payload{Data: r.outputData(payload.Data, out), Context: payload.Context}, nil
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, runErr := executor.Submit(callCtx, call).Await(callCtx)
	observer.Detach()
	delta := observer.Delta()

	if runErr != nil {
		runErr = r.classify(runErr)
		return r.fail(payload, started, pre, &resolved, delta, produced, runErr)
	}

	post := []trace.Check{
		checkOutputType(node, produced),
		checkContextWrites(delta),
	}
	status := trace.StatusSucceeded
	var serErr *trace.ErrorInfo
	var outcomeErr error
	for _, check := range post {
		if !check.Passed {
			status = trace.StatusError
			outcomeErr = semerrors.NewProcessorError(node.Canonical.UUID, node.Index, node.Processor.Ref(),
				errors.New("postcondition "+check.Name+" failed"))
			serErr = &trace.ErrorInfo{ErrorType: semerrors.Kind(outcomeErr), ErrorMsg: outcomeErr.Error()}
			break
		}
	}

	r.emit(started, pre, post, resolved, delta, status, serErr, payload.Context)

	if status != trace.StatusSucceeded {
		return NodeOutcome{Payload: payload, Status: status, Err: outcomeErr}
	}
	return NodeOutcome{Payload: out, Status: trace.StatusSucceeded}
}

// EmitCancelled records a node that never ran because the run aborted.
func (r *NodeRuntime) EmitCancelled(reason string) {
	err := semerrors.NewCancelledError(r.node.Canonical.UUID, reason)
	info := &trace.ErrorInfo{ErrorType: semerrors.Kind(err), ErrorMsg: err.Error()}
	now := time.Now()
	ser := r.baseSER(now, now)
	ser.Assertions.Trigger = "run_aborted"
	ser.Status = trace.StatusCancelled
	ser.Error = info
	if emitErr := r.emitter.EmitSER(ser); emitErr != nil {
		r.log.Error("emit cancelled ser", "node", r.node.Index, "error", emitErr)
	}
}

// EmitSkipped records a node deliberately not executed (dry runs).
func (r *NodeRuntime) EmitSkipped(trigger string) {
	now := time.Now()
	ser := r.baseSER(now, now)
	ser.Assertions.Trigger = trigger
	ser.Status = trace.StatusSkipped
	if emitErr := r.emitter.EmitSER(ser); emitErr != nil {
		r.log.Error("emit skipped ser", "node", r.node.Index, "error", emitErr)
	}
}

// outputData applies the role pass-through rules: operations and sources
// replace the data channel, everything else forwards the input.
func (r *NodeRuntime) outputData(input, produced any) any {
	switch r.node.Processor.Role() {
	case pipeline.RoleSource, pipeline.RoleOperation:
		return produced
	default:
		return input
	}
}

func (r *NodeRuntime) classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return semerrors.NewTimeoutError(r.node.Canonical.UUID, "")
	case errors.Is(err, context.Canceled):
		return semerrors.NewCancelledError(r.node.Canonical.UUID, "run cancelled")
	default:
		return semerrors.NewProcessorError(r.node.Canonical.UUID, r.node.Index, r.node.Processor.Ref(), err)
	}
}

func (r *NodeRuntime) fail(payload pipeline.Payload, started time.Time, pre []trace.Check, resolved *ResolvedParams, delta pipeline.ContextDelta, produced any, err error) NodeOutcome {
	post := []trace.Check{
		checkOutputType(r.node, produced),
		checkContextWrites(delta),
	}
	status := trace.StatusError
	if _, ok := errAs[*semerrors.CancelledError](err); ok {
		status = trace.StatusCancelled
	}
	if _, ok := errAs[*semerrors.TimeoutError](err); ok {
		status = trace.StatusCancelled
	}

	params := ResolvedParams{Values: map[string]any{}, Sources: map[string]string{}}
	if resolved != nil {
		params = *resolved
	}
	info := &trace.ErrorInfo{ErrorType: semerrors.Kind(err), ErrorMsg: err.Error()}

	ser := r.baseSER(started, time.Now())
	ser.Assertions.Trigger = "node_error"
	ser.Assertions.Preconditions = pre
	ser.Assertions.Postconditions = post
	ser.Processor.Parameters = params.Values
	ser.Processor.ParameterSources = params.Sources
	ser.ContextDelta = r.deltaEvidence(payload, delta)
	ser.Status = status
	ser.Error = info
	if emitErr := r.emitter.EmitSER(ser); emitErr != nil {
		r.log.Error("emit ser", "node", r.node.Index, "error", emitErr)
	}

	return NodeOutcome{Payload: payload, Status: status, Err: err}
}

func (r *NodeRuntime) emit(started time.Time, pre, post []trace.Check, resolved ResolvedParams, delta pipeline.ContextDelta, status trace.Status, errInfo *trace.ErrorInfo, ctx *pipeline.ContextStore) {
	ser := r.baseSER(started, time.Now())
	ser.Assertions.Trigger = "node_complete"
	ser.Assertions.Preconditions = pre
	ser.Assertions.Postconditions = post
	ser.Processor.Parameters = resolved.Values
	ser.Processor.ParameterSources = resolved.Sources
	ser.ContextDelta = r.deltaEvidence(pipeline.Payload{Context: ctx}, delta)
	ser.Status = status
	ser.Error = errInfo
	if emitErr := r.emitter.EmitSER(ser); emitErr != nil {
		r.log.Error("emit ser", "node", r.node.Index, "error", emitErr)
	}
}

func (r *NodeRuntime) baseSER(started, finished time.Time) trace.SER {
	return trace.SER{
		Identity: trace.Identity{
			PipelineID: r.pipelineID,
			NodeID:     r.node.Canonical.UUID,
		},
		Dependencies: trace.Dependencies{Upstream: append([]string(nil), r.upstream...)},
		Processor: trace.ProcessorEvidence{
			Ref:              r.node.Processor.Ref(),
			Parameters:       map[string]any{},
			ParameterSources: map[string]string{},
		},
		ContextDelta: trace.ContextDeltaEvidence{
			ReadKeys:    []string{},
			CreatedKeys: []string{},
			UpdatedKeys: []string{},
		},
		Assertions: trace.AssertionEvidence{
			Preconditions:  []trace.Check{},
			Postconditions: []trace.Check{},
			Environment:    r.pins,
		},
		Timing: trace.Timing{
			StartedAt:  started.UTC(),
			FinishedAt: finished.UTC(),
			WallMS:     finished.Sub(started).Milliseconds(),
		},
	}
}

func (r *NodeRuntime) deltaEvidence(payload pipeline.Payload, delta pipeline.ContextDelta) trace.ContextDeltaEvidence {
	evidence := trace.ContextDeltaEvidence{
		ReadKeys:       orEmpty(delta.ReadKeys),
		CreatedKeys:    orEmpty(delta.CreatedKeys),
		UpdatedKeys:    orEmpty(delta.UpdatedKeys),
		SuppressedKeys: delta.SuppressedKeys,
	}

	if payload.Context != nil {
		changed := make(map[string]any)
		for _, key := range delta.CreatedKeys {
			if v, ok := payload.Context.Get(key); ok {
				changed[key] = v
			}
		}
		for _, key := range delta.UpdatedKeys {
			if v, ok := payload.Context.Get(key); ok {
				changed[key] = v
			}
		}
		evidence.KeySummaries = r.emitter.SummarizeKeys(changed)
	}
	return evidence
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func errAs[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}
