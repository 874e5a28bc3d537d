package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/semantiva/semantiva-go/internal/graph"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/processors"
	"github.com/semantiva/semantiva-go/internal/registry"
	"github.com/semantiva/semantiva-go/internal/spec"
	"github.com/semantiva/semantiva-go/internal/trace"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, processors.RegisterBuiltins(reg))
	for _, factory := range []registry.Factory{
		func() pipeline.Processor { return &rogueWriter{} },
		func() pipeline.Processor { return &annotator{} },
		func() pipeline.Processor { return &slowOp{delay: 200 * time.Millisecond} },
		func() pipeline.Processor { return &failingOp{} },
	} {
		require.NoError(t, reg.Register(factory))
	}
	return reg
}

func buildPlan(t *testing.T, doc *spec.Document) *graph.Plan {
	t.Helper()
	plan, err := graph.NewBuilder(testRegistry(t), logger.Noop()).Build(doc)
	require.NoError(t, err)
	return plan
}

func docFor(refs ...spec.Node) *spec.Document {
	return &spec.Document{Nodes: refs}
}

func runOnce(t *testing.T, doc *spec.Document, policy Policy, opts RunOptions) (Result, *trace.MemorySink) {
	t.Helper()
	plan := buildPlan(t, doc)
	sink := trace.NewMemorySink()
	orch := NewOrchestrator(plan, nil, nil, sink, trace.Detail{Hash: true}, policy, logger.Noop())
	return orch.Run(context.Background(), opts), sink
}

func TestOrchestrator_ThreeNodeLinearRun(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "semantiva.builtin.AddConst", Parameters: map[string]any{"addend": 2.0}},
		spec.Node{Processor: "semantiva.builtin.CollectProbe", ContextKey: "result"},
	)

	result, sink := runOnce(t, doc, Policy{}, RunOptions{})
	require.NoError(t, result.Err)
	require.Equal(t, 3.0, result.Payload.Data)

	collected, ok := result.Payload.Context.Get("result")
	require.True(t, ok)
	require.Equal(t, 3.0, collected)

	sers := sink.SERs()
	require.Len(t, sers, 3)
	for _, ser := range sers {
		require.Equal(t, trace.StatusSucceeded, ser.Status)
	}
	require.Equal(t, []string{"result"}, sers[2].ContextDelta.CreatedKeys)

	records := sink.Records()
	require.Len(t, records, 5)
	start, ok := records[0].(trace.PipelineStart)
	require.True(t, ok)
	end, ok := records[4].(trace.PipelineEnd)
	require.True(t, ok)
	require.Equal(t, 3, end.Summary.Succeeded)

	// seq strictly increasing, start below every SER, end above.
	for _, ser := range sers {
		require.Greater(t, ser.Seq, start.Seq)
		require.Less(t, ser.Seq, end.Seq)
	}
	require.Equal(t, start.RunID, result.RunID)
}

func TestOrchestrator_SERIdentitiesMatchGraph(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "semantiva.builtin.AddConst"},
	)

	result, sink := runOnce(t, doc, Policy{}, RunOptions{})
	require.NoError(t, result.Err)

	records := sink.Records()
	start := records[0].(trace.PipelineStart)
	attached, ok := start.Graph.(*graph.Graph)
	require.True(t, ok)

	sers := sink.SERs()
	require.Len(t, sers, len(attached.Nodes))
	for i, ser := range sers {
		require.Equal(t, attached.Nodes[i].UUID, ser.Identity.NodeID)
		require.Equal(t, attached.PipelineID, ser.Identity.PipelineID)
	}

	// Upstream dependency of node 1 is node 0.
	require.Equal(t, []string{attached.Nodes[0].UUID}, sers[1].Dependencies.Upstream)
}

func TestOrchestrator_ParameterPrecedence(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "semantiva.builtin.AddConst", Parameters: map[string]any{"addend": 5}},
	)

	result, sink := runOnce(t, doc, Policy{}, RunOptions{
		InitialContext: map[string]any{"addend": 99},
	})
	require.NoError(t, result.Err)
	require.Equal(t, 6.0, result.Payload.Data)

	ser := sink.SERs()[1]
	require.Equal(t, 5, ser.Processor.Parameters["addend"])
	require.Equal(t, "node", ser.Processor.ParameterSources["addend"])
}

func TestOrchestrator_ContextFallbackAndDefault(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "semantiva.builtin.AddConst"},
	)

	// Context supplies addend.
	result, sink := runOnce(t, doc, Policy{}, RunOptions{
		InitialContext: map[string]any{"addend": 10.0},
	})
	require.NoError(t, result.Err)
	require.Equal(t, 11.0, result.Payload.Data)
	ser := sink.SERs()[1]
	require.Equal(t, "context", ser.Processor.ParameterSources["addend"])
	require.Contains(t, ser.ContextDelta.ReadKeys, "addend")

	// Nothing supplies addend: the default applies.
	result, sink = runOnce(t, doc, Policy{}, RunOptions{})
	require.NoError(t, result.Err)
	require.Equal(t, 1.0, result.Payload.Data)
	require.Equal(t, "default", sink.SERs()[1].Processor.ParameterSources["addend"])
}

func TestOrchestrator_UnresolvableParameterFailsNode(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "semantiva.builtin.MultiplyConst"},
	)

	result, sink := runOnce(t, doc, Policy{}, RunOptions{})
	require.Error(t, result.Err)
	require.Equal(t, 1, result.Summary.Errored)

	ser := sink.SERs()[1]
	require.Equal(t, trace.StatusError, ser.Status)
	require.Equal(t, "ParameterResolutionError", ser.Error.ErrorType)
	require.Contains(t, ser.Error.ErrorMsg, "factor")
}

func TestOrchestrator_UndeclaredContextWrite(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "test.RogueWriter"},
		spec.Node{Processor: "semantiva.builtin.AddConst"},
	)

	result, sink := runOnce(t, doc, Policy{}, RunOptions{})
	require.Error(t, result.Err)

	sers := sink.SERs()
	require.Len(t, sers, 3)
	require.Equal(t, trace.StatusError, sers[1].Status)
	require.Equal(t, "InvalidContextKey", sers[1].Error.ErrorType)

	var writesCheck *trace.Check
	for i := range sers[1].Assertions.Postconditions {
		if sers[1].Assertions.Postconditions[i].Name == CheckContextWritesRealized {
			writesCheck = &sers[1].Assertions.Postconditions[i]
		}
	}
	require.NotNil(t, writesCheck)
	require.False(t, writesCheck.Passed)
	require.Equal(t, []string{"unexpected"}, writesCheck.Details["missing_keys"])

	// Default policy aborts: the trailing node is cancelled.
	require.Equal(t, trace.StatusCancelled, sers[2].Status)
	require.Equal(t, 1, result.Summary.Cancelled)

	end := sink.Records()[4].(trace.PipelineEnd)
	require.Equal(t, 1, end.Summary.Succeeded)
}

func TestOrchestrator_ContinueOnError(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "test.FailingOp"},
		spec.Node{Processor: "semantiva.builtin.AddConst", Parameters: map[string]any{"addend": 1.0}},
	)

	result, sink := runOnce(t, doc, Policy{ContinueOnError: true}, RunOptions{})
	require.Error(t, result.Err)

	sers := sink.SERs()
	require.Equal(t, trace.StatusError, sers[1].Status)
	require.Equal(t, trace.StatusSucceeded, sers[2].Status)
	require.Equal(t, 2, result.Summary.Succeeded)
	require.Equal(t, 1, result.Summary.Errored)
}

func TestOrchestrator_LegalContextWriteDelta(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 4.0}},
		spec.Node{Processor: "test.Annotator"},
	)

	result, sink := runOnce(t, doc, Policy{}, RunOptions{})
	require.NoError(t, result.Err)

	ser := sink.SERs()[1]
	require.Equal(t, []string{"seen"}, ser.ContextDelta.CreatedKeys)
	require.Contains(t, ser.ContextDelta.KeySummaries, "seen")
	summary := ser.ContextDelta.KeySummaries["seen"]
	require.Equal(t, "float64", summary.Dtype)
	require.NotEmpty(t, summary.SHA256)
	require.Empty(t, summary.Repr)
}

func TestOrchestrator_TimeoutCancelsNode(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "test.SlowOp"},
	)

	result, sink := runOnce(t, doc, Policy{Timeout: 20 * time.Millisecond}, RunOptions{})
	require.Error(t, result.Err)

	ser := sink.SERs()[1]
	require.Equal(t, trace.StatusCancelled, ser.Status)
	require.Equal(t, "TimeoutError", ser.Error.ErrorType)
}

func TestOrchestrator_DryRunSkipsEveryNode(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
		spec.Node{Processor: "semantiva.builtin.AddConst"},
	)

	result, sink := runOnce(t, doc, Policy{DryRun: true}, RunOptions{})
	require.NoError(t, result.Err)
	require.Equal(t, 2, result.Summary.Skipped)
	for _, ser := range sink.SERs() {
		require.Equal(t, trace.StatusSkipped, ser.Status)
	}
}

func TestOrchestrator_StrictModeRejectsUnknownParams(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0, "bogus": 1}},
	)

	result, sink := runOnce(t, doc, Policy{Strict: true}, RunOptions{})
	require.Error(t, result.Err)

	ser := sink.SERs()[0]
	require.Equal(t, trace.StatusError, ser.Status)
	require.Equal(t, "InvalidNodeParameterError", ser.Error.ErrorType)
}

func TestOrchestrator_RunSpaceTagsOnStart(t *testing.T) {
	doc := docFor(
		spec.Node{Processor: "semantiva.builtin.ValueSource", Parameters: map[string]any{"value": 1.0}},
	)

	index := 2
	_, sink := runOnce(t, doc, Policy{}, RunOptions{
		RunSpaceLaunch:  "lch-test",
		RunSpaceIndex:   &index,
		RunSpaceContext: map[string]any{"seed": 7},
	})

	start := sink.Records()[0].(trace.PipelineStart)
	require.Equal(t, "lch-test", start.RunSpaceLaunch)
	require.Equal(t, 2, *start.RunSpaceIndex)
	require.Equal(t, map[string]any{"seed": 7}, start.RunSpaceContext)
}
