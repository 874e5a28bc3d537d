package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semantiva/semantiva-go/internal/graph"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/processors"
	"github.com/semantiva/semantiva-go/internal/registry"
	"github.com/semantiva/semantiva-go/internal/spec"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

func planNode(t *testing.T, node spec.Node) *graph.PlanNode {
	t.Helper()
	reg := registry.New()
	require.NoError(t, processors.RegisterBuiltins(reg))
	plan, err := graph.NewBuilder(reg, logger.Noop()).Build(&spec.Document{Nodes: []spec.Node{node}})
	require.NoError(t, err)
	return &plan.Nodes[0]
}

func TestResolveParameters_NodeConfigWins(t *testing.T) {
	node := planNode(t, spec.Node{
		Processor:  "semantiva.builtin.AddConst",
		Parameters: map[string]any{"addend": 5},
	})
	ctx := pipeline.ContextFromMap(map[string]any{"addend": 99})

	resolved, err := ResolveParameters(node, ctx)
	require.NoError(t, err)
	require.Equal(t, 5, resolved.Values["addend"])
	require.Equal(t, SourceNode, resolved.Sources["addend"])
	require.Empty(t, resolved.ContextReads)
}

func TestResolveParameters_ContextBeatsDefault(t *testing.T) {
	node := planNode(t, spec.Node{Processor: "semantiva.builtin.AddConst"})
	ctx := pipeline.ContextFromMap(map[string]any{"addend": 99})

	resolved, err := ResolveParameters(node, ctx)
	require.NoError(t, err)
	require.Equal(t, 99, resolved.Values["addend"])
	require.Equal(t, SourceContext, resolved.Sources["addend"])
	require.Equal(t, []string{"addend"}, resolved.ContextReads)
}

func TestResolveParameters_DefaultAsLastResort(t *testing.T) {
	node := planNode(t, spec.Node{Processor: "semantiva.builtin.AddConst"})

	resolved, err := ResolveParameters(node, pipeline.NewContextStore())
	require.NoError(t, err)
	require.Equal(t, 0.0, resolved.Values["addend"])
	require.Equal(t, SourceDefault, resolved.Sources["addend"])
}

func TestResolveParameters_MissingRequiredFails(t *testing.T) {
	node := planNode(t, spec.Node{Processor: "semantiva.builtin.MultiplyConst"})

	_, err := ResolveParameters(node, pipeline.NewContextStore())
	var paramErr *semerrors.ParameterError
	require.ErrorAs(t, err, &paramErr)
	require.Equal(t, "factor", paramErr.Parameter)
}
