// Package engine executes plans: parameter resolution, the per-node
// runtime, the orchestrator lifecycle, and the executor/transport seams.
package engine

import (
	"github.com/semantiva/semantiva-go/internal/graph"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Parameter provenance values recorded per resolved parameter.
const (
	SourceNode    = "node"
	SourceContext = "context"
	SourceDefault = "default"
)

// ResolvedParams is the parameter map a processor is invoked with, plus the
// provenance of each value.
type ResolvedParams struct {
	Values  map[string]any
	Sources map[string]string
	// ContextReads lists the keys satisfied from context, in resolution
	// order; the runtime records them on the observer.
	ContextReads []string
}

// ResolveParameters computes the invocation parameters for one node. For
// each formal parameter the precedence is node config, then context, then
// the processor default; anything else fails naming the parameter.
func ResolveParameters(node *graph.PlanNode, ctx *pipeline.ContextStore) (ResolvedParams, error) {
	resolved := ResolvedParams{
		Values:  make(map[string]any),
		Sources: make(map[string]string),
	}

	for _, param := range node.Processor.Params() {
		if value, ok := node.EffectiveParams[param.Name]; ok {
			resolved.Values[param.Name] = value
			resolved.Sources[param.Name] = SourceNode
			continue
		}
		if value, ok := ctx.Get(param.Name); ok {
			resolved.Values[param.Name] = value
			resolved.Sources[param.Name] = SourceContext
			resolved.ContextReads = append(resolved.ContextReads, param.Name)
			continue
		}
		if param.HasDefault {
			resolved.Values[param.Name] = param.Default
			resolved.Sources[param.Name] = SourceDefault
			continue
		}
		return ResolvedParams{}, semerrors.NewParameterError(
			node.Canonical.UUID, node.Processor.Ref(), param.Name)
	}

	return resolved, nil
}
