// Package graph canonicalizes a spec document into GraphV1: deterministic
// node identities, a linear edge chain, and the per-node metadata the
// runtime executes against.
package graph

import (
	"reflect"

	"github.com/semantiva/semantiva-go/internal/derive"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/spec"
)

// Graph is the canonical pipeline representation. Its structural content
// (see CanonicalFields) hashes into the pipeline ID; runtime-only metadata
// lives on Plan nodes instead.
type Graph struct {
	Version    int    `json:"version"`
	PipelineID string `json:"pipeline_id"`
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
}

// Node is one canonical node entry.
type Node struct {
	UUID         string         `json:"uuid"`
	Role         string         `json:"role"`
	ProcessorRef string         `json:"processor_ref"`
	Params       map[string]any `json:"params,omitempty"`
	Ports        map[string]any `json:"ports,omitempty"`
	SemanticID   string         `json:"node_semantic_id"`
}

// Edge connects two nodes by index. The default chain is linear.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Plan couples the canonical graph with the resolved runtime metadata the
// orchestrator needs per node.
type Plan struct {
	Graph *Graph
	Nodes []PlanNode
}

// PlanNode is the runtime view of one node.
type PlanNode struct {
	Index     int
	Spec      spec.Node
	Canonical Node
	Processor pipeline.Processor

	// ContextKey is required for probes; the runtime writes the probe's
	// return value under it.
	ContextKey string

	// EffectiveParams are the node config parameters after derive expansion.
	EffectiveParams map[string]any

	// UnknownParams lists config keys the processor does not accept.
	UnknownParams []string

	// RequiredKeys are formal parameters only the context can satisfy.
	RequiredKeys []string

	// DeclaredCreatedKeys / DeclaredSuppressedKeys come from the processor,
	// widened with the probe context key when one is declared.
	DeclaredCreatedKeys    []string
	DeclaredSuppressedKeys []string

	// Expansion is the derive result, when a sweep is declared.
	Expansion *derive.Expansion

	// InputType is nil for sources; EffectiveOutput is the type this node
	// hands downstream (pass-through for probes, sinks, and context
	// processors).
	InputType       reflect.Type
	OutputType      reflect.Type
	EffectiveOutput reflect.Type
}

// CanonicalFields returns the graph content that participates in the
// pipeline hash: the version, the edges, and each node's structural fields
// (role, processor ref, params, ports). Node UUIDs, semantic IDs, and the
// pipeline ID itself are left out.
func (g *Graph) CanonicalFields() map[string]any {
	nodes := make([]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, map[string]any{
			"role":          n.Role,
			"processor_ref": n.ProcessorRef,
			"params":        n.Params,
			"ports":         n.Ports,
		})
	}
	edges := make([]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, map[string]any{"from": e.From, "to": e.To})
	}
	return map[string]any{
		"version": g.Version,
		"nodes":   nodes,
		"edges":   edges,
	}
}
