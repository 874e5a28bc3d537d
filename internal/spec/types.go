// Package spec defines the declarative pipeline document and its parsing
// and validation. The document is the only input surface of the core: nodes
// plus optional execution, trace, and run_space blocks.
package spec

import (
	"gopkg.in/yaml.v3"
)

// Document is the full declarative specification.
type Document struct {
	Version   string         `yaml:"version,omitempty"`
	Name      string         `yaml:"name,omitempty" validate:"omitempty,max=100"`
	Nodes     []Node         `yaml:"nodes" validate:"required,min=1,dive"`
	Execution ExecutionBlock `yaml:"execution,omitempty"`
	Trace     TraceBlock     `yaml:"trace,omitempty"`
	RunSpace  *RunSpaceBlock `yaml:"run_space,omitempty"`
}

// Node declares one processor placement. Unknown top-level keys are
// tolerated and surfaced as warnings rather than rejected.
type Node struct {
	Processor  string         `yaml:"processor" validate:"required"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	ContextKey string         `yaml:"context_key,omitempty"`
	Ports      map[string]any `yaml:"ports,omitempty"`
	Derive     *DeriveBlock   `yaml:"derive,omitempty"`

	// UnknownKeys records node-level keys the schema does not define.
	UnknownKeys []string `yaml:"-"`
}

var nodeKnownKeys = map[string]struct{}{
	"processor":   {},
	"parameters":  {},
	"context_key": {},
	"ports":       {},
	"derive":      {},
}

// UnmarshalYAML decodes a node and collects unknown keys instead of failing
// on them.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	type rawNode Node
	var raw rawNode
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*n = Node(raw)

	n.UnknownKeys = nil
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if _, known := nodeKnownKeys[key]; !known {
			n.UnknownKeys = append(n.UnknownKeys, key)
		}
	}
	return nil
}

// DeriveBlock declares pre-execution parameter computation for a node.
type DeriveBlock struct {
	ParameterSweep *SweepSpec `yaml:"parameter_sweep,omitempty"`
}

// SweepSpec expands variable domains through expressions into a parameter
// collection before the node runs.
type SweepSpec struct {
	Target      string                `yaml:"target" validate:"required"`
	Mode        string                `yaml:"mode,omitempty" validate:"omitempty,oneof=by_position combinatorial"`
	Broadcast   bool                  `yaml:"broadcast,omitempty"`
	Collection  string                `yaml:"collection,omitempty"`
	Variables   map[string]SweepRange `yaml:"variables" validate:"required,min=1"`
	Expressions map[string]string     `yaml:"expressions,omitempty"`
}

// SweepRange is either an explicit value list or a lo/hi/steps linear range.
type SweepRange struct {
	Values []any   `yaml:"values,omitempty"`
	Lo     float64 `yaml:"lo,omitempty"`
	Hi     float64 `yaml:"hi,omitempty"`
	Steps  int     `yaml:"steps,omitempty" validate:"omitempty,min=2"`
}

// IsExplicit reports whether the range is an explicit value list.
func (r SweepRange) IsExplicit() bool {
	return len(r.Values) > 0
}

// ExecutionBlock holds run-wide execution settings.
type ExecutionBlock struct {
	Strict          bool `yaml:"strict,omitempty"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
	Timeout         int  `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	Parallel        int  `yaml:"parallel,omitempty" validate:"omitempty,min=1,max=32"`
	DryRun          bool `yaml:"dry_run,omitempty"`
}

// TraceBlock configures SER detail and the sink destination.
type TraceBlock struct {
	Detail string `yaml:"detail,omitempty" validate:"omitempty,oneof=hash repr context all"`
	Output string `yaml:"output,omitempty"`
}

// RunSpaceBlock expands one spec into many parameterized runs.
type RunSpaceBlock struct {
	Combine        string         `yaml:"combine,omitempty" validate:"omitempty,oneof=combinatorial by_position"`
	MaxRuns        int            `yaml:"max_runs,omitempty" validate:"omitempty,min=1"`
	DryRun         bool           `yaml:"dry_run,omitempty"`
	IdempotencyKey string         `yaml:"idempotency_key,omitempty"`
	Blocks         []RunSpaceUnit `yaml:"blocks" validate:"required,min=1,dive"`
	Inputs         map[string]any `yaml:"inputs,omitempty"`
}

// RunSpaceUnit is a single expansion block.
type RunSpaceUnit struct {
	Mode    string           `yaml:"mode" validate:"required,oneof=by_position combinatorial"`
	Context map[string][]any `yaml:"context" validate:"required,min=1"`
	Sources map[string]any   `yaml:"sources,omitempty"`
}
