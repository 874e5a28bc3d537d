package graph

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/semantiva/semantiva-go/internal/derive"
	"github.com/semantiva/semantiva-go/internal/identity"
	"github.com/semantiva/semantiva-go/internal/logger"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/registry"
	"github.com/semantiva/semantiva-go/internal/spec"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Builder normalizes spec documents into plans.
type Builder struct {
	registry *registry.Registry
	log      *logger.Logger
}

// NewBuilder constructs a builder over the given processor registry.
func NewBuilder(reg *registry.Registry, log *logger.Logger) *Builder {
	return &Builder{registry: reg, log: log}
}

// Build canonicalizes the document: resolves processors, expands derive
// blocks, derives node identities and the pipeline ID, and validates the
// type chain. All failures here are spec-phase; no trace records exist yet.
func (b *Builder) Build(doc *spec.Document) (*Plan, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return nil, semerrors.NewSpecFieldError("nodes", "spec declares no nodes", nil)
	}

	plan := &Plan{
		Graph: &Graph{Version: 1},
		Nodes: make([]PlanNode, 0, len(doc.Nodes)),
	}

	for i, nodeSpec := range doc.Nodes {
		planNode, err := b.buildNode(i, nodeSpec)
		if err != nil {
			return nil, err
		}
		plan.Nodes = append(plan.Nodes, planNode)
		plan.Graph.Nodes = append(plan.Graph.Nodes, planNode.Canonical)
	}

	for i := 0; i+1 < len(plan.Nodes); i++ {
		plan.Graph.Edges = append(plan.Graph.Edges, Edge{From: i, To: i + 1})
	}

	if err := validateTypeChain(plan); err != nil {
		return nil, err
	}

	pipelineID, err := identity.PipelineID(plan.Graph.CanonicalFields())
	if err != nil {
		return nil, err
	}
	plan.Graph.PipelineID = pipelineID

	return plan, nil
}

func (b *Builder) buildNode(index int, nodeSpec spec.Node) (PlanNode, error) {
	proc, err := b.registry.Resolve(nodeSpec.Processor)
	if err != nil {
		return PlanNode{}, semerrors.NewSpecError(index, "processor", err.Error(), err)
	}

	for _, key := range nodeSpec.UnknownKeys {
		b.log.Warn("ignoring unknown node key",
			"node", index, "key", key, "processor", proc.Ref())
	}

	if proc.Role() == pipeline.RoleProbe && nodeSpec.ContextKey == "" {
		return PlanNode{}, semerrors.NewSpecError(index, "context_key",
			fmt.Sprintf("probe node %q requires a context_key", proc.Ref()), nil)
	}
	if proc.Role() == pipeline.RoleProbe && proc.OutputType() != nil {
		return PlanNode{}, semerrors.NewSpecError(index, "processor",
			fmt.Sprintf("probe %q must not declare an output type", proc.Ref()), nil)
	}
	if !pipeline.KeySetsDisjoint(proc) {
		b.log.Warn("created and suppressed key sets overlap",
			"node", index, "processor", proc.Ref())
	}

	effective := make(map[string]any, len(nodeSpec.Parameters))
	for k, v := range nodeSpec.Parameters {
		effective[k] = v
	}

	var expansion *derive.Expansion
	if nodeSpec.Derive != nil && nodeSpec.Derive.ParameterSweep != nil {
		expansion, err = derive.Expand(index, nodeSpec.Derive.ParameterSweep)
		if err != nil {
			return PlanNode{}, err
		}
		effective[expansion.Target] = expansion.Values
	}

	canonicalFields := map[string]any{
		"role":          string(proc.Role()),
		"processor_ref": proc.Ref(),
		"params":        effective,
		"ports":         nodeSpec.Ports,
	}
	nodeUUID, err := identity.NodeUUID(canonicalFields)
	if err != nil {
		return PlanNode{}, err
	}

	semanticFields := map[string]any{
		"role":          string(proc.Role()),
		"processor_ref": proc.Ref(),
		"params":        effective,
		"ports":         nodeSpec.Ports,
	}
	if expansion != nil {
		semanticFields["sweep_signature"] = expansion.Signature.Canonical()
	}
	semanticID, err := identity.SemanticID(semanticFields)
	if err != nil {
		return PlanNode{}, err
	}

	created := append([]string(nil), proc.CreatedKeys()...)
	if nodeSpec.ContextKey != "" {
		created = appendMissing(created, nodeSpec.ContextKey)
	}

	node := PlanNode{
		Index: index,
		Spec:  nodeSpec,
		Canonical: Node{
			UUID:         nodeUUID.String(),
			Role:         string(proc.Role()),
			ProcessorRef: proc.Ref(),
			Params:       effective,
			Ports:        nodeSpec.Ports,
			SemanticID:   semanticID,
		},
		Processor:              proc,
		ContextKey:             nodeSpec.ContextKey,
		EffectiveParams:        effective,
		DeclaredCreatedKeys:    created,
		DeclaredSuppressedKeys: append([]string(nil), proc.SuppressedKeys()...),
		Expansion:              expansion,
		InputType:              proc.InputType(),
		OutputType:             proc.OutputType(),
	}
	node.EffectiveOutput = effectiveOutput(proc)
	node.UnknownParams = unknownParams(proc, effective)
	node.RequiredKeys = requiredContextKeys(proc, effective)

	return node, nil
}

// effectiveOutput is the type a node hands downstream: probes, sinks, and
// context processors pass their input through.
func effectiveOutput(proc pipeline.Processor) reflect.Type {
	switch proc.Role() {
	case pipeline.RoleProbe, pipeline.RoleSink, pipeline.RoleContext:
		return proc.InputType()
	default:
		return proc.OutputType()
	}
}

func unknownParams(proc pipeline.Processor, config map[string]any) []string {
	accepted := make(map[string]struct{})
	for _, p := range proc.Params() {
		accepted[p.Name] = struct{}{}
	}
	var unknown []string
	for key := range config {
		if _, ok := accepted[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sortStrings(unknown)
	return unknown
}

func requiredContextKeys(proc pipeline.Processor, config map[string]any) []string {
	var required []string
	for _, p := range proc.Params() {
		if p.HasDefault {
			continue
		}
		if _, inConfig := config[p.Name]; inConfig {
			continue
		}
		required = append(required, p.Name)
	}
	sortStrings(required)
	return required
}

func validateTypeChain(plan *Plan) error {
	for i, node := range plan.Nodes {
		switch node.Processor.Role() {
		case pipeline.RoleSource:
			if node.InputType != nil {
				return semerrors.NewSpecError(i, "processor",
					fmt.Sprintf("source %q must not declare an input type", node.Processor.Ref()), nil)
			}
		case pipeline.RoleContext, pipeline.RoleSink:
			if node.OutputType != nil && node.OutputType != node.InputType {
				return semerrors.NewSpecError(i, "processor",
					fmt.Sprintf("%s %q must pass its input type through", node.Processor.Role(), node.Processor.Ref()), nil)
			}
		}
	}

	for i := 0; i+1 < len(plan.Nodes); i++ {
		up := plan.Nodes[i]
		down := plan.Nodes[i+1]
		if down.InputType == nil {
			// Sources accept anything upstream hands them; nothing to gate.
			continue
		}
		if up.EffectiveOutput == nil {
			return semerrors.NewTypeError(i, i+1, "<none>", typeName(down.InputType))
		}
		if !pipeline.TypesCompatible(up.EffectiveOutput, down.InputType) {
			return semerrors.NewTypeError(i, i+1, typeName(up.EffectiveOutput), typeName(down.InputType))
		}
	}
	return nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<none>"
	}
	return t.String()
}

func appendMissing(list []string, key string) []string {
	for _, k := range list {
		if k == key {
			return list
		}
	}
	return append(list, key)
}

func sortStrings(list []string) {
	sort.Strings(list)
}
