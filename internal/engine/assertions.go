package engine

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/semantiva/semantiva-go/internal/graph"
	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/trace"
)

// FrameworkVersion is pinned into every environment snapshot.
const FrameworkVersion = "0.1.0"

// Built-in assertion names. The set is fixed; processors cannot add to it.
const (
	CheckInputTypeOK           = "input_type_ok"
	CheckRequiredKeysPresent   = "required_keys_present"
	CheckConfigValid           = "config_valid"
	CheckOutputTypeOK          = "output_type_ok"
	CheckContextWritesRealized = "context_writes_realized"
)

// Pins captures the environment snapshot. Computed once per run by the
// orchestrator and stamped into every SER.
func Pins() trace.EnvironmentPins {
	return trace.EnvironmentPins{
		RuntimeVersion:   runtime.Version(),
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		FrameworkVersion: FrameworkVersion,
	}
}

// checkInputType gates the incoming payload against the node's declared
// input type. Sources have no gate.
func checkInputType(node *graph.PlanNode, payload pipeline.Payload) trace.Check {
	if node.InputType == nil {
		return trace.Check{Name: CheckInputTypeOK, Passed: true}
	}

	actual := payload.DataType()
	passed := pipeline.TypesCompatible(actual, node.InputType)
	check := trace.Check{Name: CheckInputTypeOK, Passed: passed}
	if !passed {
		check.Details = map[string]any{
			"expected": node.InputType.String(),
			"actual":   actual.String(),
		}
	}
	return check
}

// checkRequiredKeys verifies the context-only parameters were satisfiable.
func checkRequiredKeys(node *graph.PlanNode, ctx *pipeline.ContextStore, resolved ResolvedParams) trace.Check {
	var missing []string
	for _, key := range node.RequiredKeys {
		if _, ok := resolved.Sources[key]; !ok {
			if !ctx.Has(key) {
				missing = append(missing, key)
			}
		}
	}
	check := trace.Check{Name: CheckRequiredKeysPresent, Passed: len(missing) == 0}
	if len(missing) > 0 {
		check.Details = map[string]any{"missing_keys": missing}
	}
	return check
}

// checkConfig reports unknown node parameters. Outside strict mode the
// check passes with the unknown keys noted.
func checkConfig(node *graph.PlanNode, strict bool) trace.Check {
	check := trace.Check{Name: CheckConfigValid, Passed: true}
	if len(node.UnknownParams) == 0 {
		return check
	}
	check.Details = map[string]any{"unknown_parameters": node.UnknownParams}
	if strict {
		check.Passed = false
	}
	return check
}

// checkOutputType validates the produced data against the declared output
// type. Nodes without an output declaration pass data through unchecked.
func checkOutputType(node *graph.PlanNode, produced any) trace.Check {
	if node.OutputType == nil {
		return trace.Check{Name: CheckOutputTypeOK, Passed: true}
	}

	actual := reflect.TypeOf(produced)
	if produced == nil {
		actual = pipeline.NoDataType
	}
	passed := pipeline.TypesCompatible(actual, node.OutputType)
	check := trace.Check{Name: CheckOutputTypeOK, Passed: passed}
	if !passed {
		check.Details = map[string]any{
			"expected": node.OutputType.String(),
			"actual":   fmt.Sprintf("%v", actual),
		}
	}
	return check
}

// checkContextWrites fails when the processor attempted mutations outside
// its declared key sets; the rejected keys are listed.
func checkContextWrites(delta pipeline.ContextDelta) trace.Check {
	check := trace.Check{Name: CheckContextWritesRealized, Passed: len(delta.RejectedKeys) == 0}
	if len(delta.RejectedKeys) > 0 {
		check.Details = map[string]any{"missing_keys": delta.RejectedKeys}
	}
	return check
}
