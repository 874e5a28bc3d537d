// Package processors ships the reference processor set: a numeric source,
// arithmetic operations, a collecting probe, context processors, and a
// buffering sink. They double as the fixtures the engine tests run against.
package processors

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/registry"
)

var (
	float64Type = reflect.TypeOf(float64(0))
	stringType  = reflect.TypeOf("")
)

// RegisterBuiltins adds the full reference set to a registry.
func RegisterBuiltins(reg *registry.Registry) error {
	factories := []registry.Factory{
		func() pipeline.Processor { return &ValueSource{} },
		func() pipeline.Processor { return &AddConst{} },
		func() pipeline.Processor { return &MultiplyConst{} },
		func() pipeline.Processor { return &StringFormat{} },
		func() pipeline.Processor { return &CollectProbe{} },
		func() pipeline.Processor { return &ContextInjector{} },
		func() pipeline.Processor { return &ContextCleaner{} },
		func() pipeline.Processor { return &DataBufferSink{} },
	}
	for _, factory := range factories {
		if err := reg.Register(factory); err != nil {
			return err
		}
	}
	return nil
}

// ValueSource emits a configured float value.
type ValueSource struct{}

func (*ValueSource) Ref() string                { return "semantiva.builtin.ValueSource" }
func (*ValueSource) Role() pipeline.Role        { return pipeline.RoleSource }
func (*ValueSource) InputType() reflect.Type    { return nil }
func (*ValueSource) OutputType() reflect.Type   { return float64Type }
func (*ValueSource) CreatedKeys() []string      { return nil }
func (*ValueSource) SuppressedKeys() []string   { return nil }
func (*ValueSource) Params() []pipeline.ParamSpec {
	return []pipeline.ParamSpec{{Name: "value", Required: true}}
}

func (*ValueSource) Process(_ context.Context, call pipeline.Call) (any, error) {
	value, err := asFloat(call.Params["value"])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	return value, nil
}

// AddConst adds a constant to the incoming value.
type AddConst struct{}

func (*AddConst) Ref() string              { return "semantiva.builtin.AddConst" }
func (*AddConst) Role() pipeline.Role      { return pipeline.RoleOperation }
func (*AddConst) InputType() reflect.Type  { return float64Type }
func (*AddConst) OutputType() reflect.Type { return float64Type }
func (*AddConst) CreatedKeys() []string    { return nil }
func (*AddConst) SuppressedKeys() []string { return nil }
func (*AddConst) Params() []pipeline.ParamSpec {
	return []pipeline.ParamSpec{{Name: "addend", Default: 0.0, HasDefault: true}}
}

func (*AddConst) Process(_ context.Context, call pipeline.Call) (any, error) {
	addend, err := asFloat(call.Params["addend"])
	if err != nil {
		return nil, fmt.Errorf("addend: %w", err)
	}
	input, err := asFloat(call.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return input + addend, nil
}

// MultiplyConst multiplies the incoming value by a constant factor.
type MultiplyConst struct{}

func (*MultiplyConst) Ref() string              { return "semantiva.builtin.MultiplyConst" }
func (*MultiplyConst) Role() pipeline.Role      { return pipeline.RoleOperation }
func (*MultiplyConst) InputType() reflect.Type  { return float64Type }
func (*MultiplyConst) OutputType() reflect.Type { return float64Type }
func (*MultiplyConst) CreatedKeys() []string    { return nil }
func (*MultiplyConst) SuppressedKeys() []string { return nil }
func (*MultiplyConst) Params() []pipeline.ParamSpec {
	return []pipeline.ParamSpec{{Name: "factor", Required: true}}
}

func (*MultiplyConst) Process(_ context.Context, call pipeline.Call) (any, error) {
	factor, err := asFloat(call.Params["factor"])
	if err != nil {
		return nil, fmt.Errorf("factor: %w", err)
	}
	input, err := asFloat(call.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return input * factor, nil
}

// StringFormat renders the incoming value through a format string.
type StringFormat struct{}

func (*StringFormat) Ref() string              { return "semantiva.builtin.StringFormat" }
func (*StringFormat) Role() pipeline.Role      { return pipeline.RoleOperation }
func (*StringFormat) InputType() reflect.Type  { return float64Type }
func (*StringFormat) OutputType() reflect.Type { return stringType }
func (*StringFormat) CreatedKeys() []string    { return nil }
func (*StringFormat) SuppressedKeys() []string { return nil }
func (*StringFormat) Params() []pipeline.ParamSpec {
	return []pipeline.ParamSpec{{Name: "format", Default: "%v", HasDefault: true}}
}

func (*StringFormat) Process(_ context.Context, call pipeline.Call) (any, error) {
	format, ok := call.Params["format"].(string)
	if !ok {
		return nil, fmt.Errorf("format must be a string, got %T", call.Params["format"])
	}
	return fmt.Sprintf(format, call.Data), nil
}

// CollectProbe observes the flowing value. The runtime writes its return
// under the node's context_key; the probe itself never touches context.
type CollectProbe struct{}

func (*CollectProbe) Ref() string              { return "semantiva.builtin.CollectProbe" }
func (*CollectProbe) Role() pipeline.Role      { return pipeline.RoleProbe }
func (*CollectProbe) InputType() reflect.Type  { return float64Type }
func (*CollectProbe) OutputType() reflect.Type { return nil }
func (*CollectProbe) CreatedKeys() []string    { return nil }
func (*CollectProbe) SuppressedKeys() []string { return nil }
func (*CollectProbe) Params() []pipeline.ParamSpec {
	return nil
}

func (*CollectProbe) Process(_ context.Context, call pipeline.Call) (any, error) {
	return call.Data, nil
}

// ContextInjector writes a configured value under the "annotation" key.
type ContextInjector struct{}

func (*ContextInjector) Ref() string              { return "semantiva.builtin.ContextInjector" }
func (*ContextInjector) Role() pipeline.Role      { return pipeline.RoleContext }
func (*ContextInjector) InputType() reflect.Type  { return float64Type }
func (*ContextInjector) OutputType() reflect.Type { return nil }
func (*ContextInjector) CreatedKeys() []string    { return []string{"annotation"} }
func (*ContextInjector) SuppressedKeys() []string { return nil }
func (*ContextInjector) Params() []pipeline.ParamSpec {
	return []pipeline.ParamSpec{{Name: "value", Required: true}}
}

func (*ContextInjector) Process(_ context.Context, call pipeline.Call) (any, error) {
	if err := call.Mutator.NotifyUpdate("annotation", call.Params["value"]); err != nil {
		return nil, err
	}
	return nil, nil
}

// ContextCleaner deletes the "annotation" key.
type ContextCleaner struct{}

func (*ContextCleaner) Ref() string              { return "semantiva.builtin.ContextCleaner" }
func (*ContextCleaner) Role() pipeline.Role      { return pipeline.RoleContext }
func (*ContextCleaner) InputType() reflect.Type  { return float64Type }
func (*ContextCleaner) OutputType() reflect.Type { return nil }
func (*ContextCleaner) CreatedKeys() []string    { return nil }
func (*ContextCleaner) SuppressedKeys() []string { return []string{"annotation"} }
func (*ContextCleaner) Params() []pipeline.ParamSpec {
	return nil
}

func (*ContextCleaner) Process(_ context.Context, call pipeline.Call) (any, error) {
	if err := call.Mutator.NotifyDelete("annotation"); err != nil {
		return nil, err
	}
	return nil, nil
}

// DataBufferSink accumulates every value it consumes. Each node gets its
// own instance, so tests read back through the plan's processor handle.
type DataBufferSink struct {
	mu     sync.Mutex
	values []float64
}

func (*DataBufferSink) Ref() string              { return "semantiva.builtin.DataBufferSink" }
func (*DataBufferSink) Role() pipeline.Role      { return pipeline.RoleSink }
func (*DataBufferSink) InputType() reflect.Type  { return float64Type }
func (*DataBufferSink) OutputType() reflect.Type { return nil }
func (*DataBufferSink) CreatedKeys() []string    { return nil }
func (*DataBufferSink) SuppressedKeys() []string { return nil }
func (*DataBufferSink) Params() []pipeline.ParamSpec {
	return nil
}

func (s *DataBufferSink) Process(_ context.Context, call pipeline.Call) (any, error) {
	value, err := asFloat(call.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	s.mu.Lock()
	s.values = append(s.values, value)
	s.mu.Unlock()
	return nil, nil
}

// Collected returns the consumed values in arrival order.
func (s *DataBufferSink) Collected() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.values...)
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
