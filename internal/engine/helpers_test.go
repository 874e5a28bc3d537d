package engine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/semantiva/semantiva-go/internal/pipeline"
)

var float64Type = reflect.TypeOf(float64(0))

// rogueWriter is an operation that attempts a context write outside its
// declared created set.
type rogueWriter struct{}

func (*rogueWriter) Ref() string              { return "test.RogueWriter" }
func (*rogueWriter) Role() pipeline.Role      { return pipeline.RoleOperation }
func (*rogueWriter) InputType() reflect.Type  { return float64Type }
func (*rogueWriter) OutputType() reflect.Type { return float64Type }
func (*rogueWriter) CreatedKeys() []string    { return []string{"allowed"} }
func (*rogueWriter) SuppressedKeys() []string { return nil }
func (*rogueWriter) Params() []pipeline.ParamSpec {
	return nil
}

func (*rogueWriter) Process(_ context.Context, call pipeline.Call) (any, error) {
	if err := call.Mutator.NotifyUpdate("unexpected", 1); err != nil {
		return nil, err
	}
	return call.Data, nil
}

// annotator is an operation that legally records a key while transforming.
type annotator struct{}

func (*annotator) Ref() string              { return "test.Annotator" }
func (*annotator) Role() pipeline.Role      { return pipeline.RoleOperation }
func (*annotator) InputType() reflect.Type  { return float64Type }
func (*annotator) OutputType() reflect.Type { return float64Type }
func (*annotator) CreatedKeys() []string    { return []string{"seen"} }
func (*annotator) SuppressedKeys() []string { return nil }
func (*annotator) Params() []pipeline.ParamSpec {
	return nil
}

func (*annotator) Process(_ context.Context, call pipeline.Call) (any, error) {
	if err := call.Mutator.NotifyUpdate("seen", call.Data); err != nil {
		return nil, err
	}
	return call.Data, nil
}

// slowOp blocks until its delay elapses or the call context ends.
type slowOp struct {
	delay time.Duration
}

func (*slowOp) Ref() string              { return "test.SlowOp" }
func (*slowOp) Role() pipeline.Role      { return pipeline.RoleOperation }
func (*slowOp) InputType() reflect.Type  { return float64Type }
func (*slowOp) OutputType() reflect.Type { return float64Type }
func (*slowOp) CreatedKeys() []string    { return nil }
func (*slowOp) SuppressedKeys() []string { return nil }
func (*slowOp) Params() []pipeline.ParamSpec {
	return nil
}

func (s *slowOp) Process(ctx context.Context, call pipeline.Call) (any, error) {
	select {
	case <-time.After(s.delay):
		return call.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// failingOp always returns a business error.
type failingOp struct{}

func (*failingOp) Ref() string              { return "test.FailingOp" }
func (*failingOp) Role() pipeline.Role      { return pipeline.RoleOperation }
func (*failingOp) InputType() reflect.Type  { return float64Type }
func (*failingOp) OutputType() reflect.Type { return float64Type }
func (*failingOp) CreatedKeys() []string    { return nil }
func (*failingOp) SuppressedKeys() []string { return nil }
func (*failingOp) Params() []pipeline.ParamSpec {
	return nil
}

func (*failingOp) Process(context.Context, pipeline.Call) (any, error) {
	return nil, fmt.Errorf("deliberate failure")
}
