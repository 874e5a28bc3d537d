package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semantiva/semantiva-go/internal/pipeline"
	"github.com/semantiva/semantiva-go/internal/registry"
)

func TestRegisterBuiltins(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterBuiltins(reg))
	refs := reg.Refs()
	require.Contains(t, refs, "semantiva.builtin.ValueSource")
	require.Contains(t, refs, "semantiva.builtin.AddConst")
	require.Contains(t, refs, "semantiva.builtin.CollectProbe")
	require.Contains(t, refs, "semantiva.builtin.DataBufferSink")
}

func TestValueSource(t *testing.T) {
	src := &ValueSource{}
	out, err := src.Process(context.Background(), pipeline.Call{Params: map[string]any{"value": 1.5}})
	require.NoError(t, err)
	require.Equal(t, 1.5, out)

	_, err = src.Process(context.Background(), pipeline.Call{Params: map[string]any{"value": "nope"}})
	require.Error(t, err)
}

func TestAddConst_CoercesIntParams(t *testing.T) {
	op := &AddConst{}
	out, err := op.Process(context.Background(), pipeline.Call{
		Data:   1.0,
		Params: map[string]any{"addend": 5},
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, out)
}

func TestMultiplyConst(t *testing.T) {
	op := &MultiplyConst{}
	out, err := op.Process(context.Background(), pipeline.Call{
		Data:   3.0,
		Params: map[string]any{"factor": 2.0},
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, out)
}

func TestStringFormat(t *testing.T) {
	op := &StringFormat{}
	out, err := op.Process(context.Background(), pipeline.Call{
		Data:   2.5,
		Params: map[string]any{"format": "v=%v"},
	})
	require.NoError(t, err)
	require.Equal(t, "v=2.5", out)
}

func TestCollectProbe_ReturnsDataUnchanged(t *testing.T) {
	probe := &CollectProbe{}
	out, err := probe.Process(context.Background(), pipeline.Call{Data: 7.0})
	require.NoError(t, err)
	require.Equal(t, 7.0, out)
	require.Nil(t, probe.OutputType())
}

func TestContextInjectorAndCleaner(t *testing.T) {
	store := pipeline.NewContextStore()
	obs := pipeline.NewValidatingContextObserver(store, []string{"annotation"}, []string{"annotation"})

	injector := &ContextInjector{}
	_, err := injector.Process(context.Background(), pipeline.Call{
		Params:  map[string]any{"value": "tagged"},
		Mutator: obs,
	})
	require.NoError(t, err)
	v, ok := store.Get("annotation")
	require.True(t, ok)
	require.Equal(t, "tagged", v)

	cleaner := &ContextCleaner{}
	_, err = cleaner.Process(context.Background(), pipeline.Call{Mutator: obs})
	require.NoError(t, err)
	require.False(t, store.Has("annotation"))
}

func TestDataBufferSink_Collects(t *testing.T) {
	sink := &DataBufferSink{}
	for _, v := range []float64{1, 2, 3} {
		_, err := sink.Process(context.Background(), pipeline.Call{Data: v})
		require.NoError(t, err)
	}
	require.Equal(t, []float64{1, 2, 3}, sink.Collected())
}
