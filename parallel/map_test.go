package parallel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/interp"
	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/parallel"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/stdregistry"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

func newTestRegistry() *registry.Context {
	builtins := registry.NewBuiltinRegistry()
	stdregistry.RegisterBuiltins(builtins)
	platforms := registry.NewPlatformRegistry()
	stdregistry.RegisterPlatforms(platforms)
	return &registry.Context{Builtins: builtins, Platforms: platforms}
}

// squareClosure builds `x -> x*x` as a hand-assembled closure (no parser
// or compiler exists yet to produce this from source), the way the other
// codec tests build closures directly.
func squareClosure(reg *registry.Context) values.Value {
	body := &ir.Node{
		Kind: ir.KindBuiltin,
		Name: "int.mul",
		Args: []*ir.Node{
			{Kind: ir.KindVariable, Name: "x"},
			{Kind: ir.KindVariable, Name: "x"},
		},
	}
	c := &values.Closure{
		Body:             body,
		Params:           []string{"x"},
		BuiltinRegistry:  reg.Builtins,
		PlatformRegistry: reg.Platforms,
	}
	return values.NewFunction(c)
}

func squares(ints []int64) []values.Value {
	out := make([]values.Value, len(ints))
	for i, n := range ints {
		out[i] = values.Integer(n * n)
	}
	return out
}

func intArray(ints []int64) values.Value {
	items := make([]values.Value, len(ints))
	for i, n := range ints {
		items[i] = values.Integer(n)
	}
	return values.NewArray(types.Integer, items)
}

func TestMapSequentialFallback(t *testing.T) {
	reg := newTestRegistry()
	ip := interp.New(interp.Options{Builtins: reg.Builtins, Platforms: reg.Platforms})
	fn := squareClosure(reg)

	ints := []int64{1, 2, 3}
	out, err := parallel.Map(ip, intArray(ints), fn, types.Integer, types.Integer, reg, nil)
	require.NoError(t, err)
	require.Equal(t, len(ints), out.Len())
	want := squares(ints)
	for i, w := range want {
		assert.True(t, values.Equal(w, out.At(i)), "index %d", i)
	}
}

// TestMapWorkerFanOut exercises the chunked errgroup path (array length
// above parallel.SequentialThreshold) and checks it matches a plain
// sequential mapping of the same function over the same input —
// parallel_map([1..8], x -> x*x) under (Integer) -> Integer should yield
// the squares in order.
func TestMapWorkerFanOut(t *testing.T) {
	reg := newTestRegistry()
	ip := interp.New(interp.Options{Builtins: reg.Builtins, Platforms: reg.Platforms})
	fn := squareClosure(reg)

	ints := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	require.Greater(t, len(ints), parallel.SequentialThreshold)

	out, err := parallel.Map(ip, intArray(ints), fn, types.Integer, types.Integer, reg, nil)
	require.NoError(t, err)
	require.Equal(t, len(ints), out.Len())
	want := squares(ints)
	for i, w := range want {
		assert.True(t, values.Equal(w, out.At(i)), "index %d", i)
	}
}

func TestMapEmptyArray(t *testing.T) {
	reg := newTestRegistry()
	ip := interp.New(interp.Options{Builtins: reg.Builtins, Platforms: reg.Platforms})
	fn := squareClosure(reg)

	out, err := parallel.Map(ip, intArray(nil), fn, types.Integer, types.Integer, reg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}
