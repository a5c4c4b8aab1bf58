package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/values"
)

func TestBuiltinRegisterDirectAndLookup(t *testing.T) {
	r := NewBuiltinRegistry()
	r.RegisterDirect("int.add", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(args[0].Int + args[1].Int), true, ""
	})

	body, err := r.Lookup("int.add", nil)
	require.NoError(t, err)
	result, ok, _ := body([]values.Value{values.Integer(2), values.Integer(3)})
	assert.True(t, ok)
	assert.Equal(t, int64(5), result.Int)
}

func TestBuiltinLookupUnknown(t *testing.T) {
	r := NewBuiltinRegistry()
	_, err := r.Lookup("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownBuiltin)
}

func TestPlatformRegistryTracksAsyncFlag(t *testing.T) {
	r := NewPlatformRegistry()
	r.RegisterDirect("time.now", false, func(args []values.Value) ir.EvalResult {
		return ir.OkResult(values.DateTime(0))
	})
	r.RegisterDirect("http.fetch", true, func(args []values.Value) ir.EvalResult {
		return ir.OkResult(values.Null())
	})

	_, async, err := r.Lookup("time.now", nil)
	require.NoError(t, err)
	assert.False(t, async)

	_, async, err = r.Lookup("http.fetch", nil)
	require.NoError(t, err)
	assert.True(t, async)
}
