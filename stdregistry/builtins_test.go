package stdregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/values"
)

func TestRegisterBuiltinsIntArithmetic(t *testing.T) {
	r := registry.NewBuiltinRegistry()
	RegisterBuiltins(r)

	cases := []struct {
		name string
		args []values.Value
		want values.Value
	}{
		{"int.add", []values.Value{values.Integer(2), values.Integer(3)}, values.Integer(5)},
		{"int.sub", []values.Value{values.Integer(5), values.Integer(3)}, values.Integer(2)},
		{"int.mul", []values.Value{values.Integer(4), values.Integer(3)}, values.Integer(12)},
		{"int.div", []values.Value{values.Integer(7), values.Integer(2)}, values.Integer(3)},
		{"int.neg", []values.Value{values.Integer(5)}, values.Integer(-5)},
		{"int.eq", []values.Value{values.Integer(5), values.Integer(5)}, values.Boolean(true)},
		{"int.lt", []values.Value{values.Integer(2), values.Integer(5)}, values.Boolean(true)},
	}
	for _, c := range cases {
		body, err := r.Lookup(c.name, nil)
		require.NoError(t, err, c.name)
		got, ok, msg := body(c.args)
		require.True(t, ok, "%s: %s", c.name, msg)
		assert.True(t, values.Equal(c.want, got), c.name)
	}
}

func TestRegisterBuiltinsIntDivByZeroReturnsZero(t *testing.T) {
	r := registry.NewBuiltinRegistry()
	RegisterBuiltins(r)

	body, err := r.Lookup("int.div", nil)
	require.NoError(t, err)
	got, ok, _ := body([]values.Value{values.Integer(9), values.Integer(0)})
	require.True(t, ok)
	assert.Equal(t, int64(0), got.Int)
}

func TestRegisterBuiltinsFloatDivByZeroIsInf(t *testing.T) {
	r := registry.NewBuiltinRegistry()
	RegisterBuiltins(r)

	body, err := r.Lookup("float.div", nil)
	require.NoError(t, err)
	got, ok, _ := body([]values.Value{values.Float(1), values.Float(0)})
	require.True(t, ok)

	isNaN, err := r.Lookup("float.isNaN", nil)
	require.NoError(t, err)
	nanResult, ok, _ := isNaN([]values.Value{got})
	require.True(t, ok)
	assert.False(t, nanResult.Bool, "1/0 should be +Inf, not NaN")
}

func TestRegisterBuiltinsStringOps(t *testing.T) {
	r := registry.NewBuiltinRegistry()
	RegisterBuiltins(r)

	concat, err := r.Lookup("string.concat", nil)
	require.NoError(t, err)
	got, ok, _ := concat([]values.Value{values.String("foo"), values.String("bar")})
	require.True(t, ok)
	assert.Equal(t, "foobar", got.Str)

	contains, err := r.Lookup("string.contains", nil)
	require.NoError(t, err)
	got, ok, _ = contains([]values.Value{values.String("foobar"), values.String("oba")})
	require.True(t, ok)
	assert.True(t, got.Bool)
}

func TestRegisterBuiltinsGenericEqIgnoresTypeParams(t *testing.T) {
	r := registry.NewBuiltinRegistry()
	RegisterBuiltins(r)

	body, err := r.Lookup("generic.eq", nil)
	require.NoError(t, err)
	got, ok, _ := body([]values.Value{values.Integer(1), values.Integer(1)})
	require.True(t, ok)
	assert.True(t, got.Bool)

	got, ok, _ = body([]values.Value{values.String("a"), values.String("b")})
	require.True(t, ok)
	assert.False(t, got.Bool)
}

func TestRegisterPlatformsDebugEcho(t *testing.T) {
	r := registry.NewPlatformRegistry()
	RegisterPlatforms(r)

	body, async, err := r.Lookup("debug.echo", nil)
	require.NoError(t, err)
	assert.False(t, async)
	res := body([]values.Value{values.String("hi")})
	require.Equal(t, "hi", res.Value.Str)

	_, async, err = r.Lookup("debug.echoAsync", nil)
	require.NoError(t, err)
	assert.True(t, async)
}
