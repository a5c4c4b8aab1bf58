package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// TestCompactScalarS1 is scenario S1: Integer(-1) encodes to the single
// zigzag-varint byte 0x01.
func TestCompactScalarS1(t *testing.T) {
	b, err := EncodeCompact(values.Integer(-1), types.Integer)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, b)

	v, err := DecodeCompact(b, types.Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v.Int)
}

// TestCompactStringS2 is scenario S2: String("hi") encodes to a varint
// length byte followed by the raw UTF-8 bytes.
func TestCompactStringS2(t *testing.T) {
	b, err := EncodeCompact(values.String("hi"), types.String)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 'h', 'i'}, b)
}

func roundTrip(t *testing.T, v values.Value, typ *types.Descriptor) values.Value {
	t.Helper()
	b, err := EncodeCompact(v, typ)
	require.NoError(t, err)
	out, err := DecodeCompact(b, typ)
	require.NoError(t, err)
	return out
}

func TestCompactRoundTripPrimitives(t *testing.T) {
	cases := []struct {
		v values.Value
		t *types.Descriptor
	}{
		{values.Null(), types.Null},
		{values.Boolean(true), types.Boolean},
		{values.Boolean(false), types.Boolean},
		{values.Integer(0), types.Integer},
		{values.Integer(1234567890123), types.Integer},
		{values.Integer(-9999), types.Integer},
		{values.Float(3.5), types.Float},
		{values.Float(-0.0), types.Float},
		{values.String(""), types.String},
		{values.String("hello, world"), types.String},
		{values.DateTime(1700000000123), types.DateTime},
		{values.Blob([]byte{0xde, 0xad, 0xbe, 0xef}), types.Blob},
	}
	for _, c := range cases {
		out := roundTrip(t, c.v, c.t)
		assert.True(t, values.Equal(c.v, out), "round trip of %v", c.v)
	}
}

func TestCompactRoundTripArraySetDict(t *testing.T) {
	arr := values.NewArray(types.Integer, []values.Value{values.Integer(1), values.Integer(2), values.Integer(3)})
	out := roundTrip(t, arr, types.NewArray(types.Integer))
	assert.True(t, values.Equal(arr, out))

	set := values.NewSet(types.String, []values.Value{values.String("a"), values.String("b")})
	out = roundTrip(t, set, types.NewSet(types.String))
	assert.True(t, values.Equal(set, out))

	dict := values.NewDict(types.String, types.Integer, []values.Value{values.String("x")}, []values.Value{values.Integer(1)})
	out = roundTrip(t, dict, types.NewDict(types.String, types.Integer))
	assert.True(t, values.Equal(dict, out))
}

func TestCompactRoundTripStructVariant(t *testing.T) {
	st := types.NewStruct([]types.StructField{{Name: "x", Type: types.Integer}, {Name: "y", Type: types.String}})
	v := values.NewStruct(st, []values.Value{values.Integer(7), values.String("seven")})
	out := roundTrip(t, v, st)
	assert.True(t, values.Equal(v, out))

	variant := types.NewVariant([]types.VariantCase{{Name: "None", Type: types.Null}, {Name: "Some", Type: types.Integer}})
	some := values.NewVariant(variant, "Some", values.Integer(5))
	out = roundTrip(t, some, variant)
	assert.True(t, values.Equal(some, out))
}

func TestCompactRoundTripVectorMatrix(t *testing.T) {
	vec := values.NewVector(types.ScalarFloat, 3)
	values.SetFloat(vec, 0, 1.5)
	values.SetFloat(vec, 1, 2.5)
	values.SetFloat(vec, 2, -3.5)
	out := roundTrip(t, vec, types.NewVector(types.ScalarFloat))
	for i := 0; i < 3; i++ {
		assert.Equal(t, values.GetFloat(vec, i), values.GetFloat(out, i))
	}

	mat := values.NewMatrix(types.ScalarInteger, 2, 2)
	values.SetInteger(mat, 0, 1)
	values.SetInteger(mat, 1, 2)
	values.SetInteger(mat, 2, 3)
	values.SetInteger(mat, 3, 4)
	out = roundTrip(t, mat, types.NewMatrix(types.ScalarInteger))
	for i := 0; i < 4; i++ {
		assert.Equal(t, values.GetInteger(mat, i), values.GetInteger(out, i))
	}
}

// TestCompactRefSharingS5 is scenario S5: encoding an array holding the
// same Ref twice, then decoding it, must preserve pointer sharing so a
// mutation through one element is observed through the other.
func TestCompactRefSharingS5(t *testing.T) {
	r := values.NewRef(types.Integer, values.Integer(1))
	arr := values.NewArray(types.NewRef(types.Integer), []values.Value{r, r})

	out := roundTrip(t, arr, types.NewArray(types.NewRef(types.Integer)))
	require.Equal(t, 2, out.Len())

	values.RefSet(out.At(0), values.Integer(99))
	assert.Equal(t, int64(99), values.Deref(out.At(1)).Int, "mutating the first element must be observed through the second")
}

// TestCompactClosureRoundTrip is Testable Property 4: a closure value
// round-trips through Compact.
func TestCompactClosureRoundTrip(t *testing.T) {
	builtins := registry.NewBuiltinRegistry()
	builtins.RegisterDirect("int.add", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(args[0].Int + args[1].Int), true, ""
	})
	reg := &registry.Context{Builtins: builtins, Platforms: registry.NewPlatformRegistry()}

	body := &ir.Node{
		Kind: ir.KindCall,
		Callee: &ir.Node{Kind: ir.KindBuiltin, Name: "int.add"},
		Args: []*ir.Node{
			{Kind: ir.KindVariable, Name: "x"},
			{Kind: ir.KindVariable, Name: "y"},
		},
	}
	closure := &values.Closure{
		Body:             body,
		Params:           []string{"x"},
		Captures:         []values.CaptureSpec{{Name: "y"}},
		CaptureEnv:       map[string]values.Value{"y": values.Integer(1)},
		BuiltinRegistry:  reg.Builtins,
		PlatformRegistry: reg.Platforms,
	}
	fnVal := values.NewFunction(closure)
	funcType := types.NewFunction([]*types.Descriptor{types.Integer}, types.Integer)

	b, err := EncodeCompact(fnVal, funcType)
	require.NoError(t, err)

	out, err := DecodeCompactWithRegistry(b, funcType, reg)
	require.NoError(t, err)
	require.Equal(t, values.KindFunction, out.Kind)
	require.NotNil(t, out.Func)
	assert.Equal(t, []string{"x"}, out.Func.Params)
	require.Len(t, out.Func.Captures, 1)
	assert.Equal(t, "y", out.Func.Captures[0].Name)
	assert.Equal(t, int64(1), out.Func.CaptureEnv["y"].Int)
}
