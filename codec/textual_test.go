package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

func TestTextualPrintPrimitives(t *testing.T) {
	cases := []struct {
		v    values.Value
		t    *types.Descriptor
		want string
	}{
		{values.Null(), types.Null, "null"},
		{values.Boolean(true), types.Boolean, "true"},
		{values.Boolean(false), types.Boolean, "false"},
		{values.Integer(-7), types.Integer, "-7"},
		{values.String("hi"), types.String, `"hi"`},
		{values.String(`a"b\c`), types.String, `"a\"b\\c"`},
		{values.Blob([]byte{0xab, 0xcd}), types.Blob, "0xabcd"},
	}
	for _, c := range cases {
		s, err := PrintTextual(c.v, c.t)
		require.NoError(t, err)
		assert.Equal(t, c.want, s)
	}
}

func TestTextualFloatSpecials(t *testing.T) {
	cases := map[string]string{
		"NaN": "NaN", "Infinity": "Infinity", "-Infinity": "-Infinity", "-0.0": "-0.0",
	}
	for want := range cases {
		v, err := ParseTextual(want, types.Float)
		require.NoError(t, err)
		s, err := PrintTextual(v, types.Float)
		require.NoError(t, err)
		assert.Equal(t, want, s)
	}
}

func textualRoundTrip(t *testing.T, v values.Value, typ *types.Descriptor) values.Value {
	t.Helper()
	s, err := PrintTextual(v, typ)
	require.NoError(t, err)
	out, err := ParseTextual(s, typ)
	require.NoError(t, err)
	return out
}

func TestTextualRoundTripContainers(t *testing.T) {
	arr := values.NewArray(types.Integer, []values.Value{values.Integer(1), values.Integer(2), values.Integer(3)})
	out := textualRoundTrip(t, arr, types.NewArray(types.Integer))
	assert.True(t, values.Equal(arr, out))

	st := types.NewStruct([]types.StructField{{Name: "x", Type: types.Integer}, {Name: "y", Type: types.String}})
	sv := values.NewStruct(st, []values.Value{values.Integer(1), values.String("one")})
	out = textualRoundTrip(t, sv, st)
	assert.True(t, values.Equal(sv, out))

	variant := types.NewVariant([]types.VariantCase{{Name: "None", Type: types.Null}, {Name: "Some", Type: types.Integer}})
	some := values.NewVariant(variant, "Some", values.Integer(4))
	out = textualRoundTrip(t, some, variant)
	assert.True(t, values.Equal(some, out))

	dict := values.NewDict(types.String, types.Integer, []values.Value{values.String("k")}, []values.Value{values.Integer(1)})
	out = textualRoundTrip(t, dict, types.NewDict(types.String, types.Integer))
	assert.True(t, values.Equal(dict, out))
}

func TestTextualBackrefSharedArray(t *testing.T) {
	shared := values.NewArray(types.Integer, []values.Value{values.Integer(1), values.Integer(2)})
	outer := values.NewArray(types.NewArray(types.Integer), []values.Value{shared, shared})

	s, err := PrintTextual(outer, types.NewArray(types.NewArray(types.Integer)))
	require.NoError(t, err)
	assert.Contains(t, s, "#", "second occurrence of a shared array should be printed as a backreference")

	out, err := ParseTextual(s, types.NewArray(types.NewArray(types.Integer)))
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.True(t, values.Equal(out.At(0), out.At(1)))
}

func TestTextualParseStructMissingFieldErrors(t *testing.T) {
	st := types.NewStruct([]types.StructField{{Name: "x", Type: types.Integer}, {Name: "y", Type: types.String}})
	_, err := ParseTextual(`(x=1)`, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
}

func TestTextualStructFieldNameQuoting(t *testing.T) {
	st := types.NewStruct([]types.StructField{{Name: "weird name", Type: types.Integer}})
	sv := values.NewStruct(st, []values.Value{values.Integer(1)})
	s, err := PrintTextual(sv, st)
	require.NoError(t, err)
	assert.Contains(t, s, "`weird name`")
	out, err := ParseTextual(s, st)
	require.NoError(t, err)
	assert.True(t, values.Equal(sv, out))
}

func TestTextualParseErrorIsDetailed(t *testing.T) {
	_, err := ParseTextual("tru", types.Boolean)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error occurred because")
	assert.Contains(t, err.Error(), `while parsing value of type "Boolean"`)
}
