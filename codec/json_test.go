package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

func TestJSONPrintPrimitives(t *testing.T) {
	cases := []struct {
		v    values.Value
		t    *types.Descriptor
		want string
	}{
		{values.Null(), types.Null, "null"},
		{values.Boolean(true), types.Boolean, "true"},
		{values.Integer(-7), types.Integer, `"-7"`},
		{values.String("hi"), types.String, `"hi"`},
		{values.Blob([]byte{0xab}), types.Blob, `"0xab"`},
	}
	for _, c := range cases {
		s, err := PrintJSON(c.v, c.t)
		require.NoError(t, err)
		assert.Equal(t, c.want, s)
	}
}

func TestJSONFloatSpecialsAreQuoted(t *testing.T) {
	v, err := ParseJSON(`"NaN"`, types.Float)
	require.NoError(t, err)
	s, err := PrintJSON(v, types.Float)
	require.NoError(t, err)
	assert.Equal(t, `"NaN"`, s)

	v, err = ParseJSON("1.5", types.Float)
	require.NoError(t, err)
	s, err = PrintJSON(v, types.Float)
	require.NoError(t, err)
	assert.Equal(t, "1.5", s)
}

func jsonRoundTrip(t *testing.T, v values.Value, typ *types.Descriptor) values.Value {
	t.Helper()
	s, err := PrintJSON(v, typ)
	require.NoError(t, err)
	out, err := ParseJSON(s, typ)
	require.NoError(t, err)
	return out
}

func TestJSONRoundTripContainers(t *testing.T) {
	arr := values.NewArray(types.Integer, []values.Value{values.Integer(1), values.Integer(2)})
	out := jsonRoundTrip(t, arr, types.NewArray(types.Integer))
	assert.True(t, values.Equal(arr, out))

	st := types.NewStruct([]types.StructField{{Name: "x", Type: types.Integer}})
	sv := values.NewStruct(st, []values.Value{values.Integer(9)})
	out = jsonRoundTrip(t, sv, st)
	assert.True(t, values.Equal(sv, out))

	variant := types.NewVariant([]types.VariantCase{{Name: "None", Type: types.Null}, {Name: "Some", Type: types.Integer}})
	some := values.NewVariant(variant, "Some", values.Integer(2))
	out = jsonRoundTrip(t, some, variant)
	assert.True(t, values.Equal(some, out))

	dict := values.NewDict(types.String, types.Integer, []values.Value{values.String("k")}, []values.Value{values.Integer(1)})
	out = jsonRoundTrip(t, dict, types.NewDict(types.String, types.Integer))
	assert.True(t, values.Equal(dict, out))

	ref := values.NewRef(types.Integer, values.Integer(5))
	out = jsonRoundTrip(t, ref, types.NewRef(types.Integer))
	assert.Equal(t, int64(5), values.Deref(out).Int)
}

func TestJSONBackrefUsesPopRelativeToken(t *testing.T) {
	shared := values.NewArray(types.Integer, []values.Value{values.Integer(1)})
	outer := values.NewArray(types.NewArray(types.Integer), []values.Value{shared, shared})

	s, err := PrintJSON(outer, types.NewArray(types.NewArray(types.Integer)))
	require.NoError(t, err)
	assert.Contains(t, s, `"$ref":"1#/0"`)

	out, err := ParseJSON(s, types.NewArray(types.NewArray(types.Integer)))
	require.NoError(t, err)
	assert.True(t, values.Equal(out.At(0), out.At(1)))
}

func TestJSONParseStructMissingFieldErrors(t *testing.T) {
	st := types.NewStruct([]types.StructField{{Name: "x", Type: types.Integer}, {Name: "y", Type: types.String}})
	_, err := ParseJSON(`{"x":"1"}`, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
}

func TestJSONParseErrorIsDetailed(t *testing.T) {
	_, err := ParseJSON("tru", types.Boolean)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error occurred because")
}
