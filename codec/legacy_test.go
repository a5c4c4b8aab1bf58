package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

func legacyRoundTrip(t *testing.T, v values.Value, typ *types.Descriptor) values.Value {
	t.Helper()
	b, err := EncodeLegacyFramed(v, typ)
	require.NoError(t, err)
	out, _, err := DecodeLegacyFramed(b)
	require.NoError(t, err)
	return out
}

func TestLegacyFramedMagicPrefix(t *testing.T) {
	b, err := EncodeLegacyFramed(values.Integer(1), types.Integer)
	require.NoError(t, err)
	assert.Equal(t, LegacyMagic, b[:len(LegacyMagic)])
}

func TestLegacyFramedRoundTripPrimitives(t *testing.T) {
	cases := []struct {
		v values.Value
		t *types.Descriptor
	}{
		{values.Null(), types.Null},
		{values.Boolean(true), types.Boolean},
		{values.Integer(-12345), types.Integer},
		{values.Float(2.25), types.Float},
		{values.Float(-0.0), types.Float},
		{values.String("legacy"), types.String},
		{values.DateTime(1600000000000), types.DateTime},
		{values.Blob([]byte{1, 2, 3}), types.Blob},
	}
	for _, c := range cases {
		out := legacyRoundTrip(t, c.v, c.t)
		assert.True(t, values.Equal(c.v, out), "round trip of %v", c.v)
	}
}

func TestLegacyFramedRoundTripContainers(t *testing.T) {
	arr := values.NewArray(types.Integer, []values.Value{values.Integer(1), values.Integer(2)})
	out := legacyRoundTrip(t, arr, types.NewArray(types.Integer))
	assert.True(t, values.Equal(arr, out))

	dict := values.NewDict(types.String, types.Integer, []values.Value{values.String("k")}, []values.Value{values.Integer(9)})
	out = legacyRoundTrip(t, dict, types.NewDict(types.String, types.Integer))
	assert.True(t, values.Equal(dict, out))

	st := types.NewStruct([]types.StructField{{Name: "a", Type: types.Integer}})
	sv := values.NewStruct(st, []values.Value{values.Integer(42)})
	out = legacyRoundTrip(t, sv, st)
	assert.True(t, values.Equal(sv, out))

	variant := types.NewVariant([]types.VariantCase{{Name: "None", Type: types.Null}, {Name: "Some", Type: types.Integer}})
	some := values.NewVariant(variant, "Some", values.Integer(3))
	out = legacyRoundTrip(t, some, variant)
	assert.True(t, values.Equal(some, out))
}

func TestLegacyTwiddleIntPreservesOrdering(t *testing.T) {
	ints := []int64{-10, -1, 0, 1, 10}
	for i := 0; i+1 < len(ints); i++ {
		assert.Less(t, twiddleIntEncode(ints[i]), twiddleIntEncode(ints[i+1]))
	}
}
