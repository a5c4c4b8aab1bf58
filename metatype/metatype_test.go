package metatype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/codec"
	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/metatype"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

func descRoundTrip(t *testing.T, d *types.Descriptor) *types.Descriptor {
	t.Helper()
	v := metatype.DescriptorToValue(d)
	out, err := metatype.ValueToDescriptor(v)
	require.NoError(t, err)
	return out
}

func TestDescriptorToValueRoundTripPrimitives(t *testing.T) {
	cases := []*types.Descriptor{
		types.Never, types.Null, types.Boolean, types.Integer, types.Float,
		types.String, types.DateTime, types.Blob,
	}
	for _, d := range cases {
		out := descRoundTrip(t, d)
		assert.True(t, d.Equal(out), "round trip of %s", d.String())
	}
}

func TestDescriptorToValueRoundTripContainers(t *testing.T) {
	cases := []*types.Descriptor{
		types.NewArray(types.Integer),
		types.NewSet(types.String),
		types.NewDict(types.String, types.Integer),
		types.NewStruct([]types.StructField{{Name: "a", Type: types.Integer}, {Name: "b", Type: types.String}}),
		types.NewVariant([]types.VariantCase{{Name: "None", Type: types.Null}, {Name: "Some", Type: types.Integer}}),
		types.NewRef(types.Boolean),
		types.NewVector(types.ScalarFloat),
		types.NewMatrix(types.ScalarInteger),
		types.NewFunction([]*types.Descriptor{types.Integer, types.Integer}, types.Integer),
		types.NewAsyncFunction([]*types.Descriptor{types.String}, types.Boolean),
	}
	for _, d := range cases {
		out := descRoundTrip(t, d)
		assert.True(t, d.Equal(out), "round trip of %s", d.String())
	}
}

func TestDescriptorToValueRoundTripRecursive(t *testing.T) {
	placeholder := types.NewRecursivePlaceholder()
	inner := types.NewVariant([]types.VariantCase{
		{Name: "Nil", Type: types.Null},
		{Name: "Cons", Type: types.NewStruct([]types.StructField{
			{Name: "head", Type: types.Integer},
			{Name: "tail", Type: placeholder},
		})},
	})
	list := types.CloseRecursive(placeholder, inner)

	out := descRoundTrip(t, list)
	assert.True(t, list.Equal(out))
}

func TestIRNodeRoundTripSimpleCall(t *testing.T) {
	node := &ir.Node{
		Kind: ir.KindCall,
		Callee: &ir.Node{Kind: ir.KindBuiltin, Name: "int.add"},
		Args: []*ir.Node{
			{Kind: ir.KindValue, Type: types.Integer, Literal: values.Integer(1)},
			{Kind: ir.KindVariable, Name: "x"},
		},
	}
	v, err := metatype.IRNodeToValue(node, codec.Literal)
	require.NoError(t, err)

	out, err := metatype.ValueToIRNode(v, codec.Literal)
	require.NoError(t, err)

	require.Equal(t, ir.KindCall, out.Kind)
	require.NotNil(t, out.Callee)
	assert.Equal(t, "int.add", out.Callee.Name)
	require.Len(t, out.Args, 2)
	assert.Equal(t, int64(1), out.Args[0].Literal.Int)
	assert.Equal(t, "x", out.Args[1].Name)
}

func TestIRNodeRoundTripFunctionLiteral(t *testing.T) {
	fnBody := &ir.Node{
		Kind: ir.KindVariable, Name: "x",
	}
	node := &ir.Node{
		Kind:     ir.KindFunction,
		Params:   []string{"x"},
		FuncBody: fnBody,
	}
	v, err := metatype.IRNodeToValue(node, codec.Literal)
	require.NoError(t, err)
	out, err := metatype.ValueToIRNode(v, codec.Literal)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Params)
	require.NotNil(t, out.FuncBody)
	assert.Equal(t, "x", out.FuncBody.Name)
}
