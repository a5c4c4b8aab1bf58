package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveSingletonsShared(t *testing.T) {
	assert.Same(t, Integer, Integer)
	assert.Equal(t, int32(-1), Integer.RefCount())
	Integer.Retain()
	assert.Equal(t, int32(-1), Integer.RefCount(), "retain on a primitive singleton is a no-op")
}

func TestStructuralEqualityRecursesByShape(t *testing.T) {
	a := NewStruct([]StructField{{Name: "x", Type: Integer}, {Name: "y", Type: String}})
	b := NewStruct([]StructField{{Name: "x", Type: Integer}, {Name: "y", Type: String}})
	c := NewStruct([]StructField{{Name: "y", Type: String}, {Name: "x", Type: Integer}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c), "field order is significant")
}

func TestVectorMatrixRejectNonScalarElements(t *testing.T) {
	v := NewVector(ScalarInteger)
	assert.Equal(t, KindInteger, v.Elem.Kind)
	m := NewMatrix(ScalarBoolean)
	assert.Equal(t, KindBoolean, m.Elem.Kind)
}

func TestRecursiveDescriptorFinalizesBackrefCount(t *testing.T) {
	placeholder := NewRecursivePlaceholder()
	// List T = Variant[Nil: Null, Cons: Struct[head: Integer, tail: @T]]
	inner := NewVariant([]VariantCase{
		{Name: "Nil", Type: Null},
		{Name: "Cons", Type: NewStruct([]StructField{
			{Name: "head", Type: Integer},
			{Name: "tail", Type: placeholder},
		})},
	})
	list := CloseRecursive(placeholder, inner)

	require.Equal(t, KindRecursive, list.Kind)
	assert.Equal(t, int32(1), list.InternalBackrefs())
}

func TestRetainReleaseCompoundDescriptor(t *testing.T) {
	d := NewArray(Integer)
	assert.Equal(t, int32(1), d.RefCount())
	d.Retain()
	assert.Equal(t, int32(2), d.RefCount())
	d.Release()
	d.Release()
	assert.Equal(t, int32(0), d.RefCount())
}

func TestTextRoundTrip(t *testing.T) {
	cases := []*Descriptor{
		Never, Null, Boolean, Integer, Float, String, DateTime, Blob,
		NewArray(Integer),
		NewSet(String),
		NewDict(String, Integer),
		NewStruct([]StructField{{Name: "a", Type: Integer}, {Name: "b", Type: String}}),
		NewVariant([]VariantCase{{Name: "None", Type: Null}, {Name: "Some", Type: Integer}}),
		NewRef(Boolean),
		NewVector(ScalarFloat),
		NewMatrix(ScalarInteger),
		NewFunction([]*Descriptor{Integer, Integer}, Integer),
		NewAsyncFunction([]*Descriptor{String}, Boolean),
	}
	for _, d := range cases {
		s := d.String()
		parsed, err := Parse(s)
		require.NoError(t, err, "parsing %q", s)
		assert.True(t, d.Equal(parsed), "round trip of %q produced %q", s, parsed.String())
	}
}

func TestTextRoundTripRecursive(t *testing.T) {
	placeholder := NewRecursivePlaceholder()
	inner := NewVariant([]VariantCase{
		{Name: "Nil", Type: Null},
		{Name: "Cons", Type: NewStruct([]StructField{
			{Name: "head", Type: Integer},
			{Name: "tail", Type: placeholder},
		})},
	})
	list := CloseRecursive(placeholder, inner)

	s := list.String()
	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, KindRecursive, parsed.Kind)
	assert.Equal(t, KindVariant, parsed.Inner.Kind)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("NotAType")
	assert.Error(t, err)
	_, err = Parse("Array<Integer")
	assert.Error(t, err)
}
