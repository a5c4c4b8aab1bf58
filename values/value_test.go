package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elaraai/east/types"
)

func TestSetDeduplicatesByStructuralEquality(t *testing.T) {
	s := NewSet(types.Integer, []Value{Integer(1), Integer(2), Integer(1), Integer(3)})
	assert.Equal(t, 3, s.Len())
	assert.True(t, SetContains(s, Integer(2)))
	assert.False(t, SetContains(s, Integer(42)))
}

func TestDictLastWriteWinsOnDuplicateKey(t *testing.T) {
	d := NewDict(types.String, types.Integer,
		[]Value{String("a"), String("b"), String("a")},
		[]Value{Integer(1), Integer(2), Integer(3)})
	require.Equal(t, 2, DictLen(d))
	v, ok := DictGet(d, String("a"))
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Int)
}

func TestRefSharingIsObservableThroughCopies(t *testing.T) {
	r := NewRef(types.Integer, Integer(0))
	alias := r // Value is a small struct; Ref field is a shared pointer.
	RefSet(r, Integer(1))
	assert.Equal(t, int64(1), Deref(alias).Int, "mutation through one alias is visible through the other")
}

func TestFloatNaNSortsHigh(t *testing.T) {
	nan := Float(nanValue())
	assert.Equal(t, 1, Compare(nan, Float(1e300)))
	assert.Equal(t, -1, Compare(Float(1e300), nan))
	assert.Equal(t, 0, Compare(nan, nan))
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestStructFieldAccessByDeclaredOrder(t *testing.T) {
	st := types.NewStruct([]types.StructField{{Name: "a", Type: types.Integer}, {Name: "b", Type: types.String}})
	v := NewStruct(st, []Value{Integer(1), String("x")})
	got, ok := GetField(v, "b")
	require.True(t, ok)
	assert.Equal(t, "x", got.Str)
}

func TestVariantEquality(t *testing.T) {
	vt := types.NewVariant([]types.VariantCase{{Name: "None", Type: types.Null}, {Name: "Some", Type: types.Integer}})
	a := NewVariant(vt, "Some", Integer(5))
	b := NewVariant(vt, "Some", Integer(5))
	c := NewVariant(vt, "Some", Integer(6))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestVectorPackedAccessors(t *testing.T) {
	v := NewVector(types.ScalarFloat, 3)
	SetFloat(v, 0, 1.5)
	SetFloat(v, 1, -2.5)
	SetFloat(v, 2, 0)
	assert.Equal(t, 1.5, GetFloat(v, 0))
	assert.Equal(t, -2.5, GetFloat(v, 1))
}

func TestMatrixRowMajorIndex(t *testing.T) {
	m := NewMatrix(types.ScalarInteger, 2, 3)
	SetInteger(m, MatrixIndex(m, 1, 2), 42)
	assert.Equal(t, int64(42), GetInteger(m, MatrixIndex(m, 1, 2)))
}
