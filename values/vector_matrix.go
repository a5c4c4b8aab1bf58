package values

import (
	"encoding/binary"
	"math"

	"github.com/elaraai/east/types"
)

// NewVector builds a Vector value from a packed scalar buffer of the
// given length.
func NewVector(scalar types.ScalarKind, length int) Value {
	return Value{Kind: KindVector, Packed: &PackedData{
		Scalar: scalar, Bytes: make([]byte, length*scalar.ElementSize()), Len: length, refcount: 1,
	}}
}

// NewMatrix builds a Matrix value from a packed row-major scalar buffer
// of rows*cols elements.
func NewMatrix(scalar types.ScalarKind, rows, cols int) Value {
	return Value{Kind: KindMatrix, Packed: &PackedData{
		Scalar: scalar, Bytes: make([]byte, rows*cols*scalar.ElementSize()),
		Len: rows * cols, Rows: rows, Cols: cols, refcount: 1,
	}}
}

// VectorLen / MatrixDims report packed-buffer dimensions.
func VectorLen(v Value) int { return v.Packed.Len }
func MatrixDims(v Value) (rows, cols int) { return v.Packed.Rows, v.Packed.Cols }

// GetFloat/GetInteger/GetBoolean/SetFloat/SetInteger/SetBoolean read and
// write a packed scalar element by flat index (row-major for Matrix),
// with kind-dependent element size.

func GetFloat(v Value, idx int) float64 {
	off := idx * 8
	bits := binary.LittleEndian.Uint64(v.Packed.Bytes[off : off+8])
	return math.Float64frombits(bits)
}

func SetFloat(v Value, idx int, f float64) {
	off := idx * 8
	binary.LittleEndian.PutUint64(v.Packed.Bytes[off:off+8], math.Float64bits(f))
}

func GetInteger(v Value, idx int) int64 {
	off := idx * 8
	return int64(binary.LittleEndian.Uint64(v.Packed.Bytes[off : off+8]))
}

func SetInteger(v Value, idx int, n int64) {
	off := idx * 8
	binary.LittleEndian.PutUint64(v.Packed.Bytes[off:off+8], uint64(n))
}

func GetBoolean(v Value, idx int) bool {
	return v.Packed.Bytes[idx] != 0
}

func SetBoolean(v Value, idx int, b bool) {
	if b {
		v.Packed.Bytes[idx] = 1
	} else {
		v.Packed.Bytes[idx] = 0
	}
}

// MatrixIndex converts (row, col) to a flat row-major index.
func MatrixIndex(v Value, row, col int) int {
	return row*v.Packed.Cols + col
}
