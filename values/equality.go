package values

import "bytes"

// Equal reports structural equality for all value kinds.
// Array/Set compare element-wise in order; Dict compares as an unordered
// key/value mapping (insertion order is preserved for iteration but is not
// part of equality); Ref compares by current inner value, not identity —
// identity comparison is reserved for the codec backreference protocol
// (see Value.Identity).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBoolean:
		return a.Bool == b.Bool
	case KindInteger:
		return a.Int == b.Int
	case KindFloat:
		return a.Float64 == b.Float64 || (isNaN(a.Float64) && isNaN(b.Float64))
	case KindString:
		return a.Str == b.Str
	case KindDateTime:
		return a.Millis == b.Millis
	case KindBlob:
		return bytes.Equal(a.Blob, b.Blob)
	case KindArray:
		if len(a.Seq.Items) != len(b.Seq.Items) {
			return false
		}
		for i := range a.Seq.Items {
			if !Equal(a.Seq.Items[i], b.Seq.Items[i]) {
				return false
			}
		}
		return true
	case KindSet:
		if len(a.Seq.Items) != len(b.Seq.Items) {
			return false
		}
		for _, it := range a.Seq.Items {
			if setIndexOf(b.Seq.Items, it) < 0 {
				return false
			}
		}
		return true
	case KindDict:
		if len(a.Dict.Keys) != len(b.Dict.Keys) {
			return false
		}
		for i, k := range a.Dict.Keys {
			bv, ok := DictGet(b, k)
			if !ok || !Equal(a.Dict.Vals[i], bv) {
				return false
			}
		}
		return true
	case KindStruct:
		if len(a.Struct.Fields) != len(b.Struct.Fields) {
			return false
		}
		for i := range a.Struct.Fields {
			if !Equal(a.Struct.Fields[i], b.Struct.Fields[i]) {
				return false
			}
		}
		return true
	case KindVariant:
		return a.Variant.Case == b.Variant.Case && Equal(a.Variant.Payload, b.Variant.Payload)
	case KindRef:
		return Equal(a.Ref.Inner, b.Ref.Inner)
	case KindVector:
		return a.Packed.Scalar == b.Packed.Scalar && bytes.Equal(a.Packed.Bytes, b.Packed.Bytes)
	case KindMatrix:
		return a.Packed.Scalar == b.Packed.Scalar && a.Packed.Rows == b.Packed.Rows &&
			a.Packed.Cols == b.Packed.Cols && bytes.Equal(a.Packed.Bytes, b.Packed.Bytes)
	case KindFunction:
		// Functions have no structural equality contract; identity is the
		// only meaningful comparison (two Function values are equal iff they
		// share one closure; evaluating the same node twice builds two).
		return a.Func == b.Func
	default:
		return false
	}
}

func isNaN(f float64) bool { return f != f }
