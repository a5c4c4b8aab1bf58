package values

import "github.com/elaraai/east/types"

// NewSet builds a Set value, eliminating duplicates by structural value
// equality under elemType while preserving first-seen insertion order
//.
func NewSet(elemType *types.Descriptor, items []Value) Value {
	out := make([]Value, 0, len(items))
	for _, it := range items {
		if setIndexOf(out, it) < 0 {
			out = append(out, it)
		}
	}
	return Value{Kind: KindSet, Seq: &SeqData{ElemType: elemType, Items: out, refcount: 1}}
}

func setIndexOf(items []Value, v Value) int {
	for i, it := range items {
		if Equal(it, v) {
			return i
		}
	}
	return -1
}

// SetContains reports whether v is a member of the set.
func SetContains(set Value, v Value) bool {
	return setIndexOf(set.Seq.Items, v) >= 0
}

// SetInsert returns a new Set with v inserted (a no-op, returning the same
// items, if v is already a member).
func SetInsert(set Value, v Value) Value {
	if SetContains(set, v) {
		return set
	}
	items := make([]Value, len(set.Seq.Items)+1)
	copy(items, set.Seq.Items)
	items[len(items)-1] = v
	return Value{Kind: KindSet, Seq: &SeqData{ElemType: set.Seq.ElemType, Items: items, refcount: 1}}
}

// SetRemove returns a new Set with v removed, if present.
func SetRemove(set Value, v Value) Value {
	idx := setIndexOf(set.Seq.Items, v)
	if idx < 0 {
		return set
	}
	items := make([]Value, 0, len(set.Seq.Items)-1)
	items = append(items, set.Seq.Items[:idx]...)
	items = append(items, set.Seq.Items[idx+1:]...)
	return Value{Kind: KindSet, Seq: &SeqData{ElemType: set.Seq.ElemType, Items: items, refcount: 1}}
}
