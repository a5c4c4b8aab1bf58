package values

import "github.com/elaraai/east/types"

// NewRef builds a Ref value owning exactly one inner value.
// Two Ref values created from the same cell (e.g. by copying the returned
// Value) observably share mutation — this is the one value kind permitted
// to participate in observable sharing.
func NewRef(elemType *types.Descriptor, inner Value) Value {
	return Value{Kind: KindRef, Ref: &RefCell{ElemType: elemType, Inner: inner, refcount: 1}}
}

// Deref reads the current inner value.
func Deref(ref Value) Value { return ref.Ref.Inner }

// RefSet mutates the cell in place so that every Value sharing this Ref's
// cell observes the new inner value.
func RefSet(ref Value, inner Value) { ref.Ref.Inner = inner }
