// Package values implements the EAST runtime value universe (spec
// component B): a tagged union of values with reference-counted
// containers, in one struct carrying a kind tag rather than one Go type
// per value kind.
package values

import (
	"sync/atomic"

	"github.com/elaraai/east/types"
)

// Kind enumerates the runtime value discriminators. There is no Never
// value and no separate AsyncFunction value kind — both
// Function and AsyncFunction descriptors produce KindFunction values,
// since a compiled closure is the same runtime shape either way.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindDateTime
	KindBlob
	KindArray
	KindSet
	KindDict
	KindStruct
	KindVariant
	KindRef
	KindVector
	KindMatrix
	KindFunction
)

func (k Kind) String() string {
	names := [...]string{
		"Null", "Boolean", "Integer", "Float", "String", "DateTime", "Blob",
		"Array", "Set", "Dict", "Struct", "Variant", "Ref", "Vector", "Matrix", "Function",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Value is the single runtime value struct. Exactly one payload group is
// live per Kind; unused fields are zero. Container payloads are pointers
// to ref-counted backing structs so that two Value copies can share
// storage and
// so that Ref — and, transparently, any shared Array/Set/Dict allocation —
// can be compared and preserved by identity for the codec backreference
// protocol.
type Value struct {
	Kind Kind

	// Boolean
	Bool bool
	// Integer
	Int int64
	// Float
	Float64 float64
	// String
	Str string
	// DateTime: epoch-millis UTC
	Millis int64
	// Blob
	Blob []byte

	// Array, Set
	Seq *SeqData
	// Dict
	Dict *DictData
	// Struct
	Struct *StructData
	// Variant
	Variant *VariantData
	// Ref
	Ref *RefCell
	// Vector, Matrix
	Packed *PackedData
	// Function
	Func *Closure
}

// SeqData backs both Array and Set values: an ordered, ref-counted
// sequence. Set additionally enforces duplicate elimination by value
// equality under ElemType at mutation time (see set.go); Array permits
// duplicates.
type SeqData struct {
	ElemType *types.Descriptor
	Items    []Value
	refcount int32
}

// DictData backs Dict values: parallel Keys/Vals slices in insertion
// order, deduplicated by key equality under KeyType.
type DictData struct {
	KeyType  *types.Descriptor
	ValType  *types.Descriptor
	Keys     []Value
	Vals     []Value
	refcount int32
}

// StructData backs Struct values: field values in descriptor field order.
type StructData struct {
	Type   *types.Descriptor
	Fields []Value
	refcount int32
}

// VariantData backs Variant values: the case name plus its payload value.
type VariantData struct {
	Type    *types.Descriptor
	Case    string
	CaseIdx int
	Payload Value
	refcount int32
}

// RefCell backs Ref values: exactly one mutable inner value. Ref is the
// only value kind permitted to participate in observable sharing; Equal
// still compares Refs by their current inner value, not by identity.
type RefCell struct {
	ElemType *types.Descriptor
	Inner    Value
	refcount int32
}

// PackedData backs Vector and Matrix values: a packed scalar buffer.
// Rows/Cols are only meaningful for Matrix (Rows*Cols*ElementSize ==
// len(Bytes)); Vector only uses Len.
type PackedData struct {
	Scalar   types.ScalarKind
	Bytes    []byte
	Len      int // Vector length, or Matrix Rows*Cols
	Rows     int // Matrix only
	Cols     int // Matrix only
	refcount int32
}

// --- constructors ---

func Null() Value                  { return Value{Kind: KindNull} }
func Boolean(b bool) Value         { return Value{Kind: KindBoolean, Bool: b} }
func Integer(i int64) Value        { return Value{Kind: KindInteger, Int: i} }
func Float(f float64) Value        { return Value{Kind: KindFloat, Float64: f} }
func String(s string) Value        { return Value{Kind: KindString, Str: s} }
func DateTime(millis int64) Value  { return Value{Kind: KindDateTime, Millis: millis} }
func Blob(b []byte) Value          { return Value{Kind: KindBlob, Blob: b} }

// NewArray builds an Array value from items, in order, permitting
// duplicates.
func NewArray(elemType *types.Descriptor, items []Value) Value {
	return Value{Kind: KindArray, Seq: &SeqData{ElemType: elemType, Items: items, refcount: 1}}
}

// Retain increments the external reference count of a compound (container
// or closure) value's backing allocation. No-op on scalar kinds.
func (v Value) Retain() {
	switch v.Kind {
	case KindArray, KindSet:
		if v.Seq != nil {
			atomic.AddInt32(&v.Seq.refcount, 1)
		}
	case KindDict:
		if v.Dict != nil {
			atomic.AddInt32(&v.Dict.refcount, 1)
		}
	case KindStruct:
		if v.Struct != nil {
			atomic.AddInt32(&v.Struct.refcount, 1)
		}
	case KindVariant:
		if v.Variant != nil {
			atomic.AddInt32(&v.Variant.refcount, 1)
		}
	case KindRef:
		if v.Ref != nil {
			atomic.AddInt32(&v.Ref.refcount, 1)
		}
	case KindVector, KindMatrix:
		if v.Packed != nil {
			atomic.AddInt32(&v.Packed.refcount, 1)
		}
	}
}

// Release decrements the external reference count. Actual storage
// reclamation is left to the Go garbage collector once unreferenced
// (DESIGN.md, Open Question 3); Release's observable effect is solely the
// counter becoming visible to RefCount().
func (v Value) Release() {
	switch v.Kind {
	case KindArray, KindSet:
		if v.Seq != nil {
			atomic.AddInt32(&v.Seq.refcount, -1)
		}
	case KindDict:
		if v.Dict != nil {
			atomic.AddInt32(&v.Dict.refcount, -1)
		}
	case KindStruct:
		if v.Struct != nil {
			atomic.AddInt32(&v.Struct.refcount, -1)
		}
	case KindVariant:
		if v.Variant != nil {
			atomic.AddInt32(&v.Variant.refcount, -1)
		}
	case KindRef:
		if v.Ref != nil {
			atomic.AddInt32(&v.Ref.refcount, -1)
		}
	case KindVector, KindMatrix:
		if v.Packed != nil {
			atomic.AddInt32(&v.Packed.refcount, -1)
		}
	}
}

// Identity returns a comparable identity token for values whose container
// allocation can be shared, and ok=false for scalar kinds which are never
// shared. Codecs use this to detect repeated pointer identity during
// encode and to reconstruct it during decode.
func (v Value) Identity() (token any, ok bool) {
	switch v.Kind {
	case KindArray, KindSet:
		if v.Seq == nil {
			return nil, false
		}
		return v.Seq, true
	case KindDict:
		if v.Dict == nil {
			return nil, false
		}
		return v.Dict, true
	case KindRef:
		if v.Ref == nil {
			return nil, false
		}
		return v.Ref, true
	default:
		return nil, false
	}
}
