// Package types implements the EAST type descriptor system (spec component
// A): the shape of every runtime value, with ordered struct fields and
// variant cases. Every codec and the interpreter drive off these
// descriptors; no value kind ever carries its own type tag on the wire
// except in the legacy Framed format, which is self-describing.
package types

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Kind enumerates the 19 descriptor kinds. Every codec and the
// interpreter must handle each of these exhaustively.
type Kind uint8

const (
	KindNever Kind = iota
	KindNull
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
	KindAsyncFunction
	KindRecursive
)

func (k Kind) String() string {
	switch k {
	case KindNever:
		return "Never"
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindDateTime:
		return "DateTime"
	case KindBlob:
		return "Blob"
	case KindArray:
		return "Array"
	case KindSet:
		return "Set"
	case KindDict:
		return "Dict"
	case KindStruct:
		return "Struct"
	case KindVariant:
		return "Variant"
	case KindRef:
		return "Ref"
	case KindVector:
		return "Vector"
	case KindMatrix:
		return "Matrix"
	case KindFunction:
		return "Function"
	case KindAsyncFunction:
		return "AsyncFunction"
	case KindRecursive:
		return "Recursive"
	default:
		return "Unknown"
	}
}

// ScalarKind restricts Vector/Matrix element kinds to the three admitted
// scalar kinds.
type ScalarKind uint8

const (
	ScalarFloat ScalarKind = iota
	ScalarInteger
	ScalarBoolean
)

func (s ScalarKind) descriptorKind() Kind {
	switch s {
	case ScalarFloat:
		return KindFloat
	case ScalarInteger:
		return KindInteger
	case ScalarBoolean:
		return KindBoolean
	default:
		return KindNever
	}
}

// ElementSize returns the packed byte width of one scalar element, used by
// Vector/Matrix packed-buffer accessors.
func (s ScalarKind) ElementSize() int {
	switch s {
	case ScalarFloat:
		return 8
	case ScalarInteger:
		return 8
	case ScalarBoolean:
		return 1
	default:
		return 0
	}
}

// StructField is one (name, type) pair of a Struct descriptor. Order is
// significant and stable.
type StructField struct {
	Name string
	Type *Descriptor
}

// VariantCase is one (case, type) pair of a Variant descriptor. Order is
// significant and stable; a case's index is its position here.
type VariantCase struct {
	Name string
	Type *Descriptor
}

// Descriptor is the single runtime type-descriptor struct: one Kind tag
// plus kind-specific optional payload fields, rather than one Go type per
// descriptor kind.
type Descriptor struct {
	Kind Kind

	// refcount is only meaningful for compound (heap-allocated) descriptors;
	// primitive descriptors are shared singletons and Retain/Release on them
	// are no-ops. See DESIGN.md "Reference counting in a GC'd host".
	refcount int32

	// Elem is used by Array, Set, Ref, Vector, Matrix.
	Elem *Descriptor

	// Scalar is used by Vector, Matrix only; Elem.Kind must match it.
	Scalar ScalarKind

	// Key, Value are used by Dict only.
	Key   *Descriptor
	Value *Descriptor

	// Fields is used by Struct only, in declared order.
	Fields []StructField

	// Cases is used by Variant only, in declared order.
	Cases []VariantCase

	// Inputs, Output are used by Function, AsyncFunction only.
	Inputs []*Descriptor
	Output *Descriptor

	// Inner is used by Recursive only: the wrapped inner descriptor, whose
	// descendants may reference this *Descriptor (the wrapper itself) to
	// form a cycle. backrefs counts how many internal (intra-tree) pointers
	// target this wrapper; it is computed once by Finalize.
	Inner       *Descriptor
	backrefs    int32
	finalized   bool
}

// primitive singletons.
var (
	Never    = &Descriptor{Kind: KindNever}
	Null     = &Descriptor{Kind: KindNull}
	Boolean  = &Descriptor{Kind: KindBoolean}
	Integer  = &Descriptor{Kind: KindInteger}
	Float    = &Descriptor{Kind: KindFloat}
	String   = &Descriptor{Kind: KindString}
	DateTime = &Descriptor{Kind: KindDateTime}
	Blob     = &Descriptor{Kind: KindBlob}
)

func isPrimitive(k Kind) bool {
	switch k {
	case KindNever, KindNull, KindBoolean, KindInteger, KindFloat, KindString, KindDateTime, KindBlob:
		return true
	default:
		return false
	}
}

// NewArray constructs an Array T descriptor.
func NewArray(elem *Descriptor) *Descriptor { return &Descriptor{Kind: KindArray, Elem: elem, refcount: 1} }

// NewSet constructs a Set T descriptor.
func NewSet(elem *Descriptor) *Descriptor { return &Descriptor{Kind: KindSet, Elem: elem, refcount: 1} }

// NewDict constructs a Dict (K, V) descriptor.
func NewDict(key, value *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindDict, Key: key, Value: value, refcount: 1}
}

// NewStruct constructs a Struct descriptor. Field order is preserved as
// given; the caller is responsible for field-name uniqueness.
func NewStruct(fields []StructField) *Descriptor {
	return &Descriptor{Kind: KindStruct, Fields: fields, refcount: 1}
}

// NewVariant constructs a Variant descriptor. Case order is preserved.
func NewVariant(cases []VariantCase) *Descriptor {
	return &Descriptor{Kind: KindVariant, Cases: cases, refcount: 1}
}

// NewRef constructs a Ref T descriptor.
func NewRef(elem *Descriptor) *Descriptor { return &Descriptor{Kind: KindRef, Elem: elem, refcount: 1} }

// NewVector constructs a Vector T descriptor; T must be one of the three
// scalar kinds.
func NewVector(scalar ScalarKind) *Descriptor {
	return &Descriptor{Kind: KindVector, Scalar: scalar, Elem: scalarDescriptor(scalar), refcount: 1}
}

// NewMatrix constructs a Matrix T descriptor; T must be one of the three
// scalar kinds.
func NewMatrix(scalar ScalarKind) *Descriptor {
	return &Descriptor{Kind: KindMatrix, Scalar: scalar, Elem: scalarDescriptor(scalar), refcount: 1}
}

func scalarDescriptor(s ScalarKind) *Descriptor {
	switch s {
	case ScalarFloat:
		return Float
	case ScalarInteger:
		return Integer
	case ScalarBoolean:
		return Boolean
	default:
		return Never
	}
}

// NewFunction constructs a Function (inputs…) → output descriptor.
func NewFunction(inputs []*Descriptor, output *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindFunction, Inputs: inputs, Output: output, refcount: 1}
}

// NewAsyncFunction constructs an AsyncFunction (inputs…) → output descriptor.
func NewAsyncFunction(inputs []*Descriptor, output *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindAsyncFunction, Inputs: inputs, Output: output, refcount: 1}
}

// NewRecursivePlaceholder begins the two-step construction of a Recursive
// descriptor: allocate the wrapper first, so the caller can
// build an inner tree that refers back to it, then call CloseRecursive.
func NewRecursivePlaceholder() *Descriptor {
	return &Descriptor{Kind: KindRecursive, refcount: 1}
}

// CloseRecursive attaches the built inner tree (which may contain pointers
// back to placeholder) and finalizes the back-reference count in a single
// traversal.
func CloseRecursive(placeholder, inner *Descriptor) *Descriptor {
	placeholder.Inner = inner
	placeholder.finalizeBackrefs()
	return placeholder
}

// finalizeBackrefs counts internal (intra-tree) pointers to d so that
// external Retain/Release only ever operates on the outside-references
// count: cycles are broken when external refs reach zero, since the
// internal back-reference no longer keeps the cycle alive on its own.
func (d *Descriptor) finalizeBackrefs() {
	if d.finalized {
		return
	}
	d.finalized = true
	seen := map[*Descriptor]bool{}
	var walk func(n *Descriptor)
	walk = func(n *Descriptor) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if n == d {
			// Don't double count the root on first visit.
		}
		children := n.children()
		for _, c := range children {
			if c == d {
				atomic.AddInt32(&d.backrefs, 1)
			}
			walk(c)
		}
	}
	walk(d.Inner)
}

func (d *Descriptor) children() []*Descriptor {
	switch d.Kind {
	case KindArray, KindSet, KindRef, KindVector, KindMatrix:
		if d.Elem != nil {
			return []*Descriptor{d.Elem}
		}
		return nil
	case KindDict:
		out := make([]*Descriptor, 0, 2)
		if d.Key != nil {
			out = append(out, d.Key)
		}
		if d.Value != nil {
			out = append(out, d.Value)
		}
		return out
	case KindStruct:
		out := make([]*Descriptor, 0, len(d.Fields))
		for _, f := range d.Fields {
			out = append(out, f.Type)
		}
		return out
	case KindVariant:
		out := make([]*Descriptor, 0, len(d.Cases))
		for _, c := range d.Cases {
			out = append(out, c.Type)
		}
		return out
	case KindFunction, KindAsyncFunction:
		out := make([]*Descriptor, 0, len(d.Inputs)+1)
		out = append(out, d.Inputs...)
		if d.Output != nil {
			out = append(out, d.Output)
		}
		return out
	case KindRecursive:
		if d.Inner != nil {
			return []*Descriptor{d.Inner}
		}
		return nil
	default:
		return nil
	}
}

// Retain increments the external reference count of a compound descriptor.
// It is a no-op on primitive singletons.
func (d *Descriptor) Retain() {
	if d == nil || isPrimitive(d.Kind) {
		return
	}
	atomic.AddInt32(&d.refcount, 1)
}

// Release decrements the external reference count. Reaching zero on a
// Recursive descriptor is the point at which its internal cycle becomes
// collectible; the Go garbage collector performs the actual
// reclamation (DESIGN.md, Open Question 3).
func (d *Descriptor) Release() {
	if d == nil || isPrimitive(d.Kind) {
		return
	}
	atomic.AddInt32(&d.refcount, -1)
}

// RefCount reports the current external reference count (for tests and
// diagnostics); primitives report a sentinel of -1 ("shared forever").
func (d *Descriptor) RefCount() int32 {
	if d == nil || isPrimitive(d.Kind) {
		return -1
	}
	return atomic.LoadInt32(&d.refcount)
}

// InternalBackrefs reports the number of intra-tree pointers to a finalized
// Recursive descriptor.
func (d *Descriptor) InternalBackrefs() int32 {
	return atomic.LoadInt32(&d.backrefs)
}

// Equal reports structural equality, recursing through compound kinds
//.
// Recursive descriptors are compared by identity once visited, to avoid
// infinite recursion on cyclic trees.
func (d *Descriptor) Equal(other *Descriptor) bool {
	return d.equal(other, map[[2]*Descriptor]bool{})
}

func (d *Descriptor) equal(other *Descriptor, seen map[[2]*Descriptor]bool) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if d.Kind != other.Kind {
		return false
	}
	key := [2]*Descriptor{d, other}
	if seen[key] {
		return true
	}
	seen[key] = true
	switch d.Kind {
	case KindNever, KindNull, KindBoolean, KindInteger, KindFloat, KindString, KindDateTime, KindBlob:
		return true
	case KindArray, KindSet, KindRef:
		return d.Elem.equal(other.Elem, seen)
	case KindVector, KindMatrix:
		return d.Scalar == other.Scalar
	case KindDict:
		return d.Key.equal(other.Key, seen) && d.Value.equal(other.Value, seen)
	case KindStruct:
		if len(d.Fields) != len(other.Fields) {
			return false
		}
		for i, f := range d.Fields {
			if f.Name != other.Fields[i].Name || !f.Type.equal(other.Fields[i].Type, seen) {
				return false
			}
		}
		return true
	case KindVariant:
		if len(d.Cases) != len(other.Cases) {
			return false
		}
		for i, c := range d.Cases {
			if c.Name != other.Cases[i].Name || !c.Type.equal(other.Cases[i].Type, seen) {
				return false
			}
		}
		return true
	case KindFunction, KindAsyncFunction:
		if len(d.Inputs) != len(other.Inputs) {
			return false
		}
		for i, in := range d.Inputs {
			if !in.equal(other.Inputs[i], seen) {
				return false
			}
		}
		return d.Output.equal(other.Output, seen)
	case KindRecursive:
		return d.Inner.equal(other.Inner, seen)
	default:
		return false
	}
}

// ErrUnknownKind is returned when a descriptor-kind switch in a collaborator
// (codec, interpreter) encounters a Kind value outside the 19 defined here.
var ErrUnknownKind = errors.New("types: unknown descriptor kind")
