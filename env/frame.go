// Package env implements the EAST lexical environment (spec component D):
// a chain of frames mapping names to value bindings. Mirrors the
// teacher's scope/frame split (interp.scope for symbol metadata, interp.frame
// for storage) collapsed into one type, since EAST has no separate
// static-resolution pass distinct from evaluation.
package env

import (
	"sync/atomic"

	"github.com/elaraai/east/values"
)

// binding is one named cell in a frame. It is a pointer so that Assign
// updates the cell in place in whichever frame of the chain holds it.
// Closures do not share these cells: a closure copies its capture values
// with Snapshot when it is built and rebinds them in a fresh frame
// (FromSnapshot) on each call.
type binding struct {
	value   values.Value
	mutable bool
}

// Frame is a lexical scope: name bindings plus a parent chain. Frame
// carries a Retain/Release reference count; function values do not hold
// a frame, only a snapshot of their capture values.
type Frame struct {
	parent   *Frame
	names    map[string]*binding
	refcount int32
}

// New creates a root frame with no parent.
func New() *Frame {
	return &Frame{names: map[string]*binding{}, refcount: 1}
}

// Child creates a new frame chained to parent.
func Child(parent *Frame) *Frame {
	return &Frame{parent: parent, names: map[string]*binding{}, refcount: 1}
}

// Retain/Release manage the frame's reference count (see types.Descriptor
// and values.Value for the same ref-count-over-GC pattern used throughout
// this module, DESIGN.md Open Question 3).
func (f *Frame) Retain() { atomic.AddInt32(&f.refcount, 1) }
func (f *Frame) Release() { atomic.AddInt32(&f.refcount, -1) }
func (f *Frame) RefCount() int32 { return atomic.LoadInt32(&f.refcount) }

// Bind introduces a new name in this frame.
func (f *Frame) Bind(name string, v values.Value, mutable bool) {
	f.names[name] = &binding{value: v, mutable: mutable}
}

// Lookup walks the frame chain for name.
func (f *Frame) Lookup(name string) (values.Value, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			return b.value, true
		}
	}
	return values.Value{}, false
}

// Assign walks the chain to find name's originating frame and replaces
// the value there. It reports whether name was
// found, and whether the binding was mutable (and so was updated).
func (f *Frame) Assign(name string, v values.Value) (found, wasMutable bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			if !b.mutable {
				return true, false
			}
			b.value = v
			return true, true
		}
	}
	return false, false
}

// Snapshot captures the current values of the named captures as an
// immutable map, for building a compiled closure.
func (f *Frame) Snapshot(names []string) map[string]values.Value {
	out := make(map[string]values.Value, len(names))
	for _, n := range names {
		if v, ok := f.Lookup(n); ok {
			out[n] = v
		}
	}
	return out
}

// FromSnapshot builds a frame whose bindings are seeded from a capture
// snapshot (used when entering a closure's captured frame before pushing
// the call frame proper).
func FromSnapshot(parent *Frame, snapshot map[string]values.Value, captures []values.CaptureSpec) *Frame {
	f := Child(parent)
	for _, c := range captures {
		if v, ok := snapshot[c.Name]; ok {
			f.Bind(c.Name, v, c.Mutable)
		}
	}
	return f
}
