package values

// CaptureSpec names one capture variable and whether it is mutable
//.
type CaptureSpec struct {
	Name    string
	Mutable bool
}

// Closure is a compiled closure: the IR body, capture
// names/flags and a snapshot of their values, the parameter name list,
// handles to the registries active when the closure was built, and the
// original IR tree re-expressed as a value so functions are themselves
// serializable.
//
// Body, BuiltinRegistry and PlatformRegistry are declared `any` rather
// than concrete *ir.Node / *registry.BuiltinRegistry / *registry.PlatformRegistry
// types: the ir package holds values.Value literals (IR "Value" nodes
// carry a literal runtime value) so ir necessarily imports values, and
// values cannot import ir back without a cycle. The teacher takes the same
// escape hatch for the same reason (interp.node.val/.rval are untyped
// interface{} slots "to let runtime access interpreter"); the interp
// package performs the type assertions back to concrete types at the one
// point (Call evaluation) that needs them.
type Closure struct {
	Body any // *ir.Node

	Captures   []CaptureSpec
	CaptureEnv map[string]Value // snapshot of capture values at closure build time

	Params []string

	BuiltinRegistry  any // *registry.BuiltinRegistry
	PlatformRegistry any // *registry.PlatformRegistry

	// OriginalAsValue is the closure's own IR tree converted to a value via
	// the meta-type bridge, so a Function value can be
	// compact/framed/textual/JSON encoded and round-tripped.
	OriginalAsValue Value
}

// NewFunction builds a Function value from a compiled closure.
func NewFunction(c *Closure) Value {
	return Value{Kind: KindFunction, Func: c}
}
