// Package stdregistry provides a representative set of builtin and
// platform registrations (spec component J): names for the primitive
// operations and side-effecting functions a compiled IR program calls
// through the registry ABI (registry package). The exact arithmetic
// identity of a builtin is explicitly out of scope for the host itself
// ("any individual builtin's arithmetic identity" is an external
// collaborator) — this package exists only so the registry ABI, the
// integer-divide-by-zero-returns-0 contract, and the generic Factory
// path have a concrete, working example to exercise and test against,
// not as a claim of a complete standard library.
package stdregistry

import (
	"math"
	"strings"

	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// RegisterBuiltins installs the representative builtin set into r.
func RegisterBuiltins(r *registry.BuiltinRegistry) {
	registerIntBuiltins(r)
	registerFloatBuiltins(r)
	registerBoolBuiltins(r)
	registerStringBuiltins(r)
	registerGenericBuiltins(r)
}

func registerIntBuiltins(r *registry.BuiltinRegistry) {
	r.RegisterDirect("int.add", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(args[0].Int + args[1].Int), true, ""
	})
	r.RegisterDirect("int.sub", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(args[0].Int - args[1].Int), true, ""
	})
	r.RegisterDirect("int.mul", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(args[0].Int * args[1].Int), true, ""
	})
	// int.div follows the contract called out in the host's design notes:
	// divide by zero returns 0 rather than erroring, flagged there as a
	// possible bug rather than guessed-at correct behavior.
	r.RegisterDirect("int.div", func(args []values.Value) (values.Value, bool, string) {
		if args[1].Int == 0 {
			return values.Integer(0), true, ""
		}
		return values.Integer(args[0].Int / args[1].Int), true, ""
	})
	r.RegisterDirect("int.neg", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(-args[0].Int), true, ""
	})
	r.RegisterDirect("int.eq", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Int == args[1].Int), true, ""
	})
	r.RegisterDirect("int.lt", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Int < args[1].Int), true, ""
	})
}

func registerFloatBuiltins(r *registry.BuiltinRegistry) {
	r.RegisterDirect("float.add", func(args []values.Value) (values.Value, bool, string) {
		return values.Float(args[0].Float64 + args[1].Float64), true, ""
	})
	r.RegisterDirect("float.sub", func(args []values.Value) (values.Value, bool, string) {
		return values.Float(args[0].Float64 - args[1].Float64), true, ""
	})
	r.RegisterDirect("float.mul", func(args []values.Value) (values.Value, bool, string) {
		return values.Float(args[0].Float64 * args[1].Float64), true, ""
	})
	// float.div is delegated straight to Go's float division, which already
	// produces NaN/±Inf on a zero divisor without a branch.
	r.RegisterDirect("float.div", func(args []values.Value) (values.Value, bool, string) {
		return values.Float(args[0].Float64 / args[1].Float64), true, ""
	})
	r.RegisterDirect("float.neg", func(args []values.Value) (values.Value, bool, string) {
		return values.Float(-args[0].Float64), true, ""
	})
	r.RegisterDirect("float.eq", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Float64 == args[1].Float64), true, ""
	})
	r.RegisterDirect("float.lt", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Float64 < args[1].Float64), true, ""
	})
	r.RegisterDirect("float.isNaN", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(math.IsNaN(args[0].Float64)), true, ""
	})
}

func registerBoolBuiltins(r *registry.BuiltinRegistry) {
	r.RegisterDirect("bool.and", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Bool && args[1].Bool), true, ""
	})
	r.RegisterDirect("bool.or", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Bool || args[1].Bool), true, ""
	})
	r.RegisterDirect("bool.not", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(!args[0].Bool), true, ""
	})
	r.RegisterDirect("bool.eq", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Bool == args[1].Bool), true, ""
	})
}

func registerStringBuiltins(r *registry.BuiltinRegistry) {
	r.RegisterDirect("string.concat", func(args []values.Value) (values.Value, bool, string) {
		return values.String(args[0].Str + args[1].Str), true, ""
	})
	r.RegisterDirect("string.eq", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(args[0].Str == args[1].Str), true, ""
	})
	r.RegisterDirect("string.len", func(args []values.Value) (values.Value, bool, string) {
		return values.Integer(int64(len([]rune(args[0].Str)))), true, ""
	})
	r.RegisterDirect("string.contains", func(args []values.Value) (values.Value, bool, string) {
		return values.Boolean(strings.Contains(args[0].Str, args[1].Str)), true, ""
	})
}

// registerGenericBuiltins exercises the BuiltinFactory (type-params) path
// of the registry ABI with a single structural-equality builtin whose
// body doesn't need to branch on the type parameter at all — the
// type-parameter slot exists purely to demonstrate the generic factory
// shape, since values.Equal already dispatches on the runtime value's own
// kind.
func registerGenericBuiltins(r *registry.BuiltinRegistry) {
	r.Register("generic.eq", func(typeParams []*types.Descriptor) registry.BuiltinBody {
		return func(args []values.Value) (values.Value, bool, string) {
			return values.Boolean(values.Equal(args[0], args[1])), true, ""
		}
	})
}
