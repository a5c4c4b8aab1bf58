package interp

import (
	"fmt"

	"github.com/elaraai/east/codec"
	"github.com/elaraai/east/env"
	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/metatype"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/values"
)

// buildClosure captures the current frame's named captures and the
// registries active at this point into a compiled closure: "snapshotting current capture values from the
// enclosing frame and attaching the current registries".
func buildClosure(node *ir.Node, frame *env.Frame, reg *registry.Context) *values.Closure {
	names := make([]string, len(node.Captures))
	for i, c := range node.Captures {
		names[i] = c.Name
	}
	c := &values.Closure{
		Body:             node.FuncBody,
		Captures:         node.Captures,
		CaptureEnv:       frame.Snapshot(names),
		Params:           node.Params,
		BuiltinRegistry:  reg.Builtins,
		PlatformRegistry: reg.Platforms,
	}
	// OriginalAsValue re-expresses the function's own IR — Params, Captures
	// and FuncBody together, i.e. the whole Function/AsyncFunction node, not
	// just its body — as a value via the meta-type bridge, so a Function
	// value can cross any codec boundary with its signature intact. A body
	// that fails to convert (e.g. it embeds a value kind the bridge cannot
	// yet describe) still produces a callable closure; OriginalAsValue is
	// simply left Null, and only serializing the function later would fail.
	if asValue, err := metatype.IRNodeToValue(node, codec.Literal); err == nil {
		c.OriginalAsValue = asValue
	} else {
		c.OriginalAsValue = values.Null()
	}
	return c
}

// callClosure invokes a compiled closure with already-evaluated arguments
//: "enters a new frame parented to the
// closure's capture frame, binds parameters positionally, and evaluates the
// function body using the registries recorded on the closure — not
// whichever registries are active at the call site." This is what lets a
// closure decoded inside a parallel worker keep calling back into the
// builtins/platforms it was built with even though the worker's own
// registry context may differ.
func (ip *Interpreter) callClosure(c *values.Closure, args []values.Value) ir.EvalResult {
	body, ok := c.Body.(*ir.Node)
	if !ok {
		return ir.ErrorResult(fmt.Sprintf("%s: callee closure has no body", TypeMismatch), ir.Location{})
	}
	if len(args) != len(c.Params) {
		return ir.ErrorResult(
			fmt.Sprintf("%s: function expects %d argument(s), got %d", TypeMismatch, len(c.Params), len(args)),
			ir.Location{},
		)
	}

	captureFrame := env.FromSnapshot(nil, c.CaptureEnv, c.Captures)
	callFrame := env.Child(captureFrame)
	for i, p := range c.Params {
		callFrame.Bind(p, args[i], true)
	}

	builtins, _ := c.BuiltinRegistry.(*registry.BuiltinRegistry)
	platforms, _ := c.PlatformRegistry.(*registry.PlatformRegistry)
	closureReg := &registry.Context{Builtins: builtins, Platforms: platforms}

	res := ip.Eval(body, callFrame, closureReg)
	switch res.Kind {
	case ir.Return:
		return ir.OkResult(res.Value)
	case ir.Ok, ir.Error:
		return res
	default:
		// A Break/Continue escaping a function body is a producing-compiler
		// bug: every loop must consume its own labels
		// before the enclosing function returns. Surfaced as an error rather
		// than panicking so a misbehaving compiler is debuggable instead of
		// crashing the host process.
		return ir.ErrorResult(fmt.Sprintf("%s: break/continue escaped function body", TypeMismatch), ir.Location{})
	}
}

// CallFunction applies a Function-kind value to args, using the
// registries the closure was built or decoded with rather than whichever
// registries are active on ip. This is the entry point the parallel map
// worker uses to apply a decoded function per element without reaching
// into interp's unexported closure machinery.
func (ip *Interpreter) CallFunction(fn values.Value, args []values.Value) ir.EvalResult {
	if fn.Kind != values.KindFunction || fn.Func == nil {
		return ir.ErrorResult(fmt.Sprintf("%s: callee is not a function", TypeMismatch), ir.Location{})
	}
	return ip.callClosure(fn.Func, args)
}
