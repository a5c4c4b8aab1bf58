package interp

import (
	"fmt"

	"github.com/elaraai/east/env"
	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// Run evaluates node in a fresh root frame using the Interpreter's own
// registries, the entry point for a standalone (non-worker) evaluation.
func (ip *Interpreter) Run(node *ir.Node) ir.EvalResult {
	return ip.Eval(node, ip.RootFrame(), ip.RegistryContext())
}

// Eval evaluates a single IR node against the given frame and registry
// context, returning one of the five eval-result shapes.
// Every recursive call into Eval — not just the outermost one — prepends
// the node's own location stack to an outgoing Error result, so the
// location stack accumulates one frame at a time as the error bubbles
// through enclosing nodes.
func (ip *Interpreter) Eval(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	res := ip.evalNode(node, frame, reg)
	if res.Kind == ir.Error {
		for _, loc := range node.Locations {
			res = res.WithLocation(loc)
		}
	}
	return res
}

func (ip *Interpreter) evalNode(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	switch node.Kind {

	case ir.KindValue:
		return ir.OkResult(node.Literal)

	case ir.KindVariable:
		v, ok := frame.Lookup(node.Name)
		if !ok {
			return newError(UndefinedVariable, node.Name)
		}
		return ir.OkResult(v)

	case ir.KindLet:
		rhs := ip.Eval(node.RHS, frame, reg)
		if !rhs.IsOk() {
			return rhs
		}
		frame.Bind(node.Name, rhs.Value, node.Mutable)
		return ir.OkResult(values.Null())

	case ir.KindAssign:
		rhs := ip.Eval(node.RHS, frame, reg)
		if !rhs.IsOk() {
			return rhs
		}
		found, mutable := frame.Assign(node.Name, rhs.Value)
		if !found {
			return newError(UndefinedVariable, node.Name)
		}
		if !mutable {
			return newError(TypeMismatch, fmt.Sprintf("%q is not mutable", node.Name))
		}
		return ir.OkResult(values.Null())

	case ir.KindBlock:
		return ip.evalBlock(node, frame, reg)

	case ir.KindIfElse:
		return ip.evalIfElse(node, frame, reg)

	case ir.KindMatch:
		return ip.evalMatch(node, frame, reg)

	case ir.KindWhile:
		return ip.evalWhile(node, frame, reg)

	case ir.KindForArray:
		return ip.evalForArray(node, frame, reg)

	case ir.KindForSet:
		return ip.evalForSet(node, frame, reg)

	case ir.KindForDict:
		return ip.evalForDict(node, frame, reg)

	case ir.KindFunction, ir.KindAsyncFunction:
		closure := buildClosure(node, frame, reg)
		return ir.OkResult(values.NewFunction(closure))

	case ir.KindCall, ir.KindCallAsync:
		return ip.evalCall(node, frame, reg)

	case ir.KindPlatform:
		return ip.evalPlatform(node, frame, reg)

	case ir.KindBuiltin:
		return ip.evalBuiltin(node, frame, reg)

	case ir.KindReturn:
		v := ip.Eval(node.RHS, frame, reg)
		if !v.IsOk() {
			return v
		}
		return ir.ReturnResult(v.Value)

	case ir.KindBreak:
		return ir.BreakResult(node.Label)

	case ir.KindContinue:
		return ir.ContinueResult(node.Label)

	case ir.KindError:
		msg := ip.Eval(node.Message, frame, reg)
		if !msg.IsOk() {
			return msg
		}
		// No location here: Eval's wrapper pushes this node's own Locations
		// on the way out, same as every other node.
		return ir.EvalResult{Kind: ir.Error, Message: msg.Value.Str}

	case ir.KindTryCatch:
		return ip.evalTryCatch(node, frame, reg)

	case ir.KindNewArray:
		return ip.evalNewArray(node, frame, reg)

	case ir.KindNewSet:
		return ip.evalNewSet(node, frame, reg)

	case ir.KindNewDict:
		return ip.evalNewDict(node, frame, reg)

	case ir.KindNewRef:
		init := ip.Eval(node.RefInit, frame, reg)
		if !init.IsOk() {
			return init
		}
		return ir.OkResult(values.NewRef(node.ElemType, init.Value))

	case ir.KindNewVector:
		return ip.evalNewVector(node, frame, reg)

	case ir.KindStruct:
		return ip.evalStruct(node, frame, reg)

	case ir.KindGetField:
		obj := ip.Eval(node.Object, frame, reg)
		if !obj.IsOk() {
			return obj
		}
		if obj.Value.Kind != values.KindStruct {
			return newError(TypeMismatch, "GetField on a non-Struct value")
		}
		fv, ok := values.GetField(obj.Value, node.FieldName)
		if !ok {
			return newError(TypeMismatch, fmt.Sprintf("no such field %q", node.FieldName))
		}
		return ir.OkResult(fv)

	case ir.KindVariant:
		payload := values.Null()
		if node.Payload != nil {
			pv := ip.Eval(node.Payload, frame, reg)
			if !pv.IsOk() {
				return pv
			}
			payload = pv.Value
		}
		return ir.OkResult(values.NewVariant(node.Type, node.CaseName, payload))

	case ir.KindWrapRecursive, ir.KindUnwrapRecursive:
		// Transparent at runtime: the wrapper only exists at the type-
		// descriptor level.
		return ip.Eval(node.Inner, frame, reg)

	default:
		return newError(TypeMismatch, fmt.Sprintf("unhandled node kind %s", node.Kind))
	}
}

func (ip *Interpreter) evalBlock(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	result := ir.OkResult(values.Null())
	for _, stmt := range node.Stmts {
		result = ip.Eval(stmt, frame, reg)
		if !result.IsOk() {
			return result
		}
	}
	return result
}

func (ip *Interpreter) evalIfElse(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	cond := ip.Eval(node.Cond, frame, reg)
	if !cond.IsOk() {
		return cond
	}
	if cond.Value.Kind != values.KindBoolean {
		return newError(TypeMismatch, "IfElse condition must be Boolean")
	}
	if cond.Value.Bool {
		return ip.Eval(node.Then, frame, reg)
	}
	if node.Else != nil {
		return ip.Eval(node.Else, frame, reg)
	}
	return ir.OkResult(values.Null())
}

func (ip *Interpreter) evalMatch(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	v := ip.Eval(node.Expr, frame, reg)
	if !v.IsOk() {
		return v
	}
	if v.Value.Kind != values.KindVariant {
		return newError(TypeMismatch, "Match scrutinee must be a Variant value")
	}
	for _, c := range node.Cases {
		if c.CaseName != v.Value.Variant.Case {
			continue
		}
		child := env.Child(frame)
		if c.BindName != "" {
			child.Bind(c.BindName, v.Value.Variant.Payload, false)
		}
		return ip.Eval(c.Body, child, reg)
	}
	return newError(NoMatchingCase, v.Value.Variant.Case)
}

func (ip *Interpreter) evalWhile(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	for {
		cond := ip.Eval(node.Cond, frame, reg)
		if !cond.IsOk() {
			return cond
		}
		if cond.Value.Kind != values.KindBoolean {
			return newError(TypeMismatch, "While condition must be Boolean")
		}
		if !cond.Value.Bool {
			return ir.OkResult(values.Null())
		}
		body := ip.Eval(node.Body, env.Child(frame), reg)
		switch loopControl(body, node.Label) {
		case loopNext:
			continue
		case loopStop:
			return ir.OkResult(values.Null())
		default:
			return body
		}
	}
}

func (ip *Interpreter) evalForArray(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	coll := ip.Eval(node.Collection, frame, reg)
	if !coll.IsOk() {
		return coll
	}
	if coll.Value.Kind != values.KindArray {
		return newError(TypeMismatch, "ForArray collection must be an Array value")
	}
	valueName := node.IterNames[len(node.IterNames)-1]
	indexName := ""
	if node.ExposeIndex {
		indexName = node.IterNames[0]
	}
	for i := 0; i < coll.Value.Len(); i++ {
		child := env.Child(frame)
		if indexName != "" {
			child.Bind(indexName, values.Integer(int64(i)), false)
		}
		child.Bind(valueName, coll.Value.At(i), false)
		body := ip.Eval(node.Body, child, reg)
		switch loopControl(body, node.Label) {
		case loopNext:
			continue
		case loopStop:
			return ir.OkResult(values.Null())
		default:
			return body
		}
	}
	return ir.OkResult(values.Null())
}

func (ip *Interpreter) evalForSet(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	coll := ip.Eval(node.Collection, frame, reg)
	if !coll.IsOk() {
		return coll
	}
	if coll.Value.Kind != values.KindSet {
		return newError(TypeMismatch, "ForSet collection must be a Set value")
	}
	valueName := node.IterNames[0]
	for i := 0; i < coll.Value.Len(); i++ {
		child := env.Child(frame)
		child.Bind(valueName, coll.Value.At(i), false)
		body := ip.Eval(node.Body, child, reg)
		switch loopControl(body, node.Label) {
		case loopNext:
			continue
		case loopStop:
			return ir.OkResult(values.Null())
		default:
			return body
		}
	}
	return ir.OkResult(values.Null())
}

func (ip *Interpreter) evalForDict(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	coll := ip.Eval(node.Collection, frame, reg)
	if !coll.IsOk() {
		return coll
	}
	if coll.Value.Kind != values.KindDict {
		return newError(TypeMismatch, "ForDict collection must be a Dict value")
	}
	keyName, valName := node.IterNames[0], node.IterNames[1]
	for i, k := range coll.Value.Dict.Keys {
		child := env.Child(frame)
		child.Bind(keyName, k, false)
		child.Bind(valName, coll.Value.Dict.Vals[i], false)
		body := ip.Eval(node.Body, child, reg)
		switch loopControl(body, node.Label) {
		case loopNext:
			continue
		case loopStop:
			return ir.OkResult(values.Null())
		default:
			return body
		}
	}
	return ir.OkResult(values.Null())
}

func (ip *Interpreter) evalArgs(nodes []*ir.Node, frame *env.Frame, reg *registry.Context) ([]values.Value, ir.EvalResult, bool) {
	out := make([]values.Value, 0, len(nodes))
	for _, a := range nodes {
		res := ip.Eval(a, frame, reg)
		if !res.IsOk() {
			return nil, res, false
		}
		out = append(out, res.Value)
	}
	return out, ir.EvalResult{}, true
}

func (ip *Interpreter) evalCall(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	callee := ip.Eval(node.Callee, frame, reg)
	if !callee.IsOk() {
		return callee
	}
	if callee.Value.Kind != values.KindFunction || callee.Value.Func == nil {
		return newError(TypeMismatch, "Call target is not a Function value")
	}
	args, errRes, ok := ip.evalArgs(node.Args, frame, reg)
	if !ok {
		return errRes
	}
	return ip.callClosure(callee.Value.Func, args)
}

func (ip *Interpreter) evalPlatform(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	args, errRes, ok := ip.evalArgs(node.Args, frame, reg)
	if !ok {
		return errRes
	}
	body, _, err := reg.Platforms.Lookup(node.Name, node.TypeParams)
	if err != nil {
		if node.Optional {
			return ir.OkResult(values.Null())
		}
		return newError(UnknownPlatformFunc, node.Name)
	}
	return body(args)
}

func (ip *Interpreter) evalBuiltin(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	args, errRes, ok := ip.evalArgs(node.Args, frame, reg)
	if !ok {
		return errRes
	}
	body, err := reg.Builtins.Lookup(node.Name, node.TypeParams)
	if err != nil {
		return newError(UnknownBuiltin, node.Name)
	}
	result, ok, msg := body(args)
	if !ok {
		return newError(BuiltinErrorKind, msg)
	}
	return ir.OkResult(result)
}

func (ip *Interpreter) evalTryCatch(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	result := ip.Eval(node.Try, frame, reg)
	if result.Kind == ir.Error {
		child := env.Child(frame)
		if node.MsgVar != "" {
			child.Bind(node.MsgVar, values.String(result.Message), true)
		}
		if node.LocVar != "" {
			child.Bind(node.LocVar, locationsToValue(result.Locations), true)
		}
		result = ip.Eval(node.Catch, child, reg)
	}
	if node.Finally != nil {
		finallyRes := ip.Eval(node.Finally, frame, reg)
		if finallyRes.Kind != ir.Ok {
			result = finallyRes
		}
	}
	return result
}

// locationsToValue renders an accumulated location stack as an Array of
// {file, line, column} Struct values, innermost location first, so a
// TryCatch handler can inspect it as ordinary EAST data.
func locationsToValue(locs []ir.Location) values.Value {
	locType := types.NewStruct([]types.StructField{
		{Name: "file", Type: types.String},
		{Name: "line", Type: types.Integer},
		{Name: "column", Type: types.Integer},
	})
	items := make([]values.Value, len(locs))
	for i, l := range locs {
		items[i] = values.NewStruct(locType, []values.Value{
			values.String(l.File),
			values.Integer(int64(l.Line)),
			values.Integer(int64(l.Column)),
		})
	}
	return values.NewArray(locType, items)
}

func (ip *Interpreter) evalNewArray(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	items, errRes, ok := ip.evalArgs(node.Elements, frame, reg)
	if !ok {
		return errRes
	}
	return ir.OkResult(values.NewArray(node.ElemType, items))
}

func (ip *Interpreter) evalNewSet(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	items, errRes, ok := ip.evalArgs(node.Elements, frame, reg)
	if !ok {
		return errRes
	}
	return ir.OkResult(values.NewSet(node.ElemType, items))
}

func (ip *Interpreter) evalNewDict(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	keys := make([]values.Value, len(node.Keys))
	for i, kn := range node.Keys {
		res := ip.Eval(kn, frame, reg)
		if !res.IsOk() {
			return res
		}
		keys[i] = res.Value
	}
	vals := make([]values.Value, len(node.Vals))
	for i, vn := range node.Vals {
		res := ip.Eval(vn, frame, reg)
		if !res.IsOk() {
			return res
		}
		vals[i] = res.Value
	}
	var keyType, valType *types.Descriptor
	if node.Type != nil {
		keyType, valType = node.Type.Key, node.Type.Value
	}
	return ir.OkResult(values.NewDict(keyType, valType, keys, vals))
}

func (ip *Interpreter) evalNewVector(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	items, errRes, ok := ip.evalArgs(node.Elements, frame, reg)
	if !ok {
		return errRes
	}
	scalar := node.ElemType.Scalar
	vec := values.NewVector(scalar, len(items))
	for i, it := range items {
		switch it.Kind {
		case values.KindFloat:
			values.SetFloat(vec, i, it.Float64)
		case values.KindInteger:
			values.SetInteger(vec, i, it.Int)
		case values.KindBoolean:
			values.SetBoolean(vec, i, it.Bool)
		default:
			return newError(TypeMismatch, "Vector elements must be Float, Integer or Boolean")
		}
	}
	return ir.OkResult(vec)
}

func (ip *Interpreter) evalStruct(node *ir.Node, frame *env.Frame, reg *registry.Context) ir.EvalResult {
	fields := make([]values.Value, len(node.Fields))
	for i, f := range node.Fields {
		res := ip.Eval(f.Value, frame, reg)
		if !res.IsOk() {
			return res
		}
		fields[i] = res.Value
	}
	return ir.OkResult(values.NewStruct(node.Type, fields))
}
