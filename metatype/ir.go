package metatype

import (
	"github.com/pkg/errors"

	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// LiteralCodec is the narrow interface the IRNode bridge needs to embed an
// arbitrary Literal value (ir.Node.Literal, of whatever type the compiler
// gave it) inside the otherwise-homogeneous IRNode value tree. A function
// takes this rather than the bridge importing package codec directly,
// since codec's Framed format itself calls back into this package to
// self-describe its embedded descriptor — importing codec here would
// close that cycle.
type LiteralCodec interface {
	EncodeCompact(v values.Value, t *types.Descriptor) ([]byte, error)
	DecodeCompact(b []byte, t *types.Descriptor) (values.Value, error)
}

func optionType(inner *types.Descriptor) *types.Descriptor {
	return types.NewVariant([]types.VariantCase{
		{Name: "None", Type: types.Null},
		{Name: "Some", Type: inner},
	})
}

func someValue(optType *types.Descriptor, v values.Value) values.Value {
	return values.NewVariant(optType, "Some", v)
}

func noneValue(optType *types.Descriptor) values.Value {
	return values.NewVariant(optType, "None", values.Null())
}

func isSome(v values.Value) (values.Value, bool) {
	if v.Kind != values.KindVariant {
		return values.Value{}, false
	}
	if v.Variant.Case == "Some" {
		return v.Variant.Payload, true
	}
	return values.Value{}, false
}

// locationType, captureSpecType, matchCaseType, namedNodeType are the
// fixed-shape payload structs shared by several IRNode fields.
var (
	locationType    *types.Descriptor
	captureSpecType *types.Descriptor
	matchCaseType   *types.Descriptor
	namedNodeType   *types.Descriptor
)

// IRNodeType is the canonical recursive Struct descriptor mirroring
// ir.Node, one field per node field.
var IRNodeType *types.Descriptor

var stringArrayType = types.NewArray(types.String)
var typeParamsArrayType = types.NewArray(MetaType)

func init() {
	locationType = types.NewStruct([]types.StructField{
		{Name: "file", Type: types.String},
		{Name: "line", Type: types.Integer},
		{Name: "column", Type: types.Integer},
	})

	node := types.NewRecursivePlaceholder()
	nodeOpt := optionType(node)
	nodeArr := types.NewArray(node)

	captureSpecType = types.NewStruct([]types.StructField{
		{Name: "name", Type: types.String},
		{Name: "mutable", Type: types.Boolean},
	})
	matchCaseType = types.NewStruct([]types.StructField{
		{Name: "caseName", Type: types.String},
		{Name: "bindName", Type: types.String},
		{Name: "body", Type: node},
	})
	namedNodeType = types.NewStruct([]types.StructField{
		{Name: "name", Type: types.String},
		{Name: "value", Type: node},
	})

	inner := types.NewStruct([]types.StructField{
		{Name: "kind", Type: types.String},
		{Name: "type", Type: optionType(MetaType)},
		{Name: "locations", Type: types.NewArray(locationType)},

		{Name: "literalType", Type: optionType(MetaType)},
		{Name: "literalBytes", Type: types.Blob},

		{Name: "name", Type: types.String},
		{Name: "mutable", Type: types.Boolean},
		{Name: "captured", Type: types.Boolean},

		{Name: "rhs", Type: nodeOpt},
		{Name: "stmts", Type: nodeArr},

		{Name: "cond", Type: nodeOpt},
		{Name: "then", Type: nodeOpt},
		{Name: "else", Type: nodeOpt},

		{Name: "expr", Type: nodeOpt},
		{Name: "cases", Type: types.NewArray(matchCaseType)},

		{Name: "body", Type: nodeOpt},
		{Name: "label", Type: types.String},

		{Name: "collection", Type: nodeOpt},
		{Name: "iterNames", Type: stringArrayType},
		{Name: "exposeIndex", Type: types.Boolean},

		{Name: "captures", Type: types.NewArray(captureSpecType)},
		{Name: "params", Type: stringArrayType},
		{Name: "funcBody", Type: nodeOpt},
		{Name: "originalAs", Type: nodeOpt},

		{Name: "callee", Type: nodeOpt},
		{Name: "args", Type: nodeArr},

		{Name: "typeParams", Type: typeParamsArrayType},
		{Name: "async", Type: types.Boolean},
		{Name: "optional", Type: types.Boolean},

		{Name: "message", Type: nodeOpt},

		{Name: "try", Type: nodeOpt},
		{Name: "msgVar", Type: types.String},
		{Name: "locVar", Type: types.String},
		{Name: "catch", Type: nodeOpt},
		{Name: "finally", Type: nodeOpt},

		{Name: "elements", Type: nodeArr},
		{Name: "elemType", Type: optionType(MetaType)},

		{Name: "keys", Type: nodeArr},
		{Name: "vals", Type: nodeArr},

		{Name: "refInit", Type: nodeOpt},

		{Name: "fields", Type: types.NewArray(namedNodeType)},

		{Name: "object", Type: nodeOpt},
		{Name: "fieldName", Type: types.String},

		{Name: "caseName", Type: types.String},
		{Name: "payload", Type: nodeOpt},

		{Name: "inner", Type: nodeOpt},
	})
	IRNodeType = types.CloseRecursive(node, inner)
}

func locToValue(l ir.Location) values.Value {
	return values.NewStruct(locationType, []values.Value{
		values.String(l.File), values.Integer(int64(l.Line)), values.Integer(int64(l.Column)),
	})
}

func locFromValue(v values.Value) ir.Location {
	f, _ := values.GetField(v, "file")
	ln, _ := values.GetField(v, "line")
	c, _ := values.GetField(v, "column")
	return ir.Location{File: f.Str, Line: int(ln.Int), Column: int(c.Int)}
}

func nodeOptValue(n *ir.Node, codec LiteralCodec) (values.Value, error) {
	if n == nil {
		return noneValue(optionType(IRNodeType)), nil
	}
	v, err := IRNodeToValue(n, codec)
	if err != nil {
		return values.Value{}, err
	}
	return someValue(optionType(IRNodeType), v), nil
}

func nodeFromOptValue(v values.Value, codec LiteralCodec) (*ir.Node, error) {
	inner, ok := isSome(v)
	if !ok {
		return nil, nil
	}
	return ValueToIRNode(inner, codec)
}

func nodeArrValue(ns []*ir.Node, codec LiteralCodec) (values.Value, error) {
	items := make([]values.Value, len(ns))
	for i, n := range ns {
		v, err := IRNodeToValue(n, codec)
		if err != nil {
			return values.Value{}, err
		}
		items[i] = v
	}
	return values.NewArray(IRNodeType, items), nil
}

func nodeArrFromValue(v values.Value, codec LiteralCodec) ([]*ir.Node, error) {
	out := make([]*ir.Node, v.Len())
	for i := 0; i < v.Len(); i++ {
		n, err := ValueToIRNode(v.At(i), codec)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func stringArrValue(ss []string) values.Value {
	items := make([]values.Value, len(ss))
	for i, s := range ss {
		items[i] = values.String(s)
	}
	return values.NewArray(types.String, items)
}

func stringArrFromValue(v values.Value) []string {
	out := make([]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = v.At(i).Str
	}
	return out
}

// IRNodeToValue converts an IR node to its canonical IRNodeType value
//. codec supplies Compact encode/decode for the node's
// Literal field (ir.KindValue only); pass nil if the tree contains no
// Value nodes (e.g. it was itself just decoded and has no literal to
// re-embed until the caller needs to).
func IRNodeToValue(n *ir.Node, codec LiteralCodec) (values.Value, error) {
	if n == nil {
		return values.Value{}, errors.New("metatype: cannot convert a nil *ir.Node")
	}

	typeOpt := noneValue(optionType(MetaType))
	if n.Type != nil {
		typeOpt = someValue(optionType(MetaType), DescriptorToValue(n.Type))
	}

	locs := make([]values.Value, len(n.Locations))
	for i, l := range n.Locations {
		locs[i] = locToValue(l)
	}

	literalTypeOpt := noneValue(optionType(MetaType))
	literalBytes := values.Blob(nil)
	if n.Kind == ir.KindValue {
		t := n.Type
		if t == nil {
			return values.Value{}, errors.New("metatype: a Value node must carry its literal's type")
		}
		literalTypeOpt = someValue(optionType(MetaType), DescriptorToValue(t))
		if codec == nil {
			return values.Value{}, errors.New("metatype: IRNodeToValue needs a LiteralCodec to embed a Value node's literal")
		}
		b, err := codec.EncodeCompact(n.Literal, t)
		if err != nil {
			return values.Value{}, errors.Wrap(err, "metatype: encoding literal")
		}
		literalBytes = values.Blob(b)
	}

	rhsOpt, err := nodeOptValue(n.RHS, codec)
	if err != nil {
		return values.Value{}, err
	}
	stmtsArr, err := nodeArrValue(n.Stmts, codec)
	if err != nil {
		return values.Value{}, err
	}
	condOpt, err := nodeOptValue(n.Cond, codec)
	if err != nil {
		return values.Value{}, err
	}
	thenOpt, err := nodeOptValue(n.Then, codec)
	if err != nil {
		return values.Value{}, err
	}
	elseOpt, err := nodeOptValue(n.Else, codec)
	if err != nil {
		return values.Value{}, err
	}
	exprOpt, err := nodeOptValue(n.Expr, codec)
	if err != nil {
		return values.Value{}, err
	}
	cases := make([]values.Value, len(n.Cases))
	for i, c := range n.Cases {
		body, err := IRNodeToValue(c.Body, codec)
		if err != nil {
			return values.Value{}, err
		}
		cases[i] = values.NewStruct(matchCaseType, []values.Value{
			values.String(c.CaseName), values.String(c.BindName), body,
		})
	}
	bodyOpt, err := nodeOptValue(n.Body, codec)
	if err != nil {
		return values.Value{}, err
	}
	collOpt, err := nodeOptValue(n.Collection, codec)
	if err != nil {
		return values.Value{}, err
	}
	captures := make([]values.Value, len(n.Captures))
	for i, c := range n.Captures {
		captures[i] = values.NewStruct(captureSpecType, []values.Value{values.String(c.Name), values.Boolean(c.Mutable)})
	}
	funcBodyOpt, err := nodeOptValue(n.FuncBody, codec)
	if err != nil {
		return values.Value{}, err
	}
	originalAsOpt, err := nodeOptValue(n.OriginalAs, codec)
	if err != nil {
		return values.Value{}, err
	}
	calleeOpt, err := nodeOptValue(n.Callee, codec)
	if err != nil {
		return values.Value{}, err
	}
	argsArr, err := nodeArrValue(n.Args, codec)
	if err != nil {
		return values.Value{}, err
	}
	typeParams := make([]values.Value, len(n.TypeParams))
	for i, t := range n.TypeParams {
		typeParams[i] = DescriptorToValue(t)
	}
	messageOpt, err := nodeOptValue(n.Message, codec)
	if err != nil {
		return values.Value{}, err
	}
	tryOpt, err := nodeOptValue(n.Try, codec)
	if err != nil {
		return values.Value{}, err
	}
	catchOpt, err := nodeOptValue(n.Catch, codec)
	if err != nil {
		return values.Value{}, err
	}
	finallyOpt, err := nodeOptValue(n.Finally, codec)
	if err != nil {
		return values.Value{}, err
	}
	elemsArr, err := nodeArrValue(n.Elements, codec)
	if err != nil {
		return values.Value{}, err
	}
	elemTypeOpt := noneValue(optionType(MetaType))
	if n.ElemType != nil {
		elemTypeOpt = someValue(optionType(MetaType), DescriptorToValue(n.ElemType))
	}
	keysArr, err := nodeArrValue(n.Keys, codec)
	if err != nil {
		return values.Value{}, err
	}
	valsArr, err := nodeArrValue(n.Vals, codec)
	if err != nil {
		return values.Value{}, err
	}
	refInitOpt, err := nodeOptValue(n.RefInit, codec)
	if err != nil {
		return values.Value{}, err
	}
	fields := make([]values.Value, len(n.Fields))
	for i, f := range n.Fields {
		fv, err := IRNodeToValue(f.Value, codec)
		if err != nil {
			return values.Value{}, err
		}
		fields[i] = values.NewStruct(namedNodeType, []values.Value{values.String(f.Name), fv})
	}
	objectOpt, err := nodeOptValue(n.Object, codec)
	if err != nil {
		return values.Value{}, err
	}
	payloadOpt, err := nodeOptValue(n.Payload, codec)
	if err != nil {
		return values.Value{}, err
	}
	innerOpt, err := nodeOptValue(n.Inner, codec)
	if err != nil {
		return values.Value{}, err
	}

	return values.NewStruct(IRNodeType, []values.Value{
		values.String(n.Kind.String()),
		typeOpt,
		values.NewArray(locationType, locs),
		literalTypeOpt,
		literalBytes,
		values.String(n.Name),
		values.Boolean(n.Mutable),
		values.Boolean(n.Captured),
		rhsOpt,
		stmtsArr,
		condOpt,
		thenOpt,
		elseOpt,
		exprOpt,
		values.NewArray(matchCaseType, cases),
		bodyOpt,
		values.String(n.Label),
		collOpt,
		stringArrValue(n.IterNames),
		values.Boolean(n.ExposeIndex),
		values.NewArray(captureSpecType, captures),
		stringArrValue(n.Params),
		funcBodyOpt,
		originalAsOpt,
		calleeOpt,
		argsArr,
		values.NewArray(MetaType, typeParams),
		values.Boolean(n.Async),
		values.Boolean(n.Optional),
		messageOpt,
		tryOpt,
		values.String(n.MsgVar),
		values.String(n.LocVar),
		catchOpt,
		finallyOpt,
		elemsArr,
		elemTypeOpt,
		keysArr,
		valsArr,
		refInitOpt,
		values.NewArray(namedNodeType, fields),
		objectOpt,
		values.String(n.FieldName),
		values.String(n.CaseName),
		payloadOpt,
		innerOpt,
	}), nil
}

var kindByName map[string]ir.Kind

func init() {
	kindByName = map[string]ir.Kind{}
	for k := ir.KindValue; k <= ir.KindUnwrapRecursive; k++ {
		kindByName[k.String()] = k
	}
}

// ValueToIRNode is the inverse of IRNodeToValue.
func ValueToIRNode(v values.Value, codec LiteralCodec) (*ir.Node, error) {
	field := func(name string) values.Value {
		f, _ := values.GetField(v, name)
		return f
	}

	kindName := field("kind").Str
	kind, ok := kindByName[kindName]
	if !ok {
		return nil, errors.Errorf("metatype: unknown IR node kind %q", kindName)
	}

	n := &ir.Node{Kind: kind}

	if t, ok := isSome(field("type")); ok {
		dt, err := ValueToDescriptor(t)
		if err != nil {
			return nil, err
		}
		n.Type = dt
	}
	locsV := field("locations")
	n.Locations = make([]ir.Location, locsV.Len())
	for i := 0; i < locsV.Len(); i++ {
		n.Locations[i] = locFromValue(locsV.At(i))
	}

	if kind == ir.KindValue {
		lt, ok := isSome(field("literalType"))
		if !ok {
			return nil, errors.New("metatype: Value node missing literalType")
		}
		dt, err := ValueToDescriptor(lt)
		if err != nil {
			return nil, err
		}
		if codec == nil {
			return nil, errors.New("metatype: ValueToIRNode needs a LiteralCodec to decode a Value node's literal")
		}
		lit, err := codec.DecodeCompact(field("literalBytes").Blob, dt)
		if err != nil {
			return nil, errors.Wrap(err, "metatype: decoding literal")
		}
		n.Type = dt
		n.Literal = lit
	}

	n.Name = field("name").Str
	n.Mutable = field("mutable").Bool
	n.Captured = field("captured").Bool

	var err error
	if n.RHS, err = nodeFromOptValue(field("rhs"), codec); err != nil {
		return nil, err
	}
	if n.Stmts, err = nodeArrFromValue(field("stmts"), codec); err != nil {
		return nil, err
	}
	if n.Cond, err = nodeFromOptValue(field("cond"), codec); err != nil {
		return nil, err
	}
	if n.Then, err = nodeFromOptValue(field("then"), codec); err != nil {
		return nil, err
	}
	if n.Else, err = nodeFromOptValue(field("else"), codec); err != nil {
		return nil, err
	}
	if n.Expr, err = nodeFromOptValue(field("expr"), codec); err != nil {
		return nil, err
	}
	casesV := field("cases")
	n.Cases = make([]ir.MatchCase, casesV.Len())
	for i := 0; i < casesV.Len(); i++ {
		cv := casesV.At(i)
		caseName, _ := values.GetField(cv, "caseName")
		bindName, _ := values.GetField(cv, "bindName")
		bodyV, _ := values.GetField(cv, "body")
		body, err := ValueToIRNode(bodyV, codec)
		if err != nil {
			return nil, err
		}
		n.Cases[i] = ir.MatchCase{CaseName: caseName.Str, BindName: bindName.Str, Body: body}
	}
	if n.Body, err = nodeFromOptValue(field("body"), codec); err != nil {
		return nil, err
	}
	n.Label = field("label").Str
	if n.Collection, err = nodeFromOptValue(field("collection"), codec); err != nil {
		return nil, err
	}
	n.IterNames = stringArrFromValue(field("iterNames"))
	n.ExposeIndex = field("exposeIndex").Bool

	capsV := field("captures")
	n.Captures = make([]values.CaptureSpec, capsV.Len())
	for i := 0; i < capsV.Len(); i++ {
		cv := capsV.At(i)
		name, _ := values.GetField(cv, "name")
		mutable, _ := values.GetField(cv, "mutable")
		n.Captures[i] = values.CaptureSpec{Name: name.Str, Mutable: mutable.Bool}
	}
	n.Params = stringArrFromValue(field("params"))
	if n.FuncBody, err = nodeFromOptValue(field("funcBody"), codec); err != nil {
		return nil, err
	}
	if n.OriginalAs, err = nodeFromOptValue(field("originalAs"), codec); err != nil {
		return nil, err
	}
	if n.Callee, err = nodeFromOptValue(field("callee"), codec); err != nil {
		return nil, err
	}
	if n.Args, err = nodeArrFromValue(field("args"), codec); err != nil {
		return nil, err
	}
	tpV := field("typeParams")
	n.TypeParams = make([]*types.Descriptor, tpV.Len())
	for i := 0; i < tpV.Len(); i++ {
		dt, err := ValueToDescriptor(tpV.At(i))
		if err != nil {
			return nil, err
		}
		n.TypeParams[i] = dt
	}
	n.Async = field("async").Bool
	n.Optional = field("optional").Bool
	if n.Message, err = nodeFromOptValue(field("message"), codec); err != nil {
		return nil, err
	}
	if n.Try, err = nodeFromOptValue(field("try"), codec); err != nil {
		return nil, err
	}
	n.MsgVar = field("msgVar").Str
	n.LocVar = field("locVar").Str
	if n.Catch, err = nodeFromOptValue(field("catch"), codec); err != nil {
		return nil, err
	}
	if n.Finally, err = nodeFromOptValue(field("finally"), codec); err != nil {
		return nil, err
	}
	if n.Elements, err = nodeArrFromValue(field("elements"), codec); err != nil {
		return nil, err
	}
	if et, ok := isSome(field("elemType")); ok {
		dt, err := ValueToDescriptor(et)
		if err != nil {
			return nil, err
		}
		n.ElemType = dt
	}
	if n.Keys, err = nodeArrFromValue(field("keys"), codec); err != nil {
		return nil, err
	}
	if n.Vals, err = nodeArrFromValue(field("vals"), codec); err != nil {
		return nil, err
	}
	if n.RefInit, err = nodeFromOptValue(field("refInit"), codec); err != nil {
		return nil, err
	}
	fieldsV := field("fields")
	n.Fields = make([]ir.NamedNode, fieldsV.Len())
	for i := 0; i < fieldsV.Len(); i++ {
		fv := fieldsV.At(i)
		name, _ := values.GetField(fv, "name")
		valV, _ := values.GetField(fv, "value")
		val, err := ValueToIRNode(valV, codec)
		if err != nil {
			return nil, err
		}
		n.Fields[i] = ir.NamedNode{Name: name.Str, Value: val}
	}
	if n.Object, err = nodeFromOptValue(field("object"), codec); err != nil {
		return nil, err
	}
	n.FieldName = field("fieldName").Str
	n.CaseName = field("caseName").Str
	if n.Payload, err = nodeFromOptValue(field("payload"), codec); err != nil {
		return nil, err
	}
	if n.Inner, err = nodeFromOptValue(field("inner"), codec); err != nil {
		return nil, err
	}

	return n, nil
}
