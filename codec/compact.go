package codec

import (
	"github.com/pkg/errors"

	"github.com/elaraai/east/ir"
	"github.com/elaraai/east/metatype"
	"github.com/elaraai/east/registry"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// compactEncoder tracks, per encoding pass, the byte offset at which each
// distinct container identity (Array/Set/Dict/Ref pointer) started, so a
// repeated pointer can be written as a backreference distance instead of
// duplicating its content.
type compactEncoder struct {
	buf  []byte
	seen map[any]int
}

// compactDecoder is the inverse: offsets where a backreference tag began,
// mapped to the fully-decoded value found there, so a repeated distance
// resolves to the very same Value.
type compactDecoder struct {
	buf  []byte
	pos  int
	seen map[int]values.Value

	// reg is the registry context a decoded Function value's closure is
	// stamped with. Nil means "use registry.Current()".
	reg *registry.Context
}

// EncodeCompact encodes v per its descriptor t using the headerless
// Compact binary format.
func EncodeCompact(v values.Value, t *types.Descriptor) ([]byte, error) {
	enc := &compactEncoder{seen: map[any]int{}}
	if err := enc.encode(v, t); err != nil {
		return nil, err
	}
	return enc.buf, nil
}

// DecodeCompact decodes a Compact-encoded value of descriptor t from b,
// requiring the entire input be consumed. Any Function value it decodes
// is stamped with registry.Current().
func DecodeCompact(b []byte, t *types.Descriptor) (values.Value, error) {
	return decodeCompact(b, t, nil)
}

// DecodeCompactWithRegistry is DecodeCompact but stamps any decoded
// Function value with reg instead of the process-default registry
// context, letting a non-main goroutine decode a function value against
// its own explicit registry pair instead of a shared global (see package
// parallel).
func DecodeCompactWithRegistry(b []byte, t *types.Descriptor, reg *registry.Context) (values.Value, error) {
	return decodeCompact(b, t, reg)
}

func decodeCompact(b []byte, t *types.Descriptor, reg *registry.Context) (values.Value, error) {
	dec := &compactDecoder{buf: b, seen: map[int]values.Value{}, reg: reg}
	v, err := dec.decode(t)
	if err != nil {
		return values.Value{}, err
	}
	if dec.pos != len(b) {
		return values.Value{}, errors.Errorf("codec: %d trailing byte(s) after Compact value", len(b)-dec.pos)
	}
	return v, nil
}

func (e *compactEncoder) writeBackrefTag(token any) (isNew bool) {
	pos := len(e.buf)
	if start, ok := e.seen[token]; ok {
		e.buf = putUvarint(e.buf, uint64(pos-start))
		return false
	}
	e.seen[token] = pos
	e.buf = putUvarint(e.buf, 0)
	return true
}

func (e *compactEncoder) encode(v values.Value, t *types.Descriptor) error {
	switch t.Kind {
	case types.KindNever, types.KindNull:
		return nil
	case types.KindBoolean:
		if v.Bool {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
		return nil
	case types.KindInteger:
		e.buf = putUvarint(e.buf, zigzagEncode(v.Int))
		return nil
	case types.KindDateTime:
		e.buf = putUvarint(e.buf, zigzagEncode(v.Millis))
		return nil
	case types.KindFloat:
		e.buf = putFloat64(e.buf, v.Float64)
		return nil
	case types.KindString:
		e.buf = putUvarint(e.buf, uint64(len(v.Str)))
		e.buf = append(e.buf, v.Str...)
		return nil
	case types.KindBlob:
		e.buf = putUvarint(e.buf, uint64(len(v.Blob)))
		e.buf = append(e.buf, v.Blob...)
		return nil
	case types.KindArray, types.KindSet:
		token, ok := v.Identity()
		if !ok {
			return errors.New("codec: Array/Set value missing identity")
		}
		if !e.writeBackrefTag(token) {
			return nil
		}
		e.buf = putUvarint(e.buf, uint64(v.Len()))
		for i := 0; i < v.Len(); i++ {
			if err := e.encode(v.At(i), t.Elem); err != nil {
				return err
			}
		}
		return nil
	case types.KindDict:
		token, ok := v.Identity()
		if !ok {
			return errors.New("codec: Dict value missing identity")
		}
		if !e.writeBackrefTag(token) {
			return nil
		}
		n := values.DictLen(v)
		e.buf = putUvarint(e.buf, uint64(n))
		for i := 0; i < n; i++ {
			k, val := v.Dict.Keys[i], v.Dict.Vals[i]
			if err := e.encode(k, t.Key); err != nil {
				return err
			}
			if err := e.encode(val, t.Value); err != nil {
				return err
			}
		}
		return nil
	case types.KindStruct:
		for i, f := range t.Fields {
			if err := e.encode(v.Struct.Fields[i], f.Type); err != nil {
				return err
			}
		}
		return nil
	case types.KindVariant:
		e.buf = putUvarint(e.buf, uint64(v.Variant.CaseIdx))
		return e.encode(v.Variant.Payload, t.Cases[v.Variant.CaseIdx].Type)
	case types.KindRef:
		token, ok := v.Identity()
		if !ok {
			return errors.New("codec: Ref value missing identity")
		}
		if !e.writeBackrefTag(token) {
			return nil
		}
		return e.encode(v.Ref.Inner, t.Elem)
	case types.KindVector:
		e.buf = putUvarint(e.buf, uint64(v.Packed.Len))
		e.buf = append(e.buf, v.Packed.Bytes...)
		return nil
	case types.KindMatrix:
		e.buf = putUvarint(e.buf, uint64(v.Packed.Rows))
		e.buf = putUvarint(e.buf, uint64(v.Packed.Cols))
		e.buf = append(e.buf, v.Packed.Bytes...)
		return nil
	case types.KindRecursive:
		return e.encode(v, t.Inner)
	case types.KindFunction, types.KindAsyncFunction:
		return e.encodeFunction(v, t)
	default:
		return errors.Errorf("codec: unsupported descriptor kind %v", t.Kind)
	}
}

func (e *compactEncoder) encodeFunction(v values.Value, t *types.Descriptor) error {
	c := v.Func
	bodyNode, ok := c.Body.(*ir.Node)
	if !ok {
		return errors.New("codec: closure Body is not *ir.Node")
	}
	funcKind := ir.KindFunction
	if t.Kind == types.KindAsyncFunction {
		funcKind = ir.KindAsyncFunction
	}
	// Wrap Params/Captures/body back into the Function/AsyncFunction node
	// they came from, so Params and capture names survive the round trip
	// instead of being read off the bare body expression (which carries
	// neither).
	wrapper := &ir.Node{
		Kind:     funcKind,
		Params:   c.Params,
		Captures: c.Captures,
		FuncBody: bodyNode,
	}
	nodeValue, err := metatype.IRNodeToValue(wrapper, compactLiteralCodec{})
	if err != nil {
		return errors.Wrap(err, "codec: converting closure IR to value")
	}
	if err := e.encode(nodeValue, metatype.IRNodeType); err != nil {
		return errors.Wrap(err, "codec: encoding closure IR")
	}
	e.buf = putUvarint(e.buf, uint64(len(c.Captures)))
	for _, cap := range c.Captures {
		val, ok := c.CaptureEnv[cap.Name]
		if !ok {
			return errors.Errorf("codec: closure missing capture %q", cap.Name)
		}
		capType, err := descriptorOf(val)
		if err != nil {
			return errors.Wrapf(err, "codec: capture %q", cap.Name)
		}
		if err := e.encode(metatype.DescriptorToValue(capType), metatype.MetaType); err != nil {
			return err
		}
		if err := e.encode(val, capType); err != nil {
			return errors.Wrapf(err, "codec: encoding capture %q", cap.Name)
		}
	}
	return nil
}

// descriptorOf derives a value's own descriptor from the type information
// every compound Value already carries on itself (Seq.ElemType,
// Dict.KeyType/ValType, Struct.Type, Variant.Type, Ref.ElemType,
// Packed.Scalar). Primitive kinds are trivial. Function values carry no
// such descriptor on themselves (a closure's signature is a property of
// its binding site, not of the runtime value) — capturing a function
// inside another closure is not supported by this derivation.
func descriptorOf(v values.Value) (*types.Descriptor, error) {
	switch v.Kind {
	case values.KindNull:
		return types.Null, nil
	case values.KindBoolean:
		return types.Boolean, nil
	case values.KindInteger:
		return types.Integer, nil
	case values.KindFloat:
		return types.Float, nil
	case values.KindString:
		return types.String, nil
	case values.KindDateTime:
		return types.DateTime, nil
	case values.KindBlob:
		return types.Blob, nil
	case values.KindArray:
		return types.NewArray(v.Seq.ElemType), nil
	case values.KindSet:
		return types.NewSet(v.Seq.ElemType), nil
	case values.KindDict:
		return types.NewDict(v.Dict.KeyType, v.Dict.ValType), nil
	case values.KindStruct:
		return v.Struct.Type, nil
	case values.KindVariant:
		return v.Variant.Type, nil
	case values.KindRef:
		return types.NewRef(v.Ref.ElemType), nil
	case values.KindVector:
		return types.NewVector(v.Packed.Scalar), nil
	case values.KindMatrix:
		return types.NewMatrix(v.Packed.Scalar), nil
	default:
		return nil, errors.Errorf("codec: cannot derive a descriptor for value kind %v", v.Kind)
	}
}

func (d *compactDecoder) readBackrefTag() (distance uint64, tagPos int, err error) {
	tagPos = d.pos
	distance, n, err := getUvarint(d.buf, d.pos)
	if err != nil {
		return 0, 0, err
	}
	d.pos += n
	return distance, tagPos, nil
}

func (d *compactDecoder) decode(t *types.Descriptor) (values.Value, error) {
	switch t.Kind {
	case types.KindNever, types.KindNull:
		return values.Null(), nil
	case types.KindBoolean:
		if d.pos >= len(d.buf) {
			return values.Value{}, errors.New("codec: truncated Boolean")
		}
		b := d.buf[d.pos] != 0
		d.pos++
		return values.Boolean(b), nil
	case types.KindInteger:
		u, n, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += n
		return values.Integer(zigzagDecode(u)), nil
	case types.KindDateTime:
		u, n, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += n
		return values.DateTime(zigzagDecode(u)), nil
	case types.KindFloat:
		f, err := getFloat64(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += 8
		return values.Float(f), nil
	case types.KindString:
		n, k, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k
		if d.pos+int(n) > len(d.buf) {
			return values.Value{}, errors.New("codec: truncated String")
		}
		s := string(d.buf[d.pos : d.pos+int(n)])
		d.pos += int(n)
		return values.String(s), nil
	case types.KindBlob:
		n, k, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k
		if d.pos+int(n) > len(d.buf) {
			return values.Value{}, errors.New("codec: truncated Blob")
		}
		b := make([]byte, n)
		copy(b, d.buf[d.pos:d.pos+int(n)])
		d.pos += int(n)
		return values.Blob(b), nil
	case types.KindArray, types.KindSet:
		dist, tagPos, err := d.readBackrefTag()
		if err != nil {
			return values.Value{}, err
		}
		if dist != 0 {
			target := tagPos - int(dist)
			v, ok := d.seen[target]
			if !ok {
				return values.Value{}, errors.New("codec: dangling Array/Set backreference")
			}
			return v, nil
		}
		n, k, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k
		items := make([]values.Value, n)
		for i := range items {
			it, err := d.decode(t.Elem)
			if err != nil {
				return values.Value{}, err
			}
			items[i] = it
		}
		var v values.Value
		if t.Kind == types.KindArray {
			v = values.NewArray(t.Elem, items)
		} else {
			v = values.NewSet(t.Elem, items)
		}
		d.seen[tagPos] = v
		return v, nil
	case types.KindDict:
		dist, tagPos, err := d.readBackrefTag()
		if err != nil {
			return values.Value{}, err
		}
		if dist != 0 {
			target := tagPos - int(dist)
			v, ok := d.seen[target]
			if !ok {
				return values.Value{}, errors.New("codec: dangling Dict backreference")
			}
			return v, nil
		}
		n, k, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k
		keys := make([]values.Value, n)
		vals := make([]values.Value, n)
		for i := range keys {
			kv, err := d.decode(t.Key)
			if err != nil {
				return values.Value{}, err
			}
			vv, err := d.decode(t.Value)
			if err != nil {
				return values.Value{}, err
			}
			keys[i], vals[i] = kv, vv
		}
		v := values.NewDict(t.Key, t.Value, keys, vals)
		d.seen[tagPos] = v
		return v, nil
	case types.KindStruct:
		fields := make([]values.Value, len(t.Fields))
		for i, f := range t.Fields {
			fv, err := d.decode(f.Type)
			if err != nil {
				return values.Value{}, err
			}
			fields[i] = fv
		}
		return values.NewStruct(t, fields), nil
	case types.KindVariant:
		idx, k, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k
		if int(idx) >= len(t.Cases) {
			return values.Value{}, errors.Errorf("codec: variant case index %d out of range", idx)
		}
		c := t.Cases[idx]
		payload, err := d.decode(c.Type)
		if err != nil {
			return values.Value{}, err
		}
		return values.NewVariant(t, c.Name, payload), nil
	case types.KindRef:
		dist, tagPos, err := d.readBackrefTag()
		if err != nil {
			return values.Value{}, err
		}
		if dist != 0 {
			target := tagPos - int(dist)
			v, ok := d.seen[target]
			if !ok {
				return values.Value{}, errors.New("codec: dangling Ref backreference")
			}
			return v, nil
		}
		inner, err := d.decode(t.Elem)
		if err != nil {
			return values.Value{}, err
		}
		v := values.NewRef(t.Elem, inner)
		d.seen[tagPos] = v
		return v, nil
	case types.KindVector:
		n, k, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k
		sz := int(n) * t.Scalar.ElementSize()
		if d.pos+sz > len(d.buf) {
			return values.Value{}, errors.New("codec: truncated Vector")
		}
		v := values.NewVector(t.Scalar, int(n))
		copy(v.Packed.Bytes, d.buf[d.pos:d.pos+sz])
		d.pos += sz
		return v, nil
	case types.KindMatrix:
		rows, k1, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k1
		cols, k2, err := getUvarint(d.buf, d.pos)
		if err != nil {
			return values.Value{}, err
		}
		d.pos += k2
		sz := int(rows) * int(cols) * t.Scalar.ElementSize()
		if d.pos+sz > len(d.buf) {
			return values.Value{}, errors.New("codec: truncated Matrix")
		}
		v := values.NewMatrix(t.Scalar, int(rows), int(cols))
		copy(v.Packed.Bytes, d.buf[d.pos:d.pos+sz])
		d.pos += sz
		return v, nil
	case types.KindRecursive:
		return d.decode(t.Inner)
	case types.KindFunction, types.KindAsyncFunction:
		return d.decodeFunction(t)
	default:
		return values.Value{}, errors.Errorf("codec: unsupported descriptor kind %v", t.Kind)
	}
}

func (d *compactDecoder) decodeFunction(t *types.Descriptor) (values.Value, error) {
	nodeValue, err := d.decode(metatype.IRNodeType)
	if err != nil {
		return values.Value{}, errors.Wrap(err, "codec: decoding closure IR")
	}
	wrapper, err := metatype.ValueToIRNode(nodeValue, compactLiteralCodec{})
	if err != nil {
		return values.Value{}, errors.Wrap(err, "codec: converting value to closure IR")
	}
	if wrapper.FuncBody == nil {
		return values.Value{}, errors.New("codec: decoded closure IR has no function body")
	}
	irNode := wrapper.FuncBody
	n, k, err := getUvarint(d.buf, d.pos)
	if err != nil {
		return values.Value{}, err
	}
	d.pos += k
	captures := make([]values.CaptureSpec, n)
	captureEnv := map[string]values.Value{}
	params := []string{}
	if wrapper.Params != nil {
		params = wrapper.Params
	}
	for i := 0; i < int(n); i++ {
		typeVal, err := d.decode(metatype.MetaType)
		if err != nil {
			return values.Value{}, err
		}
		capType, err := metatype.ValueToDescriptor(typeVal)
		if err != nil {
			return values.Value{}, err
		}
		val, err := d.decode(capType)
		if err != nil {
			return values.Value{}, err
		}
		name := ""
		if i < len(wrapper.Captures) {
			name = wrapper.Captures[i].Name
		}
		captures[i] = values.CaptureSpec{Name: name, Mutable: i < len(wrapper.Captures) && wrapper.Captures[i].Mutable}
		captureEnv[name] = val
	}
	reg := d.reg
	if reg == nil {
		reg = registry.Current()
	}
	c := &values.Closure{
		Body:       irNode,
		Captures:   captures,
		CaptureEnv: captureEnv,
		Params:     params,
	}
	if reg != nil {
		c.BuiltinRegistry = reg.Builtins
		c.PlatformRegistry = reg.Platforms
	}
	c.OriginalAsValue = nodeValue
	return values.NewFunction(c), nil
}

// Literal adapts the package-level Compact functions to the
// metatype.LiteralCodec interface, for callers outside this package (e.g.
// interp.buildClosure) that need to convert an *ir.Node to a value via
// metatype.IRNodeToValue without duplicating Compact's encode/decode.
var Literal metatype.LiteralCodec = compactLiteralCodec{}

// compactLiteralCodec adapts the package-level Compact functions to the
// metatype.LiteralCodec interface needed to embed a Value node's literal.
type compactLiteralCodec struct{}

func (compactLiteralCodec) EncodeCompact(v values.Value, t *types.Descriptor) ([]byte, error) {
	return EncodeCompact(v, t)
}

func (compactLiteralCodec) DecodeCompact(b []byte, t *types.Descriptor) (values.Value, error) {
	return DecodeCompact(b, t)
}
