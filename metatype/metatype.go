// Package metatype implements the meta-type bridge (spec component H): the
// language is homoiconic, so every type descriptor is itself expressible
// as a runtime value of a canonical recursive variant, and every IR node
// as a value of a canonical recursive struct (see ir.go). This is what lets a Function value carry its own
// IR as data and round-trip through any codec (types.Descriptor has no
// Compact/Framed/Textual/JSON encoding of its own — only values do).
//
// Grounded the same way as types.Descriptor/values.Value/ir.Node: one
// recursive Variant descriptor built once with the two-step
// NewRecursivePlaceholder/CloseRecursive dance from package types.
package metatype

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// ScalarKindType is the MetaType payload for Vector/Matrix's restricted
// element kind.
var ScalarKindType = types.NewVariant([]types.VariantCase{
	{Name: "Float", Type: types.Null},
	{Name: "Integer", Type: types.Null},
	{Name: "Boolean", Type: types.Null},
})

// MetaType is the canonical recursive-variant descriptor with one case per
// types.Kind. It is set during package variable initialization, before
// any init function, so descriptors built from it elsewhere in this
// package (IRNodeType's type fields) see the finished descriptor.
var MetaType = newMetaType()

// structFieldType, dictPayloadType, funcPayloadType are the payload shapes
// shared by the Struct/Variant, Dict, and Function/AsyncFunction cases.
var (
	structFieldType *types.Descriptor
	dictPayloadType *types.Descriptor
	funcPayloadType *types.Descriptor
)

func newMetaType() *types.Descriptor {
	placeholder := types.NewRecursivePlaceholder()

	structFieldType = types.NewStruct([]types.StructField{
		{Name: "name", Type: types.String},
		{Name: "type", Type: placeholder},
	})
	dictPayloadType = types.NewStruct([]types.StructField{
		{Name: "key", Type: placeholder},
		{Name: "value", Type: placeholder},
	})
	funcPayloadType = types.NewStruct([]types.StructField{
		{Name: "inputs", Type: types.NewArray(placeholder)},
		{Name: "output", Type: placeholder},
	})

	inner := types.NewVariant([]types.VariantCase{
		{Name: "Never", Type: types.Null},
		{Name: "Null", Type: types.Null},
		{Name: "Boolean", Type: types.Null},
		{Name: "Integer", Type: types.Null},
		{Name: "Float", Type: types.Null},
		{Name: "String", Type: types.Null},
		{Name: "DateTime", Type: types.Null},
		{Name: "Blob", Type: types.Null},
		{Name: "Array", Type: placeholder},
		{Name: "Set", Type: placeholder},
		{Name: "Dict", Type: dictPayloadType},
		{Name: "Struct", Type: types.NewArray(structFieldType)},
		{Name: "Variant", Type: types.NewArray(structFieldType)},
		{Name: "Ref", Type: placeholder},
		{Name: "Vector", Type: ScalarKindType},
		{Name: "Matrix", Type: ScalarKindType},
		{Name: "Function", Type: funcPayloadType},
		{Name: "AsyncFunction", Type: funcPayloadType},
		{Name: "Recursive", Type: placeholder},
	})
	return types.CloseRecursive(placeholder, inner)
}

func scalarKindValue(s types.ScalarKind) values.Value {
	switch s {
	case types.ScalarFloat:
		return values.NewVariant(ScalarKindType, "Float", values.Null())
	case types.ScalarInteger:
		return values.NewVariant(ScalarKindType, "Integer", values.Null())
	default:
		return values.NewVariant(ScalarKindType, "Boolean", values.Null())
	}
}

func scalarKindFromValue(v values.Value) (types.ScalarKind, error) {
	if v.Kind != values.KindVariant {
		return 0, errors.New("metatype: scalar kind value must be a Variant")
	}
	switch v.Variant.Case {
	case "Float":
		return types.ScalarFloat, nil
	case "Integer":
		return types.ScalarInteger, nil
	case "Boolean":
		return types.ScalarBoolean, nil
	default:
		return 0, errors.Errorf("metatype: unknown scalar kind %q", v.Variant.Case)
	}
}

// DescriptorToValue converts a type descriptor to its canonical MetaType
// value. A single-wrapper Recursive descriptor (the
// common case: a self-referential Struct/Variant such as a tree or list
// node) round-trips exactly; a descriptor containing two or more distinct,
// mutually referencing Recursive wrappers collapses the second and later
// encounters of an already-open wrapper to a bare `Recursive` marker with a
// Null payload (see ValueToDescriptor and DESIGN.md) since EAST values have
// no general cyclic-graph representation outside of Ref.
func DescriptorToValue(d *types.Descriptor) values.Value {
	return descriptorToValue(d, map[*types.Descriptor]bool{})
}

func descriptorToValue(d *types.Descriptor, open map[*types.Descriptor]bool) values.Value {
	switch d.Kind {
	case types.KindNever:
		return values.NewVariant(MetaType, "Never", values.Null())
	case types.KindNull:
		return values.NewVariant(MetaType, "Null", values.Null())
	case types.KindBoolean:
		return values.NewVariant(MetaType, "Boolean", values.Null())
	case types.KindInteger:
		return values.NewVariant(MetaType, "Integer", values.Null())
	case types.KindFloat:
		return values.NewVariant(MetaType, "Float", values.Null())
	case types.KindString:
		return values.NewVariant(MetaType, "String", values.Null())
	case types.KindDateTime:
		return values.NewVariant(MetaType, "DateTime", values.Null())
	case types.KindBlob:
		return values.NewVariant(MetaType, "Blob", values.Null())
	case types.KindArray:
		return values.NewVariant(MetaType, "Array", descriptorToValue(d.Elem, open))
	case types.KindSet:
		return values.NewVariant(MetaType, "Set", descriptorToValue(d.Elem, open))
	case types.KindDict:
		payload := values.NewStruct(dictPayloadType, []values.Value{
			descriptorToValue(d.Key, open), descriptorToValue(d.Value, open),
		})
		return values.NewVariant(MetaType, "Dict", payload)
	case types.KindStruct:
		items := make([]values.Value, len(d.Fields))
		for i, f := range d.Fields {
			items[i] = values.NewStruct(structFieldType, []values.Value{values.String(f.Name), descriptorToValue(f.Type, open)})
		}
		return values.NewVariant(MetaType, "Struct", values.NewArray(structFieldType, items))
	case types.KindVariant:
		items := make([]values.Value, len(d.Cases))
		for i, c := range d.Cases {
			items[i] = values.NewStruct(structFieldType, []values.Value{values.String(c.Name), descriptorToValue(c.Type, open)})
		}
		return values.NewVariant(MetaType, "Variant", values.NewArray(structFieldType, items))
	case types.KindRef:
		return values.NewVariant(MetaType, "Ref", descriptorToValue(d.Elem, open))
	case types.KindVector:
		return values.NewVariant(MetaType, "Vector", scalarKindValue(d.Scalar))
	case types.KindMatrix:
		return values.NewVariant(MetaType, "Matrix", scalarKindValue(d.Scalar))
	case types.KindFunction, types.KindAsyncFunction:
		inputs := make([]values.Value, len(d.Inputs))
		for i, in := range d.Inputs {
			inputs[i] = descriptorToValue(in, open)
		}
		payload := values.NewStruct(funcPayloadType, []values.Value{
			values.NewArray(MetaType, inputs), descriptorToValue(d.Output, open),
		})
		name := "Function"
		if d.Kind == types.KindAsyncFunction {
			name = "AsyncFunction"
		}
		return values.NewVariant(MetaType, name, payload)
	case types.KindRecursive:
		if open[d] {
			return values.NewVariant(MetaType, "Recursive", values.Null())
		}
		open[d] = true
		v := descriptorToValue(d.Inner, open)
		delete(open, d)
		return values.NewVariant(MetaType, "Recursive", v)
	default:
		return values.NewVariant(MetaType, "Never", values.Null())
	}
}

// ValueToDescriptor converts a MetaType value back to a type descriptor,
// the inverse of DescriptorToValue.
func ValueToDescriptor(v values.Value) (*types.Descriptor, error) {
	return valueToDescriptor(v, nil)
}

// openRecursive is the placeholder for the nearest enclosing Recursive
// wrapper under construction, used to resolve bare `Recursive(Null)`
// markers written by descriptorToValue's cycle guard.
func valueToDescriptor(v values.Value, openRecursive *types.Descriptor) (*types.Descriptor, error) {
	if v.Kind != values.KindVariant {
		return nil, errors.New("metatype: MetaType value must be a Variant")
	}
	payload := v.Variant.Payload
	switch v.Variant.Case {
	case "Never":
		return types.Never, nil
	case "Null":
		return types.Null, nil
	case "Boolean":
		return types.Boolean, nil
	case "Integer":
		return types.Integer, nil
	case "Float":
		return types.Float, nil
	case "String":
		return types.String, nil
	case "DateTime":
		return types.DateTime, nil
	case "Blob":
		return types.Blob, nil
	case "Array":
		elem, err := valueToDescriptor(payload, openRecursive)
		if err != nil {
			return nil, err
		}
		return types.NewArray(elem), nil
	case "Set":
		elem, err := valueToDescriptor(payload, openRecursive)
		if err != nil {
			return nil, err
		}
		return types.NewSet(elem), nil
	case "Dict":
		keyV, _ := values.GetField(payload, "key")
		valV, _ := values.GetField(payload, "value")
		key, err := valueToDescriptor(keyV, openRecursive)
		if err != nil {
			return nil, err
		}
		val, err := valueToDescriptor(valV, openRecursive)
		if err != nil {
			return nil, err
		}
		return types.NewDict(key, val), nil
	case "Struct", "Variant":
		arr := payload
		items := make([]types.StructField, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			item := arr.At(i)
			nameV, _ := values.GetField(item, "name")
			typeV, _ := values.GetField(item, "type")
			t, err := valueToDescriptor(typeV, openRecursive)
			if err != nil {
				return nil, err
			}
			items[i] = types.StructField{Name: nameV.Str, Type: t}
		}
		if v.Variant.Case == "Struct" {
			return types.NewStruct(items), nil
		}
		cases := make([]types.VariantCase, len(items))
		for i, it := range items {
			cases[i] = types.VariantCase{Name: it.Name, Type: it.Type}
		}
		return types.NewVariant(cases), nil
	case "Ref":
		elem, err := valueToDescriptor(payload, openRecursive)
		if err != nil {
			return nil, err
		}
		return types.NewRef(elem), nil
	case "Vector":
		s, err := scalarKindFromValue(payload)
		if err != nil {
			return nil, err
		}
		return types.NewVector(s), nil
	case "Matrix":
		s, err := scalarKindFromValue(payload)
		if err != nil {
			return nil, err
		}
		return types.NewMatrix(s), nil
	case "Function", "AsyncFunction":
		inputsV, _ := values.GetField(payload, "inputs")
		outputV, _ := values.GetField(payload, "output")
		inputs := make([]*types.Descriptor, inputsV.Len())
		for i := 0; i < inputsV.Len(); i++ {
			in, err := valueToDescriptor(inputsV.At(i), openRecursive)
			if err != nil {
				return nil, err
			}
			inputs[i] = in
		}
		output, err := valueToDescriptor(outputV, openRecursive)
		if err != nil {
			return nil, err
		}
		if v.Variant.Case == "Function" {
			return types.NewFunction(inputs, output), nil
		}
		return types.NewAsyncFunction(inputs, output), nil
	case "Recursive":
		if payload.Kind == values.KindNull {
			if openRecursive == nil {
				return nil, errors.New("metatype: bare Recursive marker outside any enclosing Recursive wrapper")
			}
			return openRecursive, nil
		}
		placeholder := types.NewRecursivePlaceholder()
		inner, err := valueToDescriptor(payload, placeholder)
		if err != nil {
			return nil, err
		}
		return types.CloseRecursive(placeholder, inner), nil
	default:
		return nil, fmt.Errorf("metatype: unknown MetaType case %q", v.Variant.Case)
	}
}
