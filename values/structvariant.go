package values

import "github.com/elaraai/east/types"

// NewStruct builds a Struct value. fields must be given in the same order
// as structType.Fields.
func NewStruct(structType *types.Descriptor, fields []Value) Value {
	return Value{Kind: KindStruct, Struct: &StructData{Type: structType, Fields: fields, refcount: 1}}
}

// GetField looks up a struct field by name, per the declared field order
// in structType.
func GetField(v Value, name string) (Value, bool) {
	for i, f := range v.Struct.Type.Fields {
		if f.Name == name {
			return v.Struct.Fields[i], true
		}
	}
	return Value{}, false
}

// WithField returns a new Struct value with the named field replaced.
func WithField(v Value, name string, newVal Value) Value {
	fields := make([]Value, len(v.Struct.Fields))
	copy(fields, v.Struct.Fields)
	for i, f := range v.Struct.Type.Fields {
		if f.Name == name {
			fields[i] = newVal
			break
		}
	}
	return Value{Kind: KindStruct, Struct: &StructData{Type: v.Struct.Type, Fields: fields, refcount: 1}}
}

// NewVariant builds a Variant value for the named case. variantType
// supplies the case's declared index.
func NewVariant(variantType *types.Descriptor, caseName string, payload Value) Value {
	idx := -1
	for i, c := range variantType.Cases {
		if c.Name == caseName {
			idx = i
			break
		}
	}
	return Value{Kind: KindVariant, Variant: &VariantData{
		Type: variantType, Case: caseName, CaseIdx: idx, Payload: payload, refcount: 1,
	}}
}
