package types

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// String prints the descriptor's canonical textual form. Struct/Variant field and case order follows
// the descriptor's declared order, since that order is significant.
func (d *Descriptor) String() string {
	return d.print(map[*Descriptor]string{}, "")
}

func (d *Descriptor) print(named map[*Descriptor]string, path string) string {
	if d == nil {
		return "Never"
	}
	if name, ok := named[d]; ok {
		return "@" + name
	}
	switch d.Kind {
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
		return fmt.Sprintf("Array<%s>", d.Elem.print(named, path))
	case KindSet:
		return fmt.Sprintf("Set<%s>", d.Elem.print(named, path))
	case KindDict:
		return fmt.Sprintf("Dict<%s, %s>", d.Key.print(named, path), d.Value.print(named, path))
	case KindStruct:
		parts := make([]string, len(d.Fields))
		for i, f := range d.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type.print(named, path))
		}
		return fmt.Sprintf("Struct[%s]", strings.Join(parts, ", "))
	case KindVariant:
		parts := make([]string, len(d.Cases))
		for i, c := range d.Cases {
			parts[i] = fmt.Sprintf("%s: %s", c.Name, c.Type.print(named, path))
		}
		return fmt.Sprintf("Variant[%s]", strings.Join(parts, ", "))
	case KindRef:
		return fmt.Sprintf("Ref<%s>", d.Elem.print(named, path))
	case KindVector:
		return fmt.Sprintf("Vector<%s>", d.Elem.print(named, path))
	case KindMatrix:
		return fmt.Sprintf("Matrix<%s>", d.Elem.print(named, path))
	case KindFunction, KindAsyncFunction:
		parts := make([]string, len(d.Inputs))
		for i, in := range d.Inputs {
			parts[i] = in.print(named, path)
		}
		prefix := "Function"
		if d.Kind == KindAsyncFunction {
			prefix = "AsyncFunction"
		}
		return fmt.Sprintf("%s(%s) -> %s", prefix, strings.Join(parts, ", "), d.Output.print(named, path))
	case KindRecursive:
		name := fmt.Sprintf("rec%d", len(named))
		named2 := make(map[*Descriptor]string, len(named)+1)
		for k, v := range named {
			named2[k] = v
		}
		named2[d] = name
		return fmt.Sprintf("Recursive<%s, %s>", name, d.Inner.print(named2, path))
	default:
		return "?"
	}
}

// ErrParse is the sentinel wrapped by every textual-descriptor parse
// failure.
var ErrParse = errors.New("types: parse error")

// Parse parses a descriptor from its textual form produced by String.
// This is a small hand-rolled recursive-descent parser over the grammar
// emitted by print above; it is not meant to be a general type-expression
// language, only a faithful inverse of String.
func Parse(s string) (*Descriptor, error) {
	p := &typeParser{s: s, names: map[string]*Descriptor{}}
	d, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, errors.Wrapf(ErrParse, "trailing input at offset %d", p.pos)
	}
	return d, nil
}

type typeParser struct {
	s     string
	pos   int
	names map[string]*Descriptor
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n') {
		p.pos++
	}
}

func (p *typeParser) expect(tok string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.s[p.pos:], tok) {
		return errors.Wrapf(ErrParse, "expected %q at offset %d", tok, p.pos)
	}
	p.pos += len(tok)
	return nil
}

func (p *typeParser) peekIdent() string {
	p.skipSpace()
	start := p.pos
	i := p.pos
	for i < len(p.s) && (isIdentRune(p.s[i])) {
		i++
	}
	return p.s[start:i]
}

func isIdentRune(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *typeParser) consumeIdent() string {
	id := p.peekIdent()
	p.pos += len(id)
	return id
}

func (p *typeParser) parseType() (*Descriptor, error) {
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '@' {
		p.pos++
		name := p.consumeIdent()
		d, ok := p.names[name]
		if !ok {
			return nil, errors.Wrapf(ErrParse, "unknown recursive reference @%s", name)
		}
		return d, nil
	}
	id := p.consumeIdent()
	switch id {
	case "Never":
		return Never, nil
	case "Null":
		return Null, nil
	case "Boolean":
		return Boolean, nil
	case "Integer":
		return Integer, nil
	case "Float":
		return Float, nil
	case "String":
		return String, nil
	case "DateTime":
		return DateTime, nil
	case "Blob":
		return Blob, nil
	case "Array":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return NewArray(elem), nil
	case "Set":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return NewSet(elem), nil
	case "Ref":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return NewRef(elem), nil
	case "Vector", "Matrix":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		scalar, err := scalarOf(elem)
		if err != nil {
			return nil, err
		}
		if id == "Vector" {
			return NewVector(scalar), nil
		}
		return NewMatrix(scalar), nil
	case "Dict":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		key, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
		val, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return NewDict(key, val), nil
	case "Struct":
		fields, err := p.parseNamedList("[", "]")
		if err != nil {
			return nil, err
		}
		out := make([]StructField, len(fields))
		for i, f := range fields {
			out[i] = StructField{Name: f.name, Type: f.typ}
		}
		return NewStruct(out), nil
	case "Variant":
		cases, err := p.parseNamedList("[", "]")
		if err != nil {
			return nil, err
		}
		out := make([]VariantCase, len(cases))
		for i, c := range cases {
			out[i] = VariantCase{Name: c.name, Type: c.typ}
		}
		return NewVariant(out), nil
	case "Function", "AsyncFunction":
		if err := p.expect("("); err != nil {
			return nil, err
		}
		var inputs []*Descriptor
		p.skipSpace()
		for p.pos < len(p.s) && p.s[p.pos] != ')' {
			in, err := p.parseType()
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
			p.skipSpace()
			if p.pos < len(p.s) && p.s[p.pos] == ',' {
				p.pos++
			}
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		if err := p.expect("->"); err != nil {
			return nil, err
		}
		out, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if id == "Function" {
			return NewFunction(inputs, out), nil
		}
		return NewAsyncFunction(inputs, out), nil
	case "Recursive":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		name := p.consumeIdent()
		if err := p.expect(","); err != nil {
			return nil, err
		}
		placeholder := NewRecursivePlaceholder()
		p.names[name] = placeholder
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return CloseRecursive(placeholder, inner), nil
	default:
		return nil, errors.Wrapf(ErrParse, "unknown type keyword %q", id)
	}
}

func scalarOf(d *Descriptor) (ScalarKind, error) {
	switch d.Kind {
	case KindFloat:
		return ScalarFloat, nil
	case KindInteger:
		return ScalarInteger, nil
	case KindBoolean:
		return ScalarBoolean, nil
	default:
		return 0, errors.Wrapf(ErrParse, "Vector/Matrix element must be Float, Integer or Boolean, got %s", d.Kind)
	}
}

type namedType struct {
	name string
	typ  *Descriptor
}

func (p *typeParser) parseNamedList(open, close string) ([]namedType, error) {
	if err := p.expect(open); err != nil {
		return nil, err
	}
	var out []namedType
	p.skipSpace()
	for p.pos < len(p.s) && !strings.HasPrefix(p.s[p.pos:], close) {
		name := p.consumeIdent()
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, namedType{name: name, typ: typ})
		p.skipSpace()
		if p.pos < len(p.s) && p.s[p.pos] == ',' {
			p.pos++
			p.skipSpace()
		}
	}
	if err := p.expect(close); err != nil {
		return nil, err
	}
	return out, nil
}
