package codec

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// LegacyMagic is the 8-byte magic prefix of the legacy Framed variant
//. Implementations must preserve this format byte
// for byte; it predates the current Framed/meta-type-bridge design.
var LegacyMagic = []byte{0x45, 0x61, 0x73, 0x74, 0x00, 0xEA, 0x57, 0xFF}

// Legacy one-byte descriptor-schema tags. The twelve live tags line up
// exactly, in order, with the twelve descriptor kinds the legacy format
// supports (it predates Ref/Vector/Matrix/Function/Recursive, and Never
// never appears as a standalone wire type), which is how this mapping
// was reconstructed — see DESIGN.md.
const (
	legacyTagNull    = 0
	legacyTagBoolean = 1
	legacyTagInteger = 2
	legacyTagFloat   = 3
	legacyTagString  = 4
	legacyTagDate    = 5
	legacyTagBlob    = 6
	// 7 reserved
	legacyTagArray   = 8
	legacyTagSet     = 9
	legacyTagDict    = 10
	legacyTagStruct  = 11
	// 12 reserved
	legacyTagVariant = 13
)

// EncodeLegacyFramed writes LegacyMagic, a one-byte-tag descriptor schema,
// then the value twiddled-encoded per the schema. t must
// be built only from Null/Boolean/Integer/Float/String/DateTime/Blob/
// Array/Set/Dict/Struct/Variant — Ref, Vector, Matrix, Function,
// AsyncFunction and Recursive are out of scope for this format.
func EncodeLegacyFramed(v values.Value, t *types.Descriptor) ([]byte, error) {
	out := append([]byte{}, LegacyMagic...)
	out, err := encodeLegacyDescriptor(out, t)
	if err != nil {
		return nil, err
	}
	out, err = encodeLegacyValue(out, v, t)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeLegacyFramed verifies the magic, decodes the embedded one-byte-tag
// descriptor, and decodes the value using it.
func DecodeLegacyFramed(b []byte) (values.Value, *types.Descriptor, error) {
	if len(b) < len(LegacyMagic) || string(b[:len(LegacyMagic)]) != string(LegacyMagic) {
		return values.Value{}, nil, errors.New("codec: bad legacy Framed magic")
	}
	pos := len(LegacyMagic)
	t, pos, err := decodeLegacyDescriptor(b, pos)
	if err != nil {
		return values.Value{}, nil, err
	}
	v, pos, err := decodeLegacyValue(b, pos, t)
	if err != nil {
		return values.Value{}, nil, err
	}
	if pos != len(b) {
		return values.Value{}, nil, errors.Errorf("codec: %d trailing byte(s) after legacy Framed value", len(b)-pos)
	}
	return v, t, nil
}

func legacyTagOf(k types.Kind) (byte, error) {
	switch k {
	case types.KindNull:
		return legacyTagNull, nil
	case types.KindBoolean:
		return legacyTagBoolean, nil
	case types.KindInteger:
		return legacyTagInteger, nil
	case types.KindFloat:
		return legacyTagFloat, nil
	case types.KindString:
		return legacyTagString, nil
	case types.KindDateTime:
		return legacyTagDate, nil
	case types.KindBlob:
		return legacyTagBlob, nil
	case types.KindArray:
		return legacyTagArray, nil
	case types.KindSet:
		return legacyTagSet, nil
	case types.KindDict:
		return legacyTagDict, nil
	case types.KindStruct:
		return legacyTagStruct, nil
	case types.KindVariant:
		return legacyTagVariant, nil
	default:
		return 0, errors.Errorf("codec: descriptor kind %v is not supported by legacy Framed", k)
	}
}

func putLegacyName(buf []byte, s string) []byte {
	buf = putUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func getLegacyName(b []byte, pos int) (string, int, error) {
	n, k, err := getUvarint(b, pos)
	if err != nil {
		return "", 0, err
	}
	pos += k
	if pos+int(n) > len(b) {
		return "", 0, errors.New("codec: truncated legacy name")
	}
	return string(b[pos : pos+int(n)]), pos + int(n), nil
}

func encodeLegacyDescriptor(buf []byte, t *types.Descriptor) ([]byte, error) {
	tag, err := legacyTagOf(t.Kind)
	if err != nil {
		return nil, err
	}
	buf = append(buf, tag)
	switch t.Kind {
	case types.KindArray, types.KindSet:
		return encodeLegacyDescriptor(buf, t.Elem)
	case types.KindDict:
		buf, err = encodeLegacyDescriptor(buf, t.Key)
		if err != nil {
			return nil, err
		}
		return encodeLegacyDescriptor(buf, t.Value)
	case types.KindStruct:
		buf = putUvarint(buf, uint64(len(t.Fields)))
		for _, f := range t.Fields {
			buf = putLegacyName(buf, f.Name)
			buf, err = encodeLegacyDescriptor(buf, f.Type)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case types.KindVariant:
		buf = putUvarint(buf, uint64(len(t.Cases)))
		for _, c := range t.Cases {
			buf = putLegacyName(buf, c.Name)
			buf, err = encodeLegacyDescriptor(buf, c.Type)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return buf, nil
	}
}

func decodeLegacyDescriptor(b []byte, pos int) (*types.Descriptor, int, error) {
	if pos >= len(b) {
		return nil, 0, errors.New("codec: truncated legacy descriptor")
	}
	tag := b[pos]
	pos++
	switch tag {
	case legacyTagNull:
		return types.Null, pos, nil
	case legacyTagBoolean:
		return types.Boolean, pos, nil
	case legacyTagInteger:
		return types.Integer, pos, nil
	case legacyTagFloat:
		return types.Float, pos, nil
	case legacyTagString:
		return types.String, pos, nil
	case legacyTagDate:
		return types.DateTime, pos, nil
	case legacyTagBlob:
		return types.Blob, pos, nil
	case legacyTagArray:
		elem, p, err := decodeLegacyDescriptor(b, pos)
		if err != nil {
			return nil, 0, err
		}
		return types.NewArray(elem), p, nil
	case legacyTagSet:
		elem, p, err := decodeLegacyDescriptor(b, pos)
		if err != nil {
			return nil, 0, err
		}
		return types.NewSet(elem), p, nil
	case legacyTagDict:
		key, p, err := decodeLegacyDescriptor(b, pos)
		if err != nil {
			return nil, 0, err
		}
		val, p2, err := decodeLegacyDescriptor(b, p)
		if err != nil {
			return nil, 0, err
		}
		return types.NewDict(key, val), p2, nil
	case legacyTagStruct:
		n, k, err := getUvarint(b, pos)
		if err != nil {
			return nil, 0, err
		}
		pos += k
		fields := make([]types.StructField, n)
		for i := range fields {
			name, p, err := getLegacyName(b, pos)
			if err != nil {
				return nil, 0, err
			}
			ft, p2, err := decodeLegacyDescriptor(b, p)
			if err != nil {
				return nil, 0, err
			}
			fields[i] = types.StructField{Name: name, Type: ft}
			pos = p2
		}
		return types.NewStruct(fields), pos, nil
	case legacyTagVariant:
		n, k, err := getUvarint(b, pos)
		if err != nil {
			return nil, 0, err
		}
		pos += k
		cases := make([]types.VariantCase, n)
		for i := range cases {
			name, p, err := getLegacyName(b, pos)
			if err != nil {
				return nil, 0, err
			}
			ct, p2, err := decodeLegacyDescriptor(b, p)
			if err != nil {
				return nil, 0, err
			}
			cases[i] = types.VariantCase{Name: name, Type: ct}
			pos = p2
		}
		return types.NewVariant(cases), pos, nil
	default:
		return nil, 0, errors.Errorf("codec: unknown or reserved legacy descriptor tag %d", tag)
	}
}

func twiddleIntEncode(n int64) uint64 { return uint64(n) ^ (uint64(1) << 63) }
func twiddleIntDecode(u uint64) int64 { return int64(u ^ (uint64(1) << 63)) }

func twiddleFloatEncode(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(uint64(1)<<63) != 0 {
		return ^bits
	}
	return bits ^ (uint64(1) << 63)
}

func twiddleFloatDecode(u uint64) float64 {
	if u&(uint64(1)<<63) != 0 {
		return math.Float64frombits(u ^ (uint64(1) << 63))
	}
	return math.Float64frombits(^u)
}

func encodeLegacyValue(buf []byte, v values.Value, t *types.Descriptor) ([]byte, error) {
	switch t.Kind {
	case types.KindNull:
		return buf, nil
	case types.KindBoolean:
		if v.Bool {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case types.KindInteger:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], twiddleIntEncode(v.Int))
		return append(buf, tmp[:]...), nil
	case types.KindDateTime:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], twiddleIntEncode(v.Millis))
		return append(buf, tmp[:]...), nil
	case types.KindFloat:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], twiddleFloatEncode(v.Float64))
		return append(buf, tmp[:]...), nil
	case types.KindString:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(len(v.Str)))
		buf = append(buf, tmp[:]...)
		return append(buf, v.Str...), nil
	case types.KindBlob:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(len(v.Blob)))
		buf = append(buf, tmp[:]...)
		return append(buf, v.Blob...), nil
	case types.KindArray, types.KindSet:
		var err error
		for i := 0; i < v.Len(); i++ {
			buf = append(buf, 0x01)
			buf, err = encodeLegacyValue(buf, v.At(i), t.Elem)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, 0x00), nil
	case types.KindDict:
		var err error
		n := values.DictLen(v)
		for i := 0; i < n; i++ {
			buf = append(buf, 0x01)
			buf, err = encodeLegacyValue(buf, v.Dict.Keys[i], t.Key)
			if err != nil {
				return nil, err
			}
			buf, err = encodeLegacyValue(buf, v.Dict.Vals[i], t.Value)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, 0x00), nil
	case types.KindStruct:
		var err error
		for i, f := range t.Fields {
			buf, err = encodeLegacyValue(buf, v.Struct.Fields[i], f.Type)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case types.KindVariant:
		buf = putUvarint(buf, uint64(v.Variant.CaseIdx))
		return encodeLegacyValue(buf, v.Variant.Payload, t.Cases[v.Variant.CaseIdx].Type)
	default:
		return nil, errors.Errorf("codec: descriptor kind %v is not supported by legacy Framed", t.Kind)
	}
}

func decodeLegacyValue(b []byte, pos int, t *types.Descriptor) (values.Value, int, error) {
	switch t.Kind {
	case types.KindNull:
		return values.Null(), pos, nil
	case types.KindBoolean:
		if pos >= len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy Boolean")
		}
		return values.Boolean(b[pos] != 0), pos + 1, nil
	case types.KindInteger:
		if pos+8 > len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy Integer")
		}
		return values.Integer(twiddleIntDecode(binary.BigEndian.Uint64(b[pos : pos+8]))), pos + 8, nil
	case types.KindDateTime:
		if pos+8 > len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy DateTime")
		}
		return values.DateTime(twiddleIntDecode(binary.BigEndian.Uint64(b[pos : pos+8]))), pos + 8, nil
	case types.KindFloat:
		if pos+8 > len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy Float")
		}
		return values.Float(twiddleFloatDecode(binary.BigEndian.Uint64(b[pos : pos+8]))), pos + 8, nil
	case types.KindString:
		if pos+8 > len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy String length")
		}
		n := binary.BigEndian.Uint64(b[pos : pos+8])
		pos += 8
		if pos+int(n) > len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy String")
		}
		return values.String(string(b[pos : pos+int(n)])), pos + int(n), nil
	case types.KindBlob:
		if pos+8 > len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy Blob length")
		}
		n := binary.BigEndian.Uint64(b[pos : pos+8])
		pos += 8
		if pos+int(n) > len(b) {
			return values.Value{}, 0, errors.New("codec: truncated legacy Blob")
		}
		raw := make([]byte, n)
		copy(raw, b[pos:pos+int(n)])
		return values.Blob(raw), pos + int(n), nil
	case types.KindArray, types.KindSet:
		var items []values.Value
		for {
			if pos >= len(b) {
				return values.Value{}, 0, errors.New("codec: truncated legacy container")
			}
			marker := b[pos]
			pos++
			if marker == 0x00 {
				break
			}
			if marker != 0x01 {
				return values.Value{}, 0, errors.Errorf("codec: bad legacy continuation marker %d", marker)
			}
			it, p, err := decodeLegacyValue(b, pos, t.Elem)
			if err != nil {
				return values.Value{}, 0, err
			}
			items = append(items, it)
			pos = p
		}
		if t.Kind == types.KindArray {
			return values.NewArray(t.Elem, items), pos, nil
		}
		return values.NewSet(t.Elem, items), pos, nil
	case types.KindDict:
		var keys, vals []values.Value
		for {
			if pos >= len(b) {
				return values.Value{}, 0, errors.New("codec: truncated legacy Dict")
			}
			marker := b[pos]
			pos++
			if marker == 0x00 {
				break
			}
			if marker != 0x01 {
				return values.Value{}, 0, errors.Errorf("codec: bad legacy continuation marker %d", marker)
			}
			k, p, err := decodeLegacyValue(b, pos, t.Key)
			if err != nil {
				return values.Value{}, 0, err
			}
			val, p2, err := decodeLegacyValue(b, p, t.Value)
			if err != nil {
				return values.Value{}, 0, err
			}
			keys, vals = append(keys, k), append(vals, val)
			pos = p2
		}
		return values.NewDict(t.Key, t.Value, keys, vals), pos, nil
	case types.KindStruct:
		fields := make([]values.Value, len(t.Fields))
		for i, f := range t.Fields {
			fv, p, err := decodeLegacyValue(b, pos, f.Type)
			if err != nil {
				return values.Value{}, 0, err
			}
			fields[i] = fv
			pos = p
		}
		return values.NewStruct(t, fields), pos, nil
	case types.KindVariant:
		idx, k, err := getUvarint(b, pos)
		if err != nil {
			return values.Value{}, 0, err
		}
		pos += k
		if int(idx) >= len(t.Cases) {
			return values.Value{}, 0, errors.Errorf("codec: legacy variant case index %d out of range", idx)
		}
		c := t.Cases[idx]
		payload, p, err := decodeLegacyValue(b, pos, c.Type)
		if err != nil {
			return values.Value{}, 0, err
		}
		return values.NewVariant(t, c.Name, payload), p, nil
	default:
		return values.Value{}, 0, errors.Errorf("codec: descriptor kind %v is not supported by legacy Framed", t.Kind)
	}
}
