package codec

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/elaraai/east/metatype"
	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// FramedMagic is the 8-byte magic prefix of the self-describing Framed
// binary format.
var FramedMagic = []byte{0x89, 0x45, 0x61, 0x73, 0x74, 0x0D, 0x0A, 0x01}

// EncodeFramed writes FramedMagic, then t itself Compact-encoded via the
// meta-type bridge, then v Compact-encoded via t. The descriptor and value
// each get their own backreference namespace.
func EncodeFramed(v values.Value, t *types.Descriptor) ([]byte, error) {
	out := append([]byte{}, FramedMagic...)
	descBytes, err := EncodeCompact(metatype.DescriptorToValue(t), metatype.MetaType)
	if err != nil {
		return nil, errors.Wrap(err, "codec: encoding Framed descriptor")
	}
	out = append(out, descBytes...)
	valBytes, err := EncodeCompact(v, t)
	if err != nil {
		return nil, errors.Wrap(err, "codec: encoding Framed value")
	}
	out = append(out, valBytes...)
	return out, nil
}

// DecodeFramed verifies the magic, decodes the embedded descriptor, and
// decodes the value using it. If want is non-nil, decoding uses want
// instead of the embedded descriptor — the
// embedded bytes are still read, to find where the value begins.
func DecodeFramed(b []byte, want *types.Descriptor) (values.Value, *types.Descriptor, error) {
	if len(b) < len(FramedMagic) || !bytes.Equal(b[:len(FramedMagic)], FramedMagic) {
		return values.Value{}, nil, errors.New("codec: bad Framed magic")
	}
	descDec := &compactDecoder{buf: b, pos: len(FramedMagic), seen: map[int]values.Value{}}
	descVal, err := descDec.decode(metatype.MetaType)
	if err != nil {
		return values.Value{}, nil, errors.Wrap(err, "codec: decoding Framed descriptor")
	}
	decoded, err := metatype.ValueToDescriptor(descVal)
	if err != nil {
		return values.Value{}, nil, errors.Wrap(err, "codec: converting Framed descriptor")
	}
	t := decoded
	if want != nil {
		t = want
	}
	v, err := DecodeCompact(b[descDec.pos:], t)
	if err != nil {
		return values.Value{}, nil, errors.Wrap(err, "codec: decoding Framed value")
	}
	return v, decoded, nil
}
