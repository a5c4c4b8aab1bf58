// Package codec implements the four type-driven codecs (spec component
// G): a headerless Compact binary codec, a self-describing Framed binary
// codec (plus a byte-exact legacy Framed variant), a human-readable
// Textual format, and a JSON-compatible format. All four share one
// type-directed traversal shape: recurse on descriptor structure,
// producing or consuming output per kind.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// putUvarint appends n as unsigned LEB128 (7 data bits + continuation bit,
// little-endian, max 10 bytes for 64 bits).
func putUvarint(buf []byte, n uint64) []byte {
	for n >= 0x80 {
		buf = append(buf, byte(n)|0x80)
		n >>= 7
	}
	return append(buf, byte(n))
}

// getUvarint reads an unsigned varint from b starting at offset off,
// returning the value and the number of bytes consumed.
func getUvarint(b []byte, off int) (uint64, int, error) {
	var x uint64
	var s uint
	for i := 0; i < 10; i++ {
		if off+i >= len(b) {
			return 0, 0, errors.New("codec: truncated varint")
		}
		c := b[off+i]
		if c < 0x80 {
			if i == 9 && c > 1 {
				return 0, 0, errors.New("codec: varint overflows 64 bits")
			}
			x |= uint64(c) << s
			return x, i + 1, nil
		}
		x |= uint64(c&0x7f) << s
		s += 7
	}
	return 0, 0, errors.New("codec: varint too long")
}

// zigzagEncode maps a signed integer to an unsigned one so small magnitude
// values (positive or negative) both produce small varints.
func zigzagEncode(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func putFloat64(buf []byte, f float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	return append(buf, tmp[:]...)
}

func getFloat64(b []byte, off int) (float64, error) {
	if off+8 > len(b) {
		return 0, errors.New("codec: truncated float64")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8])), nil
}
