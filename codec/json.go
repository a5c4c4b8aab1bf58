package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

// jsonWriter mirrors textualWriter's path-stack backref bookkeeping: a
// repeated value is written as {"$ref": "N#path"}, where N is the number
// of trailing segments to pop from the current path to reach the
// longest common ancestor with the first-seen occurrence, and path is
// the remaining segments from that ancestor, RFC-6901-escaped.
type jsonWriter struct {
	buf  strings.Builder
	path []string // raw (unescaped) segment names
	seen map[any][]string
}

func jsonPointerEscape(seg string) string {
	seg = strings.ReplaceAll(seg, "~", "~0")
	seg = strings.ReplaceAll(seg, "/", "~1")
	return seg
}

func jsonPointerUnescape(seg string) string {
	seg = strings.ReplaceAll(seg, "~1", "/")
	seg = strings.ReplaceAll(seg, "~0", "~")
	return seg
}

// jsonPointerFrom renders segs as an escaped, slash-separated path
// fragment (a full JSON Pointer when segs is the absolute path, or a
// relative suffix when segs is the tail of one).
func jsonPointerFrom(segs []string) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(jsonPointerEscape(s))
	}
	return b.String()
}

// splitJSONRelPath inverts jsonPointerFrom, re-tokenizing an escaped
// relative path fragment back into raw segment names.
func splitJSONRelPath(rel string) []string {
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return nil
	}
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = jsonPointerUnescape(p)
	}
	return parts
}

func (w *jsonWriter) push(seg string) { w.path = append(w.path, seg) }
func (w *jsonWriter) pop()            { w.path = w.path[:len(w.path)-1] }

// findBackref mirrors textualWriter.findBackref: it reports the pop
// count and relative path segments needed to reach token's first-seen
// location from the current path.
func (w *jsonWriter) findBackref(token any) (pop int, rel []string, ok bool) {
	recordedSegs, seen := w.seen[token]
	if !seen {
		return 0, nil, false
	}
	curSegs := w.path
	common := 0
	for common < len(recordedSegs) && common < len(curSegs) && recordedSegs[common] == curSegs[common] {
		common++
	}
	pop = len(curSegs) - common
	return pop, recordedSegs[common:], true
}

func (w *jsonWriter) recordHere(token any) {
	segs := make([]string, len(w.path))
	copy(segs, w.path)
	w.seen[token] = segs
}

func jsonEscapeString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatJSONDateTime(millis int64) string {
	return formatDateTime(millis) + "+00:00"
}

func parseJSONDateTime(s string) (int64, error) {
	s = strings.TrimSuffix(s, "+00:00")
	return parseDateTime(s)
}

// PrintJSON renders v (typed by t) in the JSON-compatible format.
func PrintJSON(v values.Value, t *types.Descriptor) (string, error) {
	w := &jsonWriter{seen: map[any][]string{}}
	if err := w.print(v, t); err != nil {
		return "", err
	}
	return w.buf.String(), nil
}

func (w *jsonWriter) writeRef(token any) bool {
	if pop, rel, ok := w.findBackref(token); ok {
		fmt.Fprintf(&w.buf, `{"$ref":%s}`, jsonEscapeString(fmt.Sprintf("%d#%s", pop, jsonPointerFrom(rel))))
		return true
	}
	w.recordHere(token)
	return false
}

func (w *jsonWriter) print(v values.Value, t *types.Descriptor) error {
	switch t.Kind {
	case types.KindNever, types.KindNull:
		w.buf.WriteString("null")
		return nil
	case types.KindBoolean:
		if v.Bool {
			w.buf.WriteString("true")
		} else {
			w.buf.WriteString("false")
		}
		return nil
	case types.KindInteger:
		w.buf.WriteString(jsonEscapeString(strconv.FormatInt(v.Int, 10)))
		return nil
	case types.KindFloat:
		if math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) || (v.Float64 == 0 && math.Signbit(v.Float64)) {
			w.buf.WriteString(jsonEscapeString(formatFloat(v.Float64)))
		} else {
			w.buf.WriteString(formatFloat(v.Float64))
		}
		return nil
	case types.KindString:
		w.buf.WriteString(jsonEscapeString(v.Str))
		return nil
	case types.KindDateTime:
		w.buf.WriteString(jsonEscapeString(formatJSONDateTime(v.Millis)))
		return nil
	case types.KindBlob:
		w.buf.WriteString(jsonEscapeString(fmt.Sprintf("0x%x", v.Blob)))
		return nil
	case types.KindArray, types.KindSet:
		return w.printSeq(v, t)
	case types.KindDict:
		return w.printDict(v, t)
	case types.KindStruct:
		return w.printStruct(v, t)
	case types.KindVariant:
		return w.printVariant(v, t)
	case types.KindRef:
		return w.printRef(v, t)
	case types.KindVector:
		return w.printVector(v, t)
	case types.KindMatrix:
		return w.printMatrix(v, t)
	case types.KindRecursive:
		return w.print(v, t.Inner)
	default:
		return errors.Errorf("codec: JSON does not support descriptor kind %v", t.Kind)
	}
}

func (w *jsonWriter) printSeq(v values.Value, t *types.Descriptor) error {
	if token, ok := v.Identity(); ok {
		if w.writeRef(token) {
			return nil
		}
	}
	w.buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.push(strconv.Itoa(i))
		if err := w.print(v.At(i), t.Elem); err != nil {
			return err
		}
		w.pop()
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *jsonWriter) printDict(v values.Value, t *types.Descriptor) error {
	if token, ok := v.Identity(); ok {
		if w.writeRef(token) {
			return nil
		}
	}
	w.buf.WriteByte('[')
	for i := 0; i < values.DictLen(v); i++ {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.buf.WriteString(`{"key":`)
		w.push(strconv.Itoa(i))
		w.push("key")
		if err := w.print(v.Dict.Keys[i], t.Key); err != nil {
			return err
		}
		w.pop()
		w.buf.WriteString(`,"value":`)
		w.push("value")
		if err := w.print(v.Dict.Vals[i], t.Value); err != nil {
			return err
		}
		w.pop()
		w.pop()
		w.buf.WriteByte('}')
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *jsonWriter) printStruct(v values.Value, t *types.Descriptor) error {
	w.buf.WriteByte('{')
	for i, f := range t.Fields {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.buf.WriteString(jsonEscapeString(f.Name))
		w.buf.WriteByte(':')
		w.push(f.Name)
		if err := w.print(v.Struct.Fields[i], f.Type); err != nil {
			return err
		}
		w.pop()
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *jsonWriter) printVariant(v values.Value, t *types.Descriptor) error {
	c := t.Cases[v.Variant.CaseIdx]
	w.buf.WriteString(`{"type":`)
	w.buf.WriteString(jsonEscapeString(c.Name))
	w.buf.WriteString(`,"value":`)
	w.push("value")
	err := w.print(v.Variant.Payload, c.Type)
	w.pop()
	if err != nil {
		return err
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *jsonWriter) printRef(v values.Value, t *types.Descriptor) error {
	if token, ok := v.Identity(); ok {
		if w.writeRef(token) {
			return nil
		}
	}
	w.buf.WriteByte('[')
	w.push("0")
	err := w.print(v.Ref.Inner, t.Elem)
	w.pop()
	if err != nil {
		return err
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *jsonWriter) printVector(v values.Value, t *types.Descriptor) error {
	w.buf.WriteByte('[')
	for i := 0; i < values.VectorLen(v); i++ {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		writeJSONScalar(&w.buf, v, t.Scalar, i)
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *jsonWriter) printMatrix(v values.Value, t *types.Descriptor) error {
	rows, cols := values.MatrixDims(v)
	w.buf.WriteByte('[')
	for r := 0; r < rows; r++ {
		if r > 0 {
			w.buf.WriteByte(',')
		}
		w.buf.WriteByte('[')
		for c := 0; c < cols; c++ {
			if c > 0 {
				w.buf.WriteByte(',')
			}
			writeJSONScalar(&w.buf, v, t.Scalar, values.MatrixIndex(v, r, c))
		}
		w.buf.WriteByte(']')
	}
	w.buf.WriteByte(']')
	return nil
}

func writeJSONScalar(b *strings.Builder, v values.Value, s types.ScalarKind, idx int) {
	switch s {
	case types.ScalarFloat:
		f := values.GetFloat(v, idx)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			b.WriteString(jsonEscapeString(formatFloat(f)))
		} else {
			b.WriteString(formatFloat(f))
		}
	case types.ScalarInteger:
		b.WriteString(strconv.FormatInt(values.GetInteger(v, idx), 10))
	case types.ScalarBoolean:
		if values.GetBoolean(v, idx) {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	}
}

// jsonParser is a minimal recursive-descent JSON parser driven by the
// expected descriptor, rather than a generic JSON tree, so container
// shapes (Dict-as-pair-array, Variant-as-tagged-object, Ref-as-singleton-
// array) decode directly into the right value kind without an
// intermediate untyped representation.
type jsonParser struct {
	s        string
	pos      int
	line     int
	col      int
	path     []string
	resolved map[string]values.Value
}

func newJSONParser(s string) *jsonParser {
	return &jsonParser{s: s, line: 1, col: 1, resolved: map[string]values.Value{}}
}

func (p *jsonParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *jsonParser) advance() byte {
	c := p.s[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.advance()
		default:
			return
		}
	}
}

func (p *jsonParser) fail(reason, typeName string) error {
	var sb strings.Builder
	for _, s := range p.path {
		sb.WriteByte('/')
		sb.WriteString(jsonPointerEscape(s))
	}
	return detailedError(reason, []string{sb.String()}, p.line, p.col, typeName)
}

func (p *jsonParser) expect(c byte, typeName string) error {
	p.skipSpace()
	if p.peek() != c {
		return p.fail(fmt.Sprintf("expected %q", string(c)), typeName)
	}
	p.advance()
	return nil
}

func (p *jsonParser) push(seg string) { p.path = append(p.path, seg) }
func (p *jsonParser) pop()            { p.path = p.path[:len(p.path)-1] }

// rawPathKey joins raw (unescaped) segments into a map key for the
// resolved-value table; NUL is not a legal path segment character so
// it cannot collide with a real segment boundary.
func rawPathKey(segs []string) string { return strings.Join(segs, "\x00") }

func (p *jsonParser) recordHere(v values.Value) { p.resolved[rawPathKey(p.path)] = v }

// ParseJSON parses the JSON-compatible format into a value of descriptor t.
func ParseJSON(s string, t *types.Descriptor) (values.Value, error) {
	p := newJSONParser(s)
	v, err := p.parse(t)
	if err != nil {
		return values.Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return values.Value{}, p.fail("unexpected trailing input", typeName(t))
	}
	return v, nil
}

// tryRefObject peeks for a leading {"$ref": "..."} object and, if found,
// consumes it and resolves the pointer; otherwise the parser position is
// left unchanged.
func (p *jsonParser) tryRefObject() (values.Value, bool, error) {
	start, startLine, startCol := p.pos, p.line, p.col
	p.skipSpace()
	if p.peek() != '{' {
		return values.Value{}, false, nil
	}
	p.advance()
	p.skipSpace()
	key, ok, err := p.tryString()
	if err != nil || !ok || key != "$ref" {
		p.pos, p.line, p.col = start, startLine, startCol
		return values.Value{}, false, nil
	}
	if err := p.expect(':', "$ref"); err != nil {
		return values.Value{}, false, err
	}
	p.skipSpace()
	target, ok, err := p.tryString()
	if err != nil || !ok {
		p.pos, p.line, p.col = start, startLine, startCol
		return values.Value{}, false, nil
	}
	p.skipSpace()
	if p.peek() != '}' {
		p.pos, p.line, p.col = start, startLine, startCol
		return values.Value{}, false, nil
	}
	p.advance()
	pop, rel, ok := parseJSONBackrefToken(target)
	if !ok {
		return values.Value{}, false, p.fail(fmt.Sprintf("malformed backreference %q", target), "")
	}
	if pop > len(p.path) {
		return values.Value{}, false, p.fail("backreference pop count exceeds current path depth", "")
	}
	base := p.path[:len(p.path)-pop]
	targetSegs := append(append([]string{}, base...), splitJSONRelPath(rel)...)
	v, found := p.resolved[rawPathKey(targetSegs)]
	if !found {
		return values.Value{}, false, p.fail(fmt.Sprintf("unresolved backreference %q", target), "")
	}
	return v, true, nil
}

// parseJSONBackrefToken splits a "N#path" backreference token into its
// pop count and relative path fragment.
func parseJSONBackrefToken(s string) (pop int, rel string, ok bool) {
	idx := strings.IndexByte(s, '#')
	if idx < 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(s[:idx])
	if err != nil {
		return 0, "", false
	}
	return n, s[idx+1:], true
}

func (p *jsonParser) tryString() (string, bool, error) {
	if p.peek() != '"' {
		return "", false, nil
	}
	s, err := p.parseJSONString()
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (p *jsonParser) parseJSONString() (string, error) {
	if p.peek() != '"' {
		return "", p.fail("expected opening quote", "String")
	}
	p.advance()
	var b strings.Builder
	for {
		if p.pos >= len(p.s) {
			return "", p.fail("unterminated string", "String")
		}
		c := p.advance()
		if c == '"' {
			break
		}
		if c == '\\' {
			if p.pos >= len(p.s) {
				return "", p.fail("unterminated escape", "String")
			}
			esc := p.advance()
			switch esc {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if p.pos+4 > len(p.s) {
					return "", p.fail("truncated unicode escape", "String")
				}
				hex := p.s[p.pos : p.pos+4]
				for i := 0; i < 4; i++ {
					p.advance()
				}
				n, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return "", p.fail("invalid unicode escape", "String")
				}
				b.WriteRune(rune(n))
			default:
				return "", p.fail("invalid escape", "String")
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func (p *jsonParser) parse(t *types.Descriptor) (values.Value, error) {
	p.skipSpace()
	switch t.Kind {
	case types.KindNever, types.KindNull:
		return p.parseWord("null", values.Null(), t)
	case types.KindBoolean:
		if strings.HasPrefix(p.s[p.pos:], "true") {
			p.advanceN(4)
			return values.Boolean(true), nil
		}
		if strings.HasPrefix(p.s[p.pos:], "false") {
			p.advanceN(5)
			return values.Boolean(false), nil
		}
		return values.Value{}, p.fail("expected true/false", "Boolean")
	case types.KindInteger:
		s, err := p.parseJSONString()
		if err != nil {
			return values.Value{}, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return values.Value{}, p.fail("invalid Integer string", "Integer")
		}
		return values.Integer(n), nil
	case types.KindFloat:
		return p.parseJSONFloat()
	case types.KindString:
		s, err := p.parseJSONString()
		if err != nil {
			return values.Value{}, err
		}
		return values.String(s), nil
	case types.KindDateTime:
		s, err := p.parseJSONString()
		if err != nil {
			return values.Value{}, err
		}
		millis, err := parseJSONDateTime(s)
		if err != nil {
			return values.Value{}, p.fail("invalid DateTime literal", "DateTime")
		}
		return values.DateTime(millis), nil
	case types.KindBlob:
		s, err := p.parseJSONString()
		if err != nil {
			return values.Value{}, err
		}
		raw, err := decodeHex(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return values.Value{}, p.fail("invalid hex in Blob", "Blob")
		}
		return values.Blob(raw), nil
	case types.KindArray:
		return p.parseSeq(t, true)
	case types.KindSet:
		return p.parseSeq(t, false)
	case types.KindDict:
		return p.parseDict(t)
	case types.KindStruct:
		return p.parseStruct(t)
	case types.KindVariant:
		return p.parseVariant(t)
	case types.KindRef:
		return p.parseRef(t)
	case types.KindVector:
		return p.parseVector(t)
	case types.KindMatrix:
		return p.parseMatrix(t)
	case types.KindRecursive:
		return p.parse(t.Inner)
	default:
		return values.Value{}, p.fail(fmt.Sprintf("type %v is not parseable", t.Kind), typeName(t))
	}
}

func (p *jsonParser) parseWord(word string, v values.Value, t *types.Descriptor) (values.Value, error) {
	if strings.HasPrefix(p.s[p.pos:], word) {
		p.advanceN(len(word))
		return v, nil
	}
	return values.Value{}, p.fail("expected "+word, typeName(t))
}

func (p *jsonParser) advanceN(n int) {
	for i := 0; i < n; i++ {
		p.advance()
	}
}

func (p *jsonParser) parseJSONFloat() (values.Value, error) {
	if p.peek() == '"' {
		s, err := p.parseJSONString()
		if err != nil {
			return values.Value{}, err
		}
		switch s {
		case "NaN":
			return values.Float(math.NaN()), nil
		case "Infinity":
			return values.Float(math.Inf(1)), nil
		case "-Infinity":
			return values.Float(math.Inf(-1)), nil
		case "-0.0":
			return values.Float(math.Copysign(0, -1)), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return values.Value{}, p.fail("invalid float string", "Float")
		}
		return values.Float(f), nil
	}
	start := p.pos
	if p.peek() == '-' {
		p.advance()
	}
	for p.pos < len(p.s) && (isDigit(p.s[p.pos]) || p.s[p.pos] == '.' || p.s[p.pos] == 'e' || p.s[p.pos] == 'E' || p.s[p.pos] == '+' || p.s[p.pos] == '-') {
		p.advance()
	}
	f, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return values.Value{}, p.fail("invalid float literal", "Float")
	}
	return values.Float(f), nil
}

func (p *jsonParser) parseSeq(t *types.Descriptor, ordered bool) (values.Value, error) {
	if v, ok, err := p.tryRefObject(); err != nil {
		return values.Value{}, err
	} else if ok {
		return v, nil
	}
	if err := p.expect('[', typeName(t)); err != nil {
		return values.Value{}, err
	}
	var items []values.Value
	p.skipSpace()
	if p.peek() != ']' {
		for {
			p.push(strconv.Itoa(len(items)))
			it, err := p.parse(t.Elem)
			p.pop()
			if err != nil {
				return values.Value{}, err
			}
			items = append(items, it)
			p.skipSpace()
			if p.peek() == ',' {
				p.advance()
				p.skipSpace()
				continue
			}
			break
		}
	}
	if err := p.expect(']', typeName(t)); err != nil {
		return values.Value{}, err
	}
	var v values.Value
	if ordered {
		v = values.NewArray(t.Elem, items)
	} else {
		v = values.NewSet(t.Elem, items)
	}
	p.recordHere(v)
	return v, nil
}

func (p *jsonParser) parseDict(t *types.Descriptor) (values.Value, error) {
	if v, ok, err := p.tryRefObject(); err != nil {
		return values.Value{}, err
	} else if ok {
		return v, nil
	}
	if err := p.expect('[', "Dict"); err != nil {
		return values.Value{}, err
	}
	var keys, vals []values.Value
	p.skipSpace()
	if p.peek() != ']' {
		for {
			idx := len(keys)
			if err := p.expect('{', "Dict"); err != nil {
				return values.Value{}, err
			}
			k, v, err := p.parseDictEntry(t, idx)
			if err != nil {
				return values.Value{}, err
			}
			if err := p.expect('}', "Dict"); err != nil {
				return values.Value{}, err
			}
			keys, vals = append(keys, k), append(vals, v)
			p.skipSpace()
			if p.peek() == ',' {
				p.advance()
				p.skipSpace()
				continue
			}
			break
		}
	}
	if err := p.expect(']', "Dict"); err != nil {
		return values.Value{}, err
	}
	v := values.NewDict(t.Key, t.Value, keys, vals)
	p.recordHere(v)
	return v, nil
}

func (p *jsonParser) parseDictEntry(t *types.Descriptor, idx int) (values.Value, values.Value, error) {
	var key, val values.Value
	haveKey, haveVal := false, false
	p.skipSpace()
	for i := 0; i < 2; i++ {
		name, err := p.parseJSONString()
		if err != nil {
			return values.Value{}, values.Value{}, err
		}
		if err := p.expect(':', "Dict"); err != nil {
			return values.Value{}, values.Value{}, err
		}
		p.push(strconv.Itoa(idx))
		p.push(name)
		switch name {
		case "key":
			key, err = p.parse(t.Key)
			haveKey = true
		case "value":
			val, err = p.parse(t.Value)
			haveVal = true
		default:
			err = p.fail(fmt.Sprintf("unknown Dict entry field %q", name), "Dict")
		}
		p.pop()
		p.pop()
		if err != nil {
			return values.Value{}, values.Value{}, err
		}
		p.skipSpace()
		if i == 0 {
			if err := p.expect(',', "Dict"); err != nil {
				return values.Value{}, values.Value{}, err
			}
			p.skipSpace()
		}
	}
	if !haveKey || !haveVal {
		return values.Value{}, values.Value{}, p.fail("Dict entry missing key or value", "Dict")
	}
	return key, val, nil
}

func (p *jsonParser) parseStruct(t *types.Descriptor) (values.Value, error) {
	if err := p.expect('{', typeName(t)); err != nil {
		return values.Value{}, err
	}
	fields := make([]values.Value, len(t.Fields))
	populated := make([]bool, len(t.Fields))
	byName := map[string]int{}
	for i, f := range t.Fields {
		byName[f.Name] = i
	}
	p.skipSpace()
	if p.peek() != '}' {
		for {
			name, err := p.parseJSONString()
			if err != nil {
				return values.Value{}, err
			}
			idx, ok := byName[name]
			if !ok {
				return values.Value{}, p.fail(fmt.Sprintf("unknown field %q", name), typeName(t))
			}
			if err := p.expect(':', typeName(t)); err != nil {
				return values.Value{}, err
			}
			p.push(name)
			fv, err := p.parse(t.Fields[idx].Type)
			p.pop()
			if err != nil {
				return values.Value{}, err
			}
			fields[idx] = fv
			populated[idx] = true
			p.skipSpace()
			if p.peek() == ',' {
				p.advance()
				p.skipSpace()
				continue
			}
			break
		}
	}
	if err := p.expect('}', typeName(t)); err != nil {
		return values.Value{}, err
	}
	for i, ok := range populated {
		if !ok {
			return values.Value{}, p.fail(fmt.Sprintf("missing field %q", t.Fields[i].Name), typeName(t))
		}
	}
	return values.NewStruct(t, fields), nil
}

func (p *jsonParser) parseVariant(t *types.Descriptor) (values.Value, error) {
	if err := p.expect('{', typeName(t)); err != nil {
		return values.Value{}, err
	}
	var caseName string
	var payload values.Value
	var caseType *types.Descriptor
	for i := 0; i < 2; i++ {
		p.skipSpace()
		name, err := p.parseJSONString()
		if err != nil {
			return values.Value{}, err
		}
		if err := p.expect(':', typeName(t)); err != nil {
			return values.Value{}, err
		}
		switch name {
		case "type":
			caseName, err = p.parseJSONString()
			if err != nil {
				return values.Value{}, err
			}
			caseType = nil
			for _, c := range t.Cases {
				if c.Name == caseName {
					ct := c.Type
					caseType = ct
					break
				}
			}
			if caseType == nil {
				return values.Value{}, p.fail(fmt.Sprintf("unknown case %q", caseName), typeName(t))
			}
		case "value":
			if caseType == nil {
				return values.Value{}, p.fail(`"value" must follow "type"`, typeName(t))
			}
			p.push("value")
			payload, err = p.parse(caseType)
			p.pop()
			if err != nil {
				return values.Value{}, err
			}
		default:
			return values.Value{}, p.fail(fmt.Sprintf("unknown Variant field %q", name), typeName(t))
		}
		p.skipSpace()
		if i == 0 {
			if err := p.expect(',', typeName(t)); err != nil {
				return values.Value{}, err
			}
		}
	}
	if err := p.expect('}', typeName(t)); err != nil {
		return values.Value{}, err
	}
	return values.NewVariant(t, caseName, payload), nil
}

func (p *jsonParser) parseRef(t *types.Descriptor) (values.Value, error) {
	if v, ok, err := p.tryRefObject(); err != nil {
		return values.Value{}, err
	} else if ok {
		return v, nil
	}
	if err := p.expect('[', "Ref"); err != nil {
		return values.Value{}, err
	}
	p.push("0")
	inner, err := p.parse(t.Elem)
	p.pop()
	if err != nil {
		return values.Value{}, err
	}
	if err := p.expect(']', "Ref"); err != nil {
		return values.Value{}, err
	}
	v := values.NewRef(t.Elem, inner)
	p.recordHere(v)
	return v, nil
}

func (p *jsonParser) parseVector(t *types.Descriptor) (values.Value, error) {
	if err := p.expect('[', "Vector"); err != nil {
		return values.Value{}, err
	}
	var scalars []string
	p.skipSpace()
	if p.peek() != ']' {
		for {
			s, err := p.readScalarToken()
			if err != nil {
				return values.Value{}, err
			}
			scalars = append(scalars, s)
			p.skipSpace()
			if p.peek() == ',' {
				p.advance()
				p.skipSpace()
				continue
			}
			break
		}
	}
	if err := p.expect(']', "Vector"); err != nil {
		return values.Value{}, err
	}
	v := values.NewVector(t.Scalar, len(scalars))
	for i, s := range scalars {
		if err := setScalar(v, t.Scalar, i, s); err != nil {
			return values.Value{}, p.fail(err.Error(), "Vector")
		}
	}
	return v, nil
}

func (p *jsonParser) readScalarToken() (string, error) {
	p.skipSpace()
	if p.peek() == '"' {
		s, err := p.parseJSONString()
		if err != nil {
			return "", err
		}
		return s, nil
	}
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] != ',' && p.s[p.pos] != ']' {
		p.advance()
	}
	return strings.TrimSpace(p.s[start:p.pos]), nil
}

func (p *jsonParser) parseMatrix(t *types.Descriptor) (values.Value, error) {
	if err := p.expect('[', "Matrix"); err != nil {
		return values.Value{}, err
	}
	var rows [][]string
	p.skipSpace()
	if p.peek() != ']' {
		for {
			if err := p.expect('[', "Matrix"); err != nil {
				return values.Value{}, err
			}
			var row []string
			p.skipSpace()
			if p.peek() != ']' {
				for {
					s, err := p.readScalarToken()
					if err != nil {
						return values.Value{}, err
					}
					row = append(row, s)
					p.skipSpace()
					if p.peek() == ',' {
						p.advance()
						p.skipSpace()
						continue
					}
					break
				}
			}
			if err := p.expect(']', "Matrix"); err != nil {
				return values.Value{}, err
			}
			rows = append(rows, row)
			p.skipSpace()
			if p.peek() == ',' {
				p.advance()
				p.skipSpace()
				continue
			}
			break
		}
	}
	if err := p.expect(']', "Matrix"); err != nil {
		return values.Value{}, err
	}
	nrows := len(rows)
	ncols := 0
	if nrows > 0 {
		ncols = len(rows[0])
	}
	v := values.NewMatrix(t.Scalar, nrows, ncols)
	for r, row := range rows {
		for c, s := range row {
			if err := setScalar(v, t.Scalar, values.MatrixIndex(v, r, c), s); err != nil {
				return values.Value{}, p.fail(err.Error(), "Matrix")
			}
		}
	}
	return v, nil
}
