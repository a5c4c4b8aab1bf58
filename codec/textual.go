package codec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/elaraai/east/types"
	"github.com/elaraai/east/values"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// textualWriter accumulates printed output plus the path-stack backref
// state of the Textual printer (the JSON printer keeps the same kind of
// state in its own jsonWriter).
type textualWriter struct {
	buf  strings.Builder
	path []string
	seen map[any]string // identity token -> recorded path string
}

func joinPath(segs []string) string { return strings.Join(segs, "") }

// findBackref checks whether token has already been printed; if so it
// returns (popCount, relPath, true) per the path-stack protocol: popCount
// is how many trailing segments of the *current* path must be dropped to
// reach the longest common prefix with the recorded path, and relPath is
// the recorded path's remaining segments from that common point onward.
func (w *textualWriter) findBackref(token any) (pop int, rel string, ok bool) {
	recorded, seen := w.seen[token]
	if !seen {
		return 0, "", false
	}
	recordedSegs := splitPath(recorded)
	curSegs := w.path
	common := 0
	for common < len(recordedSegs) && common < len(curSegs) && recordedSegs[common] == curSegs[common] {
		common++
	}
	pop = len(curSegs) - common
	rel = joinPath(recordedSegs[common:])
	return pop, rel, true
}

// splitPath re-tokenizes a joined path string back into its [i]/.field/
// .case segments.
func splitPath(p string) []string {
	var segs []string
	i := 0
	for i < len(p) {
		switch p[i] {
		case '[':
			j := strings.IndexByte(p[i:], ']')
			segs = append(segs, p[i:i+j+1])
			i += j + 1
		case '.':
			j := i + 1
			for j < len(p) && p[j] != '.' && p[j] != '[' {
				j++
			}
			segs = append(segs, p[i:j])
			i = j
		default:
			i++
		}
	}
	return segs
}

func (w *textualWriter) recordHere(token any) {
	w.seen[token] = joinPath(w.path)
}

func (w *textualWriter) push(seg string) { w.path = append(w.path, seg) }
func (w *textualWriter) pop()            { w.path = w.path[:len(w.path)-1] }

// PrintTextual renders v (typed by t) in the human-readable Textual
// format.
func PrintTextual(v values.Value, t *types.Descriptor) (string, error) {
	w := &textualWriter{seen: map[any]string{}}
	if err := w.print(v, t); err != nil {
		return "", err
	}
	return w.buf.String(), nil
}

func escapeString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if f == 0 && math.Signbit(f) {
		return "-0.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func formatDateTime(millis int64) string {
	t := time.UnixMilli(millis).UTC()
	return t.Format("2006-01-02T15:04:05.000")
}

func parseDateTime(s string) (int64, error) {
	t, err := time.Parse("2006-01-02T15:04:05.000", s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

func quoteIdent(name string) string {
	if identRe.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func (w *textualWriter) print(v values.Value, t *types.Descriptor) error {
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
		w.buf.WriteString(strconv.FormatInt(v.Int, 10))
		return nil
	case types.KindFloat:
		w.buf.WriteString(formatFloat(v.Float64))
		return nil
	case types.KindString:
		w.buf.WriteString(escapeString(v.Str))
		return nil
	case types.KindDateTime:
		w.buf.WriteString(formatDateTime(v.Millis))
		return nil
	case types.KindBlob:
		w.buf.WriteString("0x")
		w.buf.WriteString(fmt.Sprintf("%x", v.Blob))
		return nil
	case types.KindArray:
		return w.printSeq(v, t, '[', ']')
	case types.KindSet:
		return w.printSeq(v, t, '{', '}')
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
	case types.KindFunction, types.KindAsyncFunction:
		w.buf.WriteRune('λ')
		return nil
	default:
		return errors.Errorf("codec: Textual does not support descriptor kind %v", t.Kind)
	}
}

func (w *textualWriter) printSeq(v values.Value, t *types.Descriptor, open, close byte) error {
	token, ok := v.Identity()
	if ok {
		if pop, rel, seen := w.findBackref(token); seen {
			fmt.Fprintf(&w.buf, "%d#%s", pop, rel)
			return nil
		}
		w.recordHere(token)
	}
	w.buf.WriteByte(open)
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		w.push(fmt.Sprintf("[%d]", i))
		if err := w.print(v.At(i), t.Elem); err != nil {
			return err
		}
		w.pop()
	}
	w.buf.WriteByte(close)
	return nil
}

func (w *textualWriter) printDict(v values.Value, t *types.Descriptor) error {
	token, ok := v.Identity()
	if ok {
		if pop, rel, seen := w.findBackref(token); seen {
			fmt.Fprintf(&w.buf, "%d#%s", pop, rel)
			return nil
		}
		w.recordHere(token)
	}
	n := values.DictLen(v)
	if n == 0 {
		w.buf.WriteString("{:}")
		return nil
	}
	w.buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		w.push(fmt.Sprintf("[%d]", i))
		if err := w.print(v.Dict.Keys[i], t.Key); err != nil {
			return err
		}
		w.buf.WriteByte(':')
		if err := w.print(v.Dict.Vals[i], t.Value); err != nil {
			return err
		}
		w.pop()
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *textualWriter) printStruct(v values.Value, t *types.Descriptor) error {
	if len(t.Fields) == 0 {
		w.buf.WriteString("()")
		return nil
	}
	w.buf.WriteByte('(')
	for i, f := range t.Fields {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		w.buf.WriteString(quoteIdent(f.Name))
		w.buf.WriteByte('=')
		w.push("." + f.Name)
		if err := w.print(v.Struct.Fields[i], f.Type); err != nil {
			return err
		}
		w.pop()
	}
	w.buf.WriteByte(')')
	return nil
}

func (w *textualWriter) printVariant(v values.Value, t *types.Descriptor) error {
	c := t.Cases[v.Variant.CaseIdx]
	w.buf.WriteByte('.')
	w.buf.WriteString(c.Name)
	if c.Type.Kind == types.KindNull {
		return nil
	}
	w.buf.WriteByte(' ')
	w.push(".." + c.Name)
	err := w.print(v.Variant.Payload, c.Type)
	w.pop()
	return err
}

func (w *textualWriter) printRef(v values.Value, t *types.Descriptor) error {
	token, ok := v.Identity()
	if ok {
		if pop, rel, seen := w.findBackref(token); seen {
			fmt.Fprintf(&w.buf, "%d#%s", pop, rel)
			return nil
		}
		w.recordHere(token)
	}
	w.buf.WriteByte('&')
	return w.print(v.Ref.Inner, t.Elem)
}

func (w *textualWriter) printVector(v values.Value, t *types.Descriptor) error {
	w.buf.WriteString("vec[")
	for i := 0; i < values.VectorLen(v); i++ {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		writeScalar(&w.buf, v, t.Scalar, i)
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *textualWriter) printMatrix(v values.Value, t *types.Descriptor) error {
	rows, cols := values.MatrixDims(v)
	w.buf.WriteString("mat[")
	for r := 0; r < rows; r++ {
		if r > 0 {
			w.buf.WriteString(", ")
		}
		w.buf.WriteByte('[')
		for c := 0; c < cols; c++ {
			if c > 0 {
				w.buf.WriteString(", ")
			}
			writeScalar(&w.buf, v, t.Scalar, values.MatrixIndex(v, r, c))
		}
		w.buf.WriteByte(']')
	}
	w.buf.WriteByte(']')
	return nil
}

func writeScalar(b *strings.Builder, v values.Value, s types.ScalarKind, idx int) {
	switch s {
	case types.ScalarFloat:
		b.WriteString(formatFloat(values.GetFloat(v, idx)))
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

// detailedError renders the "Error occurred because ..." format shared by
// the Textual and JSON detailed-error parse variants.
func detailedError(reason string, path []string, line, col int, typeName string) error {
	p := joinPath(path)
	if p != "" {
		return errors.Errorf("Error occurred because %s at %s (line %d, col %d) while parsing value of type %q", reason, p, line, col, typeName)
	}
	return errors.Errorf("Error occurred because %s (line %d, col %d) while parsing value of type %q", reason, line, col, typeName)
}

// textualParser is a small recursive-descent parser over the Textual
// grammar, tracking line/column for detailed errors and a path-stack plus
// a map from joined path string to value to resolve backreferences the
// same way the printer produced them.
type textualParser struct {
	s        string
	pos      int
	line     int
	col      int
	path     []string
	resolved map[string]values.Value
}

func newTextualParser(s string) *textualParser {
	return &textualParser{s: s, line: 1, col: 1, resolved: map[string]values.Value{}}
}

func (p *textualParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *textualParser) advance() byte {
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

func (p *textualParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.advance()
		default:
			return
		}
	}
}

func (p *textualParser) fail(reason string, typeName string) error {
	return detailedError(reason, p.path, p.line, p.col, typeName)
}

func (p *textualParser) expect(c byte, typeName string) error {
	p.skipSpace()
	if p.peek() != c {
		return p.fail(fmt.Sprintf("expected %q", string(c)), typeName)
	}
	p.advance()
	return nil
}

// ParseTextual parses the Textual format into a value of descriptor t.
func ParseTextual(s string, t *types.Descriptor) (values.Value, error) {
	p := newTextualParser(s)
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

func typeName(t *types.Descriptor) string { return t.Kind.String() }

func (p *textualParser) tryBackref() (values.Value, bool, error) {
	start := p.pos
	startLine, startCol := p.line, p.col
	n := 0
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		n = n*10 + int(p.s[p.pos]-'0')
		p.advance()
	}
	if p.pos == start || p.peek() != '#' {
		p.pos, p.line, p.col = start, startLine, startCol
		return values.Value{}, false, nil
	}
	p.advance() // '#'
	var rel strings.Builder
	depth := 0
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '[' {
			depth++
		} else if c == ']' && depth > 0 {
			depth--
		} else if c == ',' || c == ')' || c == ']' || c == '}' || c == ' ' {
			break
		}
		rel.WriteByte(c)
		p.advance()
	}
	if n > len(p.path) {
		return values.Value{}, false, p.fail("backreference pop count exceeds current path depth", "")
	}
	base := p.path[:len(p.path)-n]
	target := joinPath(base) + rel.String()
	v, ok := p.resolved[target]
	if !ok {
		return values.Value{}, false, p.fail(fmt.Sprintf("unresolved backreference %q", target), "")
	}
	return v, true, nil
}

func (p *textualParser) recordHere(v values.Value) {
	p.resolved[joinPath(p.path)] = v
}

func (p *textualParser) parse(t *types.Descriptor) (values.Value, error) {
	p.skipSpace()
	switch t.Kind {
	case types.KindNever, types.KindNull:
		return p.parseLiteralWord("null", values.Null(), t)
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
		return p.parseInteger()
	case types.KindFloat:
		return p.parseFloat()
	case types.KindString:
		return p.parseString()
	case types.KindDateTime:
		return p.parseDateTimeLit()
	case types.KindBlob:
		return p.parseBlob()
	case types.KindArray:
		return p.parseSeq(t, '[', ']', true)
	case types.KindSet:
		return p.parseSeq(t, '{', '}', false)
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

func (p *textualParser) advanceN(n int) {
	for i := 0; i < n; i++ {
		p.advance()
	}
}

func (p *textualParser) parseLiteralWord(word string, v values.Value, t *types.Descriptor) (values.Value, error) {
	if strings.HasPrefix(p.s[p.pos:], word) {
		p.advanceN(len(word))
		return v, nil
	}
	return values.Value{}, p.fail("expected "+word, typeName(t))
}

func (p *textualParser) parseInteger() (values.Value, error) {
	start := p.pos
	if p.peek() == '-' {
		p.advance()
	}
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.advance()
	}
	if p.pos == start {
		return values.Value{}, p.fail("expected integer", "Integer")
	}
	n, err := strconv.ParseInt(p.s[start:p.pos], 10, 64)
	if err != nil {
		return values.Value{}, p.fail("invalid integer literal", "Integer")
	}
	return values.Integer(n), nil
}

func (p *textualParser) parseFloat() (values.Value, error) {
	for _, special := range []struct {
		word string
		val  float64
	}{
		{"-Infinity", math.Inf(-1)}, {"Infinity", math.Inf(1)}, {"NaN", math.NaN()}, {"-0.0", math.Copysign(0, -1)},
	} {
		if strings.HasPrefix(p.s[p.pos:], special.word) {
			p.advanceN(len(special.word))
			return values.Float(special.val), nil
		}
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

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *textualParser) parseString() (values.Value, error) {
	if p.peek() != '"' {
		return values.Value{}, p.fail("expected opening quote", "String")
	}
	p.advance()
	var b strings.Builder
	for {
		if p.pos >= len(p.s) {
			return values.Value{}, p.fail("unterminated string", "String")
		}
		c := p.advance()
		if c == '"' {
			break
		}
		if c == '\\' {
			if p.pos >= len(p.s) {
				return values.Value{}, p.fail("unterminated escape", "String")
			}
			esc := p.advance()
			switch esc {
			case '\\', '"':
				b.WriteByte(esc)
			default:
				return values.Value{}, p.fail("invalid escape", "String")
			}
			continue
		}
		b.WriteByte(c)
	}
	return values.String(b.String()), nil
}

func (p *textualParser) parseDateTimeLit() (values.Value, error) {
	start := p.pos
	for p.pos < len(p.s) && (isDigit(p.s[p.pos]) || p.s[p.pos] == '-' || p.s[p.pos] == ':' || p.s[p.pos] == '.' || p.s[p.pos] == 'T') {
		p.advance()
	}
	millis, err := parseDateTime(p.s[start:p.pos])
	if err != nil {
		return values.Value{}, p.fail("invalid DateTime literal", "DateTime")
	}
	return values.DateTime(millis), nil
}

func (p *textualParser) parseBlob() (values.Value, error) {
	if !strings.HasPrefix(p.s[p.pos:], "0x") {
		return values.Value{}, p.fail("expected 0x-prefixed Blob", "Blob")
	}
	p.advanceN(2)
	start := p.pos
	for p.pos < len(p.s) && isHex(p.s[p.pos]) {
		p.advance()
	}
	raw, err := decodeHex(p.s[start:p.pos])
	if err != nil {
		return values.Value{}, p.fail("invalid hex in Blob", "Blob")
	}
	return values.Blob(raw), nil
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.New("codec: odd-length hex")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		var b byte
		_, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &b)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (p *textualParser) parseSeq(t *types.Descriptor, open, close byte, ordered bool) (values.Value, error) {
	if v, ok, err := p.tryBackref(); err != nil {
		return values.Value{}, err
	} else if ok {
		return v, nil
	}
	if err := p.expect(open, typeName(t)); err != nil {
		return values.Value{}, err
	}
	var items []values.Value
	p.skipSpace()
	if p.peek() != close {
		for {
			p.push(fmt.Sprintf("[%d]", len(items)))
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
	if err := p.expect(close, typeName(t)); err != nil {
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

func (p *textualParser) parseDict(t *types.Descriptor) (values.Value, error) {
	if v, ok, err := p.tryBackref(); err != nil {
		return values.Value{}, err
	} else if ok {
		return v, nil
	}
	if err := p.expect('{', "Dict"); err != nil {
		return values.Value{}, err
	}
	p.skipSpace()
	if p.peek() == ':' {
		p.advance()
		if err := p.expect('}', "Dict"); err != nil {
			return values.Value{}, err
		}
		v := values.NewDict(t.Key, t.Value, nil, nil)
		p.recordHere(v)
		return v, nil
	}
	var keys, vals []values.Value
	for {
		p.push(fmt.Sprintf("[%d]", len(keys)))
		k, err := p.parse(t.Key)
		if err != nil {
			p.pop()
			return values.Value{}, err
		}
		if err := p.expect(':', "Dict"); err != nil {
			p.pop()
			return values.Value{}, err
		}
		val, err := p.parse(t.Value)
		p.pop()
		if err != nil {
			return values.Value{}, err
		}
		keys, vals = append(keys, k), append(vals, val)
		p.skipSpace()
		if p.peek() == ',' {
			p.advance()
			p.skipSpace()
			continue
		}
		break
	}
	if err := p.expect('}', "Dict"); err != nil {
		return values.Value{}, err
	}
	v := values.NewDict(t.Key, t.Value, keys, vals)
	p.recordHere(v)
	return v, nil
}

func (p *textualParser) parseIdent() (string, error) {
	p.skipSpace()
	if p.peek() == '`' {
		p.advance()
		var b strings.Builder
		for p.peek() != '`' {
			if p.pos >= len(p.s) {
				return "", p.fail("unterminated backtick identifier", "Struct")
			}
			c := p.advance()
			if c == '\\' && p.peek() == '`' {
				b.WriteByte(p.advance())
				continue
			}
			b.WriteByte(c)
		}
		p.advance()
		return b.String(), nil
	}
	start := p.pos
	for p.pos < len(p.s) && (isAlnum(p.s[p.pos]) || p.s[p.pos] == '_') {
		p.advance()
	}
	if p.pos == start {
		return "", p.fail("expected identifier", "Struct")
	}
	return p.s[start:p.pos], nil
}

func isAlnum(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func (p *textualParser) parseStruct(t *types.Descriptor) (values.Value, error) {
	if err := p.expect('(', typeName(t)); err != nil {
		return values.Value{}, err
	}
	fields := make([]values.Value, len(t.Fields))
	populated := make([]bool, len(t.Fields))
	byName := map[string]int{}
	for i, f := range t.Fields {
		byName[f.Name] = i
	}
	p.skipSpace()
	if p.peek() != ')' {
		for {
			name, err := p.parseIdent()
			if err != nil {
				return values.Value{}, err
			}
			idx, ok := byName[name]
			if !ok {
				return values.Value{}, p.fail(fmt.Sprintf("unknown field %q", name), typeName(t))
			}
			if err := p.expect('=', typeName(t)); err != nil {
				return values.Value{}, err
			}
			p.push("." + name)
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
	if err := p.expect(')', typeName(t)); err != nil {
		return values.Value{}, err
	}
	for i, ok := range populated {
		if !ok {
			return values.Value{}, p.fail(fmt.Sprintf("missing field %q", t.Fields[i].Name), typeName(t))
		}
	}
	return values.NewStruct(t, fields), nil
}

func (p *textualParser) parseVariant(t *types.Descriptor) (values.Value, error) {
	if err := p.expect('.', typeName(t)); err != nil {
		return values.Value{}, err
	}
	name, err := p.parseIdent()
	if err != nil {
		return values.Value{}, err
	}
	idx := -1
	for i, c := range t.Cases {
		if c.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return values.Value{}, p.fail(fmt.Sprintf("unknown case %q", name), typeName(t))
	}
	c := t.Cases[idx]
	if c.Type.Kind == types.KindNull {
		return values.NewVariant(t, c.Name, values.Null()), nil
	}
	p.skipSpace()
	p.push(".." + name)
	payload, err := p.parse(c.Type)
	p.pop()
	if err != nil {
		return values.Value{}, err
	}
	return values.NewVariant(t, c.Name, payload), nil
}

func (p *textualParser) parseRef(t *types.Descriptor) (values.Value, error) {
	if v, ok, err := p.tryBackref(); err != nil {
		return values.Value{}, err
	} else if ok {
		return v, nil
	}
	if err := p.expect('&', "Ref"); err != nil {
		return values.Value{}, err
	}
	inner, err := p.parse(t.Elem)
	if err != nil {
		return values.Value{}, err
	}
	v := values.NewRef(t.Elem, inner)
	p.recordHere(v)
	return v, nil
}

func (p *textualParser) parseVector(t *types.Descriptor) (values.Value, error) {
	if !strings.HasPrefix(p.s[p.pos:], "vec[") {
		return values.Value{}, p.fail("expected vec[", "Vector")
	}
	p.advanceN(4)
	var scalars []string
	p.skipSpace()
	if p.peek() != ']' {
		for {
			start := p.pos
			for p.pos < len(p.s) && p.s[p.pos] != ',' && p.s[p.pos] != ']' {
				p.advance()
			}
			scalars = append(scalars, strings.TrimSpace(p.s[start:p.pos]))
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

func (p *textualParser) parseMatrix(t *types.Descriptor) (values.Value, error) {
	if !strings.HasPrefix(p.s[p.pos:], "mat[") {
		return values.Value{}, p.fail("expected mat[", "Matrix")
	}
	p.advanceN(4)
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
					start := p.pos
					for p.pos < len(p.s) && p.s[p.pos] != ',' && p.s[p.pos] != ']' {
						p.advance()
					}
					row = append(row, strings.TrimSpace(p.s[start:p.pos]))
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

func setScalar(v values.Value, s types.ScalarKind, idx int, text string) error {
	switch s {
	case types.ScalarFloat:
		var f float64
		switch text {
		case "NaN":
			f = math.NaN()
		case "Infinity":
			f = math.Inf(1)
		case "-Infinity":
			f = math.Inf(-1)
		default:
			var err error
			f, err = strconv.ParseFloat(text, 64)
			if err != nil {
				return err
			}
		}
		values.SetFloat(v, idx, f)
	case types.ScalarInteger:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return err
		}
		values.SetInteger(v, idx, n)
	case types.ScalarBoolean:
		values.SetBoolean(v, idx, text == "true")
	}
	return nil
}
