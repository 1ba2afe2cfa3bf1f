// Package pydata reads data files written as Python literals: dicts, lists,
// tuples, sets, strings, numbers, True, False and None, optionally preceded
// by a single "name =" assignment. The text is parsed structurally and never
// executed.
//
// Values map onto the types understood by compactjson: dicts become
// map[string]any, lists and tuples []any, sets compactjson.Set, integers
// int64 (json.Number when they do not fit), floats float64, byte strings
// []byte.
package pydata

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/amterp/compactjson"
)

// MaxDepth bounds container nesting.
const MaxDepth = 10000

// SyntaxError reports malformed input with a 1-based line and column.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pydata: %d:%d: %s", e.Line, e.Column, e.Msg)
}

// Parse parses text into a value tree.
func Parse(text string) (any, error) {
	p := &parser{src: text}
	p.skip()
	p.assignment()
	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q after value", p.src[p.pos])
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	line := 1 + strings.Count(p.src[:p.pos], "\n")
	lineStart := strings.LastIndexByte(p.src[:p.pos], '\n') + 1
	return &SyntaxError{
		Line:   line,
		Column: utf8.RuneCountInString(p.src[lineStart:p.pos]) + 1,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// peek returns the current byte, or 0 at end of input.
func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

// eof reports whether all input has been consumed.
func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

// skip advances past whitespace, comments and line continuations.
func (p *parser) skip() {
	for !p.eof() {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			p.pos++
		case c == '#':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '\n':
			p.pos += 2
		default:
			return
		}
	}
}

// assignment consumes a leading "name =" if there is one.
func (p *parser) assignment() {
	start := p.pos
	if !isIdentStart(p.peek()) {
		return
	}
	name := p.ident()
	p.skip()
	if p.peek() == '=' && !strings.HasPrefix(p.src[p.pos:], "==") && !isKeyword(name) {
		p.pos++
		p.skip()
		return
	}
	p.pos = start
}

// ident consumes an identifier.
func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// expect skips blanks and consumes c, or fails at the current position.
func (p *parser) expect(c byte) error {
	p.skip()
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, found end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) value(depth int) (any, error) {
	if depth > MaxDepth {
		return nil, p.errorf("nesting deeper than %d", MaxDepth)
	}
	p.skip()
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}

	c := p.peek()
	switch {
	case c == '{':
		return p.dictOrSet(depth)
	case c == '[':
		p.pos++
		return p.sequence(']', depth)
	case c == '(':
		return p.tuple(depth)
	case c == '\'' || c == '"' || p.stringPrefix() > 0:
		return p.stringValue()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		start := p.pos
		switch name := p.ident(); name {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		default:
			p.pos = start
			return nil, p.errorf("unsupported name %q", name)
		}
	}
	return nil, p.errorf("unexpected %q", c)
}

// sequence parses comma separated values up to the closing delimiter; the
// opening delimiter has already been consumed.
func (p *parser) sequence(closing byte, depth int) ([]any, error) {
	out := []any{}
	for {
		p.skip()
		if p.peek() == closing {
			p.pos++
			return out, nil
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skip()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if err := p.expect(closing); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// tuple distinguishes a parenthesized value from a tuple: only a comma makes
// a tuple.
func (p *parser) tuple(depth int) (any, error) {
	p.pos++
	p.skip()
	if p.peek() == ')' {
		p.pos++
		return []any{}, nil
	}
	first, err := p.value(depth + 1)
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.peek() == ')' {
		p.pos++
		return first, nil
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	rest, err := p.sequence(')', depth)
	if err != nil {
		return nil, err
	}
	return append([]any{first}, rest...), nil
}

func (p *parser) dictOrSet(depth int) (any, error) {
	p.pos++
	p.skip()
	if p.peek() == '}' {
		p.pos++
		return map[string]any{}, nil
	}

	keyPos := p.pos
	first, err := p.value(depth + 1)
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.peek() != ':' {
		return p.set(first, keyPos, depth)
	}

	out := map[string]any{}
	key, val := first, any(nil)
	for {
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		if val, err = p.value(depth + 1); err != nil {
			return nil, err
		}
		k, err := p.keyString(key, keyPos)
		if err != nil {
			return nil, err
		}
		out[k] = val

		p.skip()
		if p.peek() != ',' {
			if err := p.expect('}'); err != nil {
				return nil, err
			}
			return out, nil
		}
		p.pos++
		p.skip()
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		keyPos = p.pos
		if key, err = p.value(depth + 1); err != nil {
			return nil, err
		}
	}
}

func (p *parser) set(first any, firstPos, depth int) (any, error) {
	elems := []any{first}
	positions := []int{firstPos}
	p.skip()
	if p.peek() == ',' {
		p.pos++
		for {
			p.skip()
			if p.peek() == '}' {
				break
			}
			positions = append(positions, p.pos)
			v, err := p.value(depth + 1)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
			p.skip()
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}

	s := compactjson.NewSet()
	for i, e := range elems {
		switch e.(type) {
		case nil, bool, int64, float64, string, json.Number:
			s.Add(e)
		default:
			p.pos = positions[i]
			return nil, p.errorf("unhashable set element of type %T", e)
		}
	}
	return s, nil
}

// keyString converts a dict key the way a JSON encoder would.
func (p *parser) keyString(k any, pos int) (string, error) {
	switch key := k.(type) {
	case string:
		return key, nil
	case int64:
		return strconv.FormatInt(key, 10), nil
	case json.Number:
		return key.String(), nil
	case float64:
		return floatRepr(key), nil
	case bool:
		return strconv.FormatBool(key), nil
	case nil:
		return "null", nil
	}
	p.pos = pos
	return "", p.errorf("unsupported dict key of type %T", k)
}

// floatRepr formats f the way Python's repr does for the common cases.
func floatRepr(f float64) string {
	abs := math.Abs(f)
	switch {
	case abs == math.Trunc(abs) && abs < 1e16:
		return strconv.FormatFloat(f, 'f', 0, 64) + ".0"
	case abs >= 1e-4 && abs < 1e16:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'e', -1, 64)
}

func (p *parser) number() (any, error) {
	start := p.pos
	neg := false
	if c := p.peek(); c == '-' || c == '+' {
		neg = c == '-'
		p.pos++
		p.skip()
	}
	litStart := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if isIdentPart(c) || c == '.' {
			p.pos++
			continue
		}
		// Exponent sign.
		if (c == '-' || c == '+') && p.pos > litStart && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E') &&
			!isHexPrefixed(p.src[litStart:p.pos]) {
			p.pos++
			continue
		}
		break
	}
	lit := strings.ReplaceAll(p.src[litStart:p.pos], "_", "")
	if lit == "" {
		p.pos = start
		return nil, p.errorf("expected a number")
	}

	if !isHexPrefixed(lit) && strings.ContainsAny(lit, ".eE") {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.pos = start
			return nil, p.errorf("invalid number %q", p.src[litStart:p.pos])
		}
		if neg {
			f = -f
		}
		return f, nil
	}

	base := 10
	if isHexPrefixed(lit) {
		base = 0
	} else if len(lit) > 1 && strings.Trim(lit, "0") != "" && lit[0] == '0' {
		p.pos = start
		return nil, p.errorf("leading zeros in decimal literal %q", lit)
	}
	n, ok := new(big.Int).SetString(lit, base)
	if !ok {
		p.pos = start
		return nil, p.errorf("invalid number %q", p.src[litStart:p.pos])
	}
	if neg {
		n.Neg(n)
	}
	if n.IsInt64() {
		return n.Int64(), nil
	}
	return json.Number(n.String()), nil
}

func isHexPrefixed(lit string) bool {
	if len(lit) < 2 || lit[0] != '0' {
		return false
	}
	switch lit[1] {
	case 'x', 'X', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

// stringPrefix returns the length of a string prefix such as r, b or rb at
// the current position, or 0 when no string literal starts here.
func (p *parser) stringPrefix() int {
	for n := 1; n <= 2; n++ {
		if p.pos+n >= len(p.src) {
			return 0
		}
		prefix := strings.ToLower(p.src[p.pos : p.pos+n])
		if strings.Trim(prefix, "rbu") != "" {
			return 0
		}
		if q := p.src[p.pos+n]; q == '\'' || q == '"' {
			switch prefix {
			case "r", "b", "u", "rb", "br":
				return n
			}
			return 0
		}
	}
	return 0
}

// stringValue parses one or more adjacent string literals and concatenates them.
func (p *parser) stringValue() (any, error) {
	var (
		sb      strings.Builder
		isBytes bool
		count   int
	)
	for {
		p.skip()
		if p.eof() || (p.peek() != '\'' && p.peek() != '"' && p.stringPrefix() == 0) {
			break
		}
		s, b, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		if count > 0 && b != isBytes {
			return nil, p.errorf("cannot mix bytes and nonbytes literals")
		}
		isBytes = b
		count++
		sb.WriteString(s)
	}
	if isBytes {
		return []byte(sb.String()), nil
	}
	return sb.String(), nil
}

func (p *parser) stringLiteral() (string, bool, error) {
	start := p.pos
	n := p.stringPrefix()
	prefix := strings.ToLower(p.src[p.pos : p.pos+n])
	raw := strings.Contains(prefix, "r")
	isBytes := strings.Contains(prefix, "b")
	p.pos += n

	q := p.src[p.pos]
	delim := string(q)
	if strings.HasPrefix(p.src[p.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	p.pos += len(delim)

	var sb strings.Builder
	for {
		if p.eof() {
			p.pos = start
			return "", false, p.errorf("unterminated string literal")
		}
		if strings.HasPrefix(p.src[p.pos:], delim) {
			p.pos += len(delim)
			return sb.String(), isBytes, nil
		}
		c := p.src[p.pos]
		if c == '\n' && len(delim) == 1 {
			p.pos = start
			return "", false, p.errorf("unterminated string literal")
		}
		if c != '\\' {
			sb.WriteByte(c)
			p.pos++
			continue
		}
		if p.pos+1 >= len(p.src) {
			p.pos = start
			return "", false, p.errorf("unterminated string literal")
		}
		if raw {
			// A backslash still keeps the next character from closing the string.
			sb.WriteString(p.src[p.pos : p.pos+2])
			p.pos += 2
			continue
		}
		if err := p.escape(&sb, isBytes); err != nil {
			return "", false, err
		}
	}
}

var simpleEscapes = map[byte]string{
	'\n': "",
	'\\': "\\",
	'\'': "'",
	'"':  "\"",
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'v':  "\v",
}

// escape decodes the escape sequence at p.pos (which holds the backslash).
func (p *parser) escape(sb *strings.Builder, isBytes bool) error {
	escPos := p.pos
	c := p.src[p.pos+1]
	if s, ok := simpleEscapes[c]; ok {
		sb.WriteString(s)
		p.pos += 2
		return nil
	}

	switch {
	case c >= '0' && c <= '7':
		end := p.pos + 1
		for end < len(p.src) && end < p.pos+4 && p.src[end] >= '0' && p.src[end] <= '7' {
			end++
		}
		v, _ := strconv.ParseUint(p.src[p.pos+1:end], 8, 32)
		p.pos = end
		p.writeCode(sb, rune(v), isBytes)
		return nil
	case c == 'x':
		return p.hexEscape(sb, 2, isBytes, escPos)
	case (c == 'u' || c == 'U') && !isBytes:
		digits := 4
		if c == 'U' {
			digits = 8
		}
		return p.hexEscape(sb, digits, false, escPos)
	case c == 'N' && !isBytes:
		return p.errorf("named unicode escapes are not supported")
	}
	// Unknown escapes are kept verbatim.
	sb.WriteString(p.src[p.pos : p.pos+2])
	p.pos += 2
	return nil
}

func (p *parser) hexEscape(sb *strings.Builder, digits int, isBytes bool, escPos int) error {
	start := p.pos + 2
	end := start + digits
	if end > len(p.src) {
		return p.errorf("truncated \\%c escape", p.src[p.pos+1])
	}
	v, err := strconv.ParseUint(p.src[start:end], 16, 32)
	if err != nil || v > utf8.MaxRune {
		p.pos = escPos
		return p.errorf("invalid \\%c escape", p.src[escPos+1])
	}
	p.pos = end
	p.writeCode(sb, rune(v), isBytes)
	return nil
}

// writeCode writes a decoded code: a raw byte in a bytes literal, a code point
// otherwise.
func (p *parser) writeCode(sb *strings.Builder, r rune, isBytes bool) {
	if isBytes {
		sb.WriteByte(byte(r))
		return
	}
	sb.WriteRune(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isKeyword(name string) bool {
	switch name {
	case "True", "False", "None":
		return true
	}
	return false
}
