package compactjson

import (
	"bytes"
	"fmt"
	"io"

	"github.com/amterp/color"
)

// SprintfFuncer is an interface wrapper around the `color` package's functionality.
// It defines a method that returns a function suitable for colorizing strings
// using fmt.Sprintf-style formatting. This allows different color settings
// (defined by types implementing this interface, like color.Color) to be used
// interchangeably by the Formatter.
type SprintfFuncer interface {
	SprintfFunc() func(format string, a ...interface{}) string
}

// Default color settings using the `color` package.
// Users can override these by creating their own Formatter instance.
var (
	// DefaultSpaceColor is used for indentation and line breaks. Default is no color.
	DefaultSpaceColor = color.New()
	// DefaultCommaColor is used for ','. Default is bold.
	DefaultCommaColor = color.New(color.Bold)
	// DefaultColonColor is used for ':'. Default is bold.
	DefaultColonColor = color.New(color.Bold)
	// DefaultObjectColor is used for '{' and '}'. Default is bold.
	DefaultObjectColor = color.New(color.Bold)
	// DefaultArrayColor is used for '[' and ']'. Default is bold.
	DefaultArrayColor = color.New(color.Bold)
	// DefaultFieldQuoteColor is used for the quotes around object keys. Default is bold blue.
	DefaultFieldQuoteColor = color.New(color.FgBlue, color.Bold)
	// DefaultFieldColor is used for the text of object keys. Default is bold blue.
	DefaultFieldColor = color.New(color.FgBlue, color.Bold)
	// DefaultHintColor is used for the editor indentation hint entry. Default is faint.
	DefaultHintColor = color.New(color.Faint)
	// DefaultStringQuoteColor is used for the quotes around string values. Default is green.
	DefaultStringQuoteColor = color.New(color.FgGreen)
	// DefaultStringColor is used for the text of string values. Default is green.
	DefaultStringColor = color.New(color.FgGreen)
	// DefaultTrueColor is used for 'true'. Default is no color.
	DefaultTrueColor = color.New()
	// DefaultFalseColor is used for 'false'. Default is no color.
	DefaultFalseColor = color.New()
	// DefaultNumberColor is used for numbers. Default is no color.
	DefaultNumberColor = color.New()
	// DefaultNullColor is used for 'null'. Default is bold black (often appears gray).
	DefaultNullColor = color.New(color.FgBlack, color.Bold)
)

// Formatter holds the colors used by Colorize. A zero value Formatter{} uses
// all the default colors; any nil field falls back to its Default*Color.
type Formatter struct {
	SpaceColor       SprintfFuncer
	CommaColor       SprintfFuncer
	ColonColor       SprintfFuncer
	ObjectColor      SprintfFuncer
	ArrayColor       SprintfFuncer
	FieldQuoteColor  SprintfFuncer
	FieldColor       SprintfFuncer
	HintColor        SprintfFuncer
	StringQuoteColor SprintfFuncer
	StringColor      SprintfFuncer
	TrueColor        SprintfFuncer
	FalseColor       SprintfFuncer
	NumberColor      SprintfFuncer
	NullColor        SprintfFuncer
}

// NewFormatter creates a Formatter that uses the default colors.
func NewFormatter() *Formatter {
	return &Formatter{}
}

func pick(c, def SprintfFuncer) func(format string, a ...interface{}) string {
	if c != nil {
		return c.SprintfFunc()
	}
	return def.SprintfFunc()
}

// palette is a Formatter resolved into ready-to-call print functions.
type palette struct {
	space, comma, colon, object, array                func(string, ...interface{}) string
	fieldQuote, field, hint                           func(string, ...interface{}) string
	stringQuote, str, trueLit, falseLit, number, null func(string, ...interface{}) string
}

func (f *Formatter) palette() *palette {
	return &palette{
		space:       pick(f.SpaceColor, DefaultSpaceColor),
		comma:       pick(f.CommaColor, DefaultCommaColor),
		colon:       pick(f.ColonColor, DefaultColonColor),
		object:      pick(f.ObjectColor, DefaultObjectColor),
		array:       pick(f.ArrayColor, DefaultArrayColor),
		fieldQuote:  pick(f.FieldQuoteColor, DefaultFieldQuoteColor),
		field:       pick(f.FieldColor, DefaultFieldColor),
		hint:        pick(f.HintColor, DefaultHintColor),
		stringQuote: pick(f.StringQuoteColor, DefaultStringQuoteColor),
		str:         pick(f.StringColor, DefaultStringColor),
		trueLit:     pick(f.TrueColor, DefaultTrueColor),
		falseLit:    pick(f.FalseColor, DefaultFalseColor),
		number:      pick(f.NumberColor, DefaultNumberColor),
		null:        pick(f.NullColor, DefaultNullColor),
	}
}

// Colorize writes src, which must be valid JSON text, to dst with ANSI
// colors added. Unlike a re-formatter it keeps the layout of src untouched,
// so the line structure chosen by the compact renderer survives. Nothing is
// written if src is malformed.
func (f *Formatter) Colorize(dst io.Writer, src []byte) error {
	var buf bytes.Buffer
	cs := &colorState{p: f.palette(), src: src, out: &buf}
	if err := cs.run(); err != nil {
		return fmt.Errorf("compactjson: failed to colorize JSON: %w", err)
	}
	_, err := dst.Write(buf.Bytes())
	return err
}

// colorState scans already formatted JSON text token by token.
type colorState struct {
	p   *palette
	src []byte
	pos int
	out *bytes.Buffer
	// hintDone is set once the first key of the document has been seen, so
	// only a leading "_" entry is treated as the editor hint.
	hintDone bool
}

func (cs *colorState) emit(fn func(string, ...interface{}) string, s string) {
	cs.out.WriteString(fn("%s", s))
}

func (cs *colorState) run() error {
	for cs.pos < len(cs.src) {
		c := cs.src[cs.pos]
		switch {
		case c == ' ' || c == '\n' || c == '\t' || c == '\r':
			start := cs.pos
			for cs.pos < len(cs.src) && isSpace(cs.src[cs.pos]) {
				cs.pos++
			}
			cs.emit(cs.p.space, string(cs.src[start:cs.pos]))
		case c == '{' || c == '}':
			cs.emit(cs.p.object, string(c))
			cs.pos++
		case c == '[' || c == ']':
			cs.emit(cs.p.array, string(c))
			cs.pos++
		case c == ',':
			cs.emit(cs.p.comma, ",")
			cs.pos++
		case c == ':':
			cs.emit(cs.p.colon, ":")
			cs.pos++
		case c == '"':
			if err := cs.str(); err != nil {
				return err
			}
		case c == '-' || (c >= '0' && c <= '9'):
			start := cs.pos
			for cs.pos < len(cs.src) && isNumberByte(cs.src[cs.pos]) {
				cs.pos++
			}
			cs.emit(cs.p.number, string(cs.src[start:cs.pos]))
		default:
			if err := cs.literal(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cs *colorState) str() error {
	start := cs.pos
	cs.pos++
	for {
		if cs.pos >= len(cs.src) {
			return fmt.Errorf("unterminated string at offset %d", start)
		}
		c := cs.src[cs.pos]
		if c == '\\' {
			cs.pos += 2
			continue
		}
		cs.pos++
		if c == '"' {
			break
		}
	}
	body := string(cs.src[start+1 : cs.pos-1])

	// A string followed by a colon is an object key.
	next := cs.pos
	for next < len(cs.src) && isSpace(cs.src[next]) {
		next++
	}
	isKey := next < len(cs.src) && cs.src[next] == ':'

	switch {
	case isKey && !cs.hintDone && body == IndentHintKey:
		cs.hintDone = true
		cs.hintEntry(start)
	case isKey:
		cs.hintDone = true
		cs.emit(cs.p.fieldQuote, `"`)
		cs.emit(cs.p.field, body)
		cs.emit(cs.p.fieldQuote, `"`)
	default:
		cs.emit(cs.p.stringQuote, `"`)
		cs.emit(cs.p.str, body)
		cs.emit(cs.p.stringQuote, `"`)
	}
	return nil
}

// hintEntry colors the whole `"_":"..."` entry with the hint color when the
// value is a string; otherwise only the key is written.
func (cs *colorState) hintEntry(keyStart int) {
	end := cs.pos
	if end+1 < len(cs.src) && cs.src[end] == ':' && cs.src[end+1] == '"' {
		i := end + 2
		for i < len(cs.src) && cs.src[i] != '"' {
			if cs.src[i] == '\\' {
				i++
			}
			i++
		}
		if i < len(cs.src) {
			cs.pos = i + 1
			cs.emit(cs.p.hint, string(cs.src[keyStart:cs.pos]))
			return
		}
	}
	cs.emit(cs.p.hint, string(cs.src[keyStart:end]))
}

func (cs *colorState) literal() error {
	for _, lit := range []struct {
		text string
		fn   func(string, ...interface{}) string
	}{
		{"true", cs.p.trueLit},
		{"false", cs.p.falseLit},
		{"null", cs.p.null},
	} {
		if bytes.HasPrefix(cs.src[cs.pos:], []byte(lit.text)) {
			cs.emit(lit.fn, lit.text)
			cs.pos += len(lit.text)
			return nil
		}
	}
	return fmt.Errorf("unexpected character %q at offset %d", cs.src[cs.pos], cs.pos)
}

// isSpace reports whether c is JSON insignificant whitespace.
func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// isNumberByte reports whether c can appear in a JSON number literal.
func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E'
}
