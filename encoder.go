package compactjson

import (
	"bytes"
	"io"
)

// Encoder writes serialized values to an output stream, one per Encode call,
// each followed by a newline. It mirrors encoding/json.Encoder and optionally
// colorizes its output. An Encoder is not safe for concurrent use.
type Encoder struct {
	w    io.Writer
	opts Options
	f    *Formatter
}

// NewEncoder returns an Encoder writing minified JSON to w with DefaultOptions.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, opts: DefaultOptions()}
}

// SetIndent switches the Encoder to the compact algorithm with the given
// indent increment. An increment <= 0 returns to minified output.
func (enc *Encoder) SetIndent(indent int) {
	enc.opts.Indent = indent
	enc.opts.Compact = true
}

// SetOptions replaces all serialization options.
func (enc *Encoder) SetOptions(opts Options) {
	enc.opts = opts
}

// SetFormatter enables colorized output using f. A nil Formatter disables
// colorization.
func (enc *Encoder) SetFormatter(f *Formatter) {
	enc.f = f
}

// Encode writes the serialization of v followed by a newline. Nothing is
// written if serialization fails.
func (enc *Encoder) Encode(v any) error {
	out, err := Dumps(v, enc.opts)
	if err != nil {
		return err
	}

	if enc.f == nil {
		_, err = io.WriteString(enc.w, out+"\n")
		return err
	}

	var buf bytes.Buffer
	if err := enc.f.Colorize(&buf, []byte(out)); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = enc.w.Write(buf.Bytes())
	return err
}
