package compactjson

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
)

// Marshal returns the minified JSON encoding of v with object keys sorted.
func Marshal(v any) ([]byte, error) {
	return MarshalWithOptions(v, DefaultOptions())
}

// MarshalIndent returns the compact, human-readable encoding of v using an
// indent increment of indent spaces: simple substructures inline, complex
// ones on indented lines, short blocks collapsed back onto one line.
func MarshalIndent(v any, indent int) ([]byte, error) {
	return MarshalWithOptions(v, IndentOptions(indent))
}

// MarshalWithOptions works like Dumps but returns bytes.
func MarshalWithOptions(v any, opts Options) ([]byte, error) {
	s, err := Dumps(v, opts)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Dumps serializes v according to opts. With opts.Indent > 0 and opts.Compact
// the compact algorithm is used; otherwise v is written by the standard
// encoder. Either way, values outside the JSON model go through
// opts.Fallback first. On error no partial output is returned.
func Dumps(v any, opts Options) (string, error) {
	tree, err := newNormalizer(opts).value(v, 0)
	if err != nil {
		return "", fmt.Errorf("compactjson: failed to serialize value: %w", err)
	}

	if opts.Indent <= 0 || !opts.Compact {
		out, err := standard(tree, opts)
		if err != nil {
			return "", fmt.Errorf("compactjson: failed to serialize value: %w", err)
		}
		return out, nil
	}

	r := &renderer{
		increment: opts.Indent,
		threshold: opts.simpleThreshold(),
		width:     opts.oneLineMaxWidth(),
		logger:    opts.logger(),
	}
	out, err := r.render(tree, opts.Indent, true)
	if err != nil {
		return "", fmt.Errorf("compactjson: failed to serialize value: %w", err)
	}
	return out, nil
}

// standard writes a normalized tree with go-json: minified, or indented when
// opts.Indent > 0. Map keys are sorted unless opts.SortKeys is false.
func standard(tree any, opts Options) (string, error) {
	if opts.SortKeys && opts.Indent <= 0 {
		// Identical to go-json's output and avoids a second walk.
		return renderInline(tree)
	}

	encOpts := []gojson.EncodeOptionFunc{gojson.DisableHTMLEscape()}
	if !opts.SortKeys {
		encOpts = append(encOpts, gojson.UnorderedMap())
	}

	var (
		b   []byte
		err error
	)
	if opts.Indent > 0 {
		b, err = gojson.MarshalIndentWithOption(tree, "", strings.Repeat(" ", opts.Indent), encOpts...)
	} else {
		b, err = gojson.MarshalWithOption(tree, encOpts...)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Loads parses JSON text with go-json. Numbers are decoded as json.Number so
// integers survive a Loads/Dumps round trip unchanged.
func Loads(data []byte) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("compactjson: failed to parse JSON: %w", err)
	}
	if !gojson.Valid(data) {
		return nil, errors.New("compactjson: failed to parse JSON: unexpected data after top-level value")
	}
	return v, nil
}

// Unmarshal is a pass-through to go-json's Unmarshal.
func Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}
