// Package compactjson writes JSON that is more compact than a plain pretty
// printer but still easy to read and diff.
//
// Containers whose children are all scalars are written inline on one line.
// Containers holding other containers are broken into indented lines, and
// any such block is folded back onto one line when it is shorter than
// Options.OneLineMaxWidth characters. Object keys are always sorted, sets are
// written as sorted arrays, and a multi-line top-level object starts with an
// editor hint entry:
//
//	{ "_":"-*- js-indent-level: 2 -*-",
//	  "points": [
//	    {"x":1,"y":2},
//	    ...
//	  ],
//	  "title": "example"
//	}
//
// Basic usage:
//
//	out, err := compactjson.MarshalIndent(v, 2)
//
// Path values are written as strings. Values outside the JSON model
// (non-finite floats, funcs, channels) are handled by Options.Fallback:
// FallbackError fails the call with ErrUnsupportedValue, FallbackDebugString
// substitutes a "<type: repr>" string. Parsing is delegated to github.com/goccy/go-json (see Loads).
package compactjson
