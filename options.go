package compactjson

import (
	"errors"
	"fmt"
	"log/slog"
)

// Default values used by DefaultOptions and substituted for zero-valued
// fields of an Options record.
const (
	// DefaultIndent is the indent increment used by MarshalIndent callers that
	// have no preference. Options.Indent itself defaults to 0 (no indentation).
	DefaultIndent = 2
	// DefaultSimpleThreshold is the number of keys at which an object stops
	// being eligible for inline rendering.
	DefaultSimpleThreshold = 16
	// DefaultOneLineMaxWidth is the width (in characters) below which a
	// multi-line block is collapsed back onto a single line.
	DefaultOneLineMaxWidth = 200
	// DefaultMaxDepth matches the nesting limit of the JSON decoders, so any
	// decoded document can be re-serialized.
	DefaultMaxDepth = 10000
)

// Sentinel errors returned (wrapped) by the serializer.
var (
	// ErrUnsupportedValue is returned when a value has no JSON representation
	// and the fallback policy is FallbackError, or when a map key cannot be
	// converted to a string.
	ErrUnsupportedValue = errors.New("unsupported value")
	// ErrMixedSet is returned when a Set holds elements that have no common
	// natural order (mixed types, or containers). It wraps ErrUnsupportedValue.
	ErrMixedSet = fmt.Errorf("%w: set elements are not mutually ordered", ErrUnsupportedValue)
	// ErrMaxDepth is returned when the value nests deeper than Options.MaxDepth.
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
)

// FallbackPolicy selects what happens to a value outside the JSON value model.
type FallbackPolicy int

const (
	// FallbackError fails the whole call with ErrUnsupportedValue.
	FallbackError FallbackPolicy = iota
	// FallbackDebugString replaces the value with a "<type: repr>" string.
	FallbackDebugString
)

// String returns the policy name as accepted by ParseFallbackPolicy.
func (p FallbackPolicy) String() string {
	switch p {
	case FallbackDebugString:
		return "debug"
	default:
		return "error"
	}
}

// ParseFallbackPolicy converts "error" or "debug" into a FallbackPolicy.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch s {
	case "", "error":
		return FallbackError, nil
	case "debug":
		return FallbackDebugString, nil
	}
	return FallbackError, fmt.Errorf("compactjson: unknown fallback policy %q", s)
}

// Options configures a single serialization call. It is a plain value:
// callers start from DefaultOptions and override fields, and the serializer
// never modifies it.
type Options struct {
	// Indent is the indent increment in spaces. A value <= 0 disables
	// indentation and selects the standard minified encoding.
	Indent int

	// Compact selects the block/inline/collapse algorithm. When false the
	// standard encoding (indented when Indent > 0) is used instead.
	Compact bool

	// SortKeys applies to the standard encoding only; the compact algorithm
	// always emits object keys in lexicographic order.
	SortKeys bool

	// SimpleThreshold is the object key count at which an object is no longer
	// considered simple. Zero means DefaultSimpleThreshold.
	SimpleThreshold int

	// OneLineMaxWidth is the collapse width. Zero means DefaultOneLineMaxWidth,
	// a negative value disables collapsing.
	OneLineMaxWidth int

	// Fallback is applied to every value outside the JSON value model.
	Fallback FallbackPolicy

	// MaxDepth bounds the nesting depth. Zero means DefaultMaxDepth.
	MaxDepth int

	// Logger receives debug diagnostics. A nil Logger discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the options used by Marshal: no indentation, compact
// algorithm enabled (it takes effect once Indent is set), sorted keys.
func DefaultOptions() Options {
	return Options{
		Indent:          0,
		Compact:         true,
		SortKeys:        true,
		SimpleThreshold: DefaultSimpleThreshold,
		OneLineMaxWidth: DefaultOneLineMaxWidth,
		Fallback:        FallbackError,
		MaxDepth:        DefaultMaxDepth,
	}
}

// IndentOptions returns DefaultOptions with the given indent increment.
func IndentOptions(indent int) Options {
	opts := DefaultOptions()
	opts.Indent = indent
	return opts
}

func (o Options) simpleThreshold() int {
	if o.SimpleThreshold <= 0 {
		return DefaultSimpleThreshold
	}
	return o.SimpleThreshold
}

func (o Options) oneLineMaxWidth() int {
	if o.OneLineMaxWidth == 0 {
		return DefaultOneLineMaxWidth
	}
	return o.OneLineMaxWidth
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
