package compactjson

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// Set is an unordered collection of scalar values. It is serialized as an
// array whose elements are sorted in their natural order (numeric for numbers,
// lexicographic for strings, false before true). Elements must be comparable
// scalars of one kind; mixing kinds is a caller error reported as ErrMixedSet.
type Set map[any]struct{}

// NewSet returns a Set holding elems.
func NewSet(elems ...any) Set {
	s := make(Set, len(elems))
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Add inserts v into the set.
func (s Set) Add(v any) {
	s[v] = struct{}{}
}

// Len returns the number of elements.
func (s Set) Len() int {
	return len(s)
}

// Path is a filesystem path embedded in a value tree. It has no JSON
// representation of its own and is always written as its string form.
type Path string

// Number is a JSON number literal. The serializer normalizes every numeric
// input into a Number, so inline rendering writes literals verbatim.
type Number string

// MarshalJSON writes the literal unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n), nil
}

// float returns the literal's value as a float64 for ordering.
func (n Number) float() float64 {
	f, _ := strconv.ParseFloat(string(n), 64)
	return f
}

// validNumber reports whether s is a JSON number literal with no
// surrounding whitespace.
func validNumber(s string) bool {
	if s == "" {
		return false
	}
	first, last := s[0], s[len(s)-1]
	if first != '-' && (first < '0' || first > '9') {
		return false
	}
	if last < '0' || last > '9' {
		return false
	}
	return gojson.Valid([]byte(s))
}

// numberLiteral matches json.Number from both encoding/json and go-json.
type numberLiteral interface {
	String() string
	Float64() (float64, error)
	Int64() (int64, error)
}

var (
	jsonMarshalerType = reflect.TypeFor[gojson.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// normalizer converts arbitrary Go values into the closed value model used by
// the renderers: nil, bool, Number, string, []any and map[string]any. All
// foreign values pass through the one fallback policy here, so the inline and
// block renderers never have to deal with them.
type normalizer struct {
	fallback FallbackPolicy
	maxDepth int
	logger   *slog.Logger
}

func newNormalizer(opts Options) *normalizer {
	return &normalizer{
		fallback: opts.Fallback,
		maxDepth: opts.maxDepth(),
		logger:   opts.logger(),
	}
}

func (n *normalizer) value(v any, depth int) (any, error) {
	if depth > n.maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrMaxDepth, n.maxDepth)
	}

	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return val, nil
	case string:
		return val, nil
	case Number:
		if !validNumber(string(val)) {
			return n.foreign(reflect.ValueOf(v))
		}
		return val, nil
	case int:
		return Number(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return Number(strconv.FormatInt(val, 10)), nil
	case float64:
		return n.float(val, 64)
	case Path:
		return string(val), nil
	case Set:
		return n.set(val, depth)
	case []any:
		return n.slice(reflect.ValueOf(val), depth)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			ne, err := n.value(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = ne
		}
		return out, nil
	case numberLiteral:
		if !validNumber(val.String()) {
			return n.foreign(reflect.ValueOf(v))
		}
		return Number(val.String()), nil
	}

	return n.reflectValue(reflect.ValueOf(v), depth)
}

func (n *normalizer) reflectValue(rv reflect.Value, depth int) (any, error) {
	t := rv.Type()
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
			return nil, nil
		}
		return n.bridge(rv.Interface(), depth)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32:
		return n.float(rv.Float(), 32)
	case reflect.Float64:
		return n.float(rv.Float(), 64)
	case reflect.String:
		return rv.String(), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return n.value(rv.Elem().Interface(), depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes()), nil
		}
		return n.slice(rv, depth)
	case reflect.Array:
		return n.slice(rv, depth)
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return n.mapValue(rv, depth)
	case reflect.Struct:
		return n.bridge(rv.Interface(), depth)
	}
	return n.foreign(rv)
}

func (n *normalizer) float(f float64, bits int) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return n.foreign(reflect.ValueOf(f))
	}
	var (
		b   []byte
		err error
	)
	if bits == 32 {
		b, err = gojson.Marshal(float32(f))
	} else {
		b, err = gojson.Marshal(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return Number(b), nil
}

func (n *normalizer) slice(rv reflect.Value, depth int) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		e, err := n.value(rv.Index(i).Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (n *normalizer) mapValue(rv reflect.Value, depth int) (any, error) {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		e, err := n.value(iter.Value().Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

// mapKey follows encoding/json: string kinds are used as-is, integer kinds
// are formatted in decimal, TextMarshalers use their text form.
func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		if err != nil {
			return "", fmt.Errorf("%w: map key: %v", ErrUnsupportedValue, err)
		}
		return string(b), nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("%w: map key of type %s", ErrUnsupportedValue, k.Type())
}

// bridge runs values with their own JSON encoding (structs, Marshalers)
// through go-json and normalizes the decoded result.
func (n *normalizer) bridge(v any, depth int) (any, error) {
	b, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, v, err)
	}
	dec := gojson.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, v, err)
	}
	return n.value(decoded, depth)
}

func (n *normalizer) foreign(rv reflect.Value) (any, error) {
	if n.fallback != FallbackDebugString {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, rv.Type())
	}
	s := debugString(rv)
	n.logger.Debug("compactjson: foreign value replaced", "type", rv.Type().String(), "replacement", s)
	return s, nil
}

// debugString renders "<type: repr>". Kinds whose default formatting is a
// memory address are represented by their kind so output stays deterministic.
func debugString(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("<%s: %s>", rv.Type(), rv.Kind())
	}
	return fmt.Sprintf("<%s: %v>", rv.Type(), rv.Interface())
}

// set normalizes the elements of s and returns them as a sorted array with
// duplicate literals removed.
func (n *normalizer) set(s Set, depth int) (any, error) {
	elems := make([]any, 0, len(s))
	for e := range s {
		ne, err := n.value(e, depth+1)
		if err != nil {
			return nil, err
		}
		elems = append(elems, ne)
	}
	if len(elems) == 0 {
		return elems, nil
	}

	var less func(a, b any) bool
	switch elems[0].(type) {
	case Number:
		less = func(a, b any) bool {
			fa, fb := a.(Number).float(), b.(Number).float()
			if fa != fb {
				return fa < fb
			}
			return a.(Number) < b.(Number)
		}
	case string:
		less = func(a, b any) bool { return a.(string) < b.(string) }
	case bool:
		less = func(a, b any) bool { return !a.(bool) && b.(bool) }
	default:
		return nil, fmt.Errorf("%w (element type %T)", ErrMixedSet, elems[0])
	}
	first := reflect.TypeOf(elems[0])
	for _, e := range elems[1:] {
		if reflect.TypeOf(e) != first {
			return nil, fmt.Errorf("%w (%T and %T)", ErrMixedSet, elems[0], e)
		}
	}

	sort.Slice(elems, func(i, j int) bool { return less(elems[i], elems[j]) })
	out := elems[:1]
	for _, e := range elems[1:] {
		if e != out[len(out)-1] {
			out = append(out, e)
		}
	}
	return out, nil
}
