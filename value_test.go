package compactjson

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetsAreSorted(t *testing.T) {
	tests := []struct {
		name string
		in   Set
		want string
	}{
		{"ints", NewSet(3, 1, 2), "[1,2,3]"},
		{"mixed numeric kinds", NewSet(10, 2.5, int64(-1), uint8(7)), "[-1,2.5,7,10]"},
		{"equal literals merge", NewSet(1, 1.0), "[1]"},
		{"strings", NewSet("pear", "apple", "fig"), `["apple","fig","pear"]`},
		{"bools", NewSet(true, false), "[false,true]"},
		{"empty", NewSet(), "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, indent(t, tt.in, IndentOptions(2)))
			assert.Equal(t, tt.want, indent(t, tt.in, DefaultOptions()))
		})
	}
}

func TestSetInsideBlock(t *testing.T) {
	v := map[string]any{"tags": NewSet("b", "a"), "nested": []any{[]any{1}}}
	want := "{ \"_\":\"-*- js-indent-level: 2 -*-\",\n" +
		"  \"nested\": [\n" +
		"    [1]\n" +
		"  ],\n" +
		"  \"tags\": [\"a\",\"b\"]\n" +
		"}"
	assert.Equal(t, want, indent(t, v, noCollapse(2)))
}

func TestMixedSetIsCallerError(t *testing.T) {
	for _, s := range []Set{NewSet(1, "a"), NewSet(true, 0), NewSet(nil, 1)} {
		_, err := Dumps(s, IndentOptions(2))
		require.ErrorIs(t, err, ErrMixedSet)
		require.ErrorIs(t, err, ErrUnsupportedValue)
	}
}

func TestPathIsString(t *testing.T) {
	v := map[string]any{"file": Path("/tmp/a.json")}
	assert.Equal(t, `{"file":"/tmp/a.json"}`, indent(t, v, IndentOptions(2)))
}

func TestForeignFallback(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"func", func() {}, `"<func(): func>"`},
		{"chan", make(chan int), `"<chan int: chan>"`},
		{"complex", complex(1, 2), `"<complex128: (1+2i)>"`},
		{"nan", math.NaN(), `"<float64: NaN>"`},
		{"inf", math.Inf(1), `"<float64: +Inf>"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Both the inline and the block path apply the same policy.
			for _, opts := range []Options{IndentOptions(2), DefaultOptions()} {
				opts.Fallback = FallbackError
				_, err := Dumps(map[string]any{"a": []any{[]any{tt.in}}}, opts)
				require.ErrorIs(t, err, ErrUnsupportedValue)

				opts.Fallback = FallbackDebugString
				out, err := Dumps([]any{tt.in}, opts)
				require.NoError(t, err)
				assert.Equal(t, "["+tt.want+"]", out)
			}
		})
	}
}

func TestFallbackIsLogged(t *testing.T) {
	var buf bytes.Buffer
	opts := IndentOptions(2)
	opts.Fallback = FallbackDebugString
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Dumps(complex(0, 1), opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "foreign value replaced")
	assert.Contains(t, buf.String(), "complex128")
}

func TestParseFallbackPolicy(t *testing.T) {
	p, err := ParseFallbackPolicy("debug")
	require.NoError(t, err)
	assert.Equal(t, FallbackDebugString, p)
	assert.Equal(t, "debug", p.String())

	p, err = ParseFallbackPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FallbackError, p)

	_, err = ParseFallbackPolicy("ignore")
	require.Error(t, err)
}

type point struct {
	X int    `json:"x"`
	Y int    `json:"y"`
	L string `json:"label,omitempty"`
}

type level int

func (l level) MarshalText() ([]byte, error) {
	return []byte(strings.Repeat("*", int(l))), nil
}

func TestGoValues(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"struct", point{X: 1, Y: 2}, `{"x":1,"y":2}`},
		{"struct pointer", &point{X: 1, Y: 2, L: "p"}, `{"label":"p","x":1,"y":2}`},
		{"nil pointer", (*point)(nil), "null"},
		{"time", ts, `"2024-05-01T12:00:00Z"`},
		{"text marshaler", level(3), `"***"`},
		{"json.Number", json.Number("12345678901234567890"), "12345678901234567890"},
		{"bytes", []byte("hi"), `"aGk="`},
		{"int keys", map[int]string{2: "b", 10: "a"}, `{"10":"a","2":"b"}`},
		{"text keys", map[level]int{1: 1, 2: 2}, `{"*":1,"**":2}`},
		{"typed slice", []string{"a", "b"}, `["a","b"]`},
		{"array", [2]bool{true, false}, "[true,false]"},
		{"nil map", map[string]int(nil), "null"},
		{"nil slice", []int(nil), "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, indent(t, tt.in, IndentOptions(2)))
		})
	}
}

func TestUnsupportedMapKey(t *testing.T) {
	_, err := Dumps(map[float64]int{1.5: 1}, IndentOptions(2))
	require.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestMaxDepth(t *testing.T) {
	v := []any{[]any{[]any{[]any{1}}}}
	opts := IndentOptions(2)
	opts.MaxDepth = 3
	_, err := Dumps(v, opts)
	require.ErrorIs(t, err, ErrMaxDepth)

	opts.MaxDepth = 4
	_, err = Dumps(v, opts)
	require.NoError(t, err)
}

func TestCallerTreeIsNotModified(t *testing.T) {
	inner := []any{3, 1, 2}
	v := map[string]any{"a": inner, "s": NewSet(2, 1)}
	_, err := Dumps(v, IndentOptions(2))
	require.NoError(t, err)
	assert.Equal(t, []any{3, 1, 2}, inner)
	assert.Equal(t, NewSet(1, 2), v["s"])
}

func TestInvalidNumberLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nan", Number("NaN"), `"<compactjson.Number: NaN>"`},
		{"word", Number("abc"), `"<compactjson.Number: abc>"`},
		{"padded", Number(" 1"), `"<compactjson.Number:  1>"`},
		{"inf", json.Number("Inf"), `"<json.Number: Inf>"`},
		{"underscore", json.Number("1_0"), `"<json.Number: 1_0>"`},
		{"empty", json.Number(""), `"<json.Number: >"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, opts := range []Options{IndentOptions(2), DefaultOptions()} {
				opts.Fallback = FallbackError
				_, err := Dumps(map[string]any{"n": tt.in}, opts)
				require.ErrorIs(t, err, ErrUnsupportedValue)

				opts.Fallback = FallbackDebugString
				out, err := Dumps([]any{tt.in}, opts)
				require.NoError(t, err)
				assert.Equal(t, "["+tt.want+"]", out)
			}
		})
	}
}

func TestValidNumberLiterals(t *testing.T) {
	for _, lit := range []string{"0", "-0", "1.50", "-2.5e-3", "1E+21", "123456789012345678901234"} {
		out, err := Dumps(map[string]any{"n": json.Number(lit)}, DefaultOptions())
		require.NoError(t, err, lit)
		assert.Equal(t, `{"n":`+lit+`}`, out)

		_, err = Loads([]byte(out))
		require.NoError(t, err, lit)
	}
}

func TestPointerCycleHitsMaxDepth(t *testing.T) {
	var p any
	p = &p
	opts := IndentOptions(2)
	opts.MaxDepth = 64
	_, err := Dumps(p, opts)
	require.ErrorIs(t, err, ErrMaxDepth)

	_, err = Dumps(p, IndentOptions(2))
	require.ErrorIs(t, err, ErrMaxDepth)
}

func TestPointersAreFollowed(t *testing.T) {
	n := 7
	pn := &n
	out, err := Dumps(map[string]any{"p": &pn}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, `{"p":7}`, out)
}
