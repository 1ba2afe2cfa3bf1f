package compactjson

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indent(t *testing.T, v any, opts Options) string {
	t.Helper()
	out, err := Dumps(v, opts)
	require.NoError(t, err)
	return out
}

func noCollapse(indent int) Options {
	opts := IndentOptions(indent)
	opts.OneLineMaxWidth = -1
	return opts
}

func TestScalarsMatchMinifiedLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{false, "false"},
		{42, "42"},
		{int8(-3), "-3"},
		{uint64(18446744073709551615), "18446744073709551615"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
		{"plain", `"plain"`},
		{"a<b & \"c\"\n", `"a<b & \"c\"\n"`},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, indent(t, tt.in, IndentOptions(2)))
			assert.Equal(t, tt.want, indent(t, tt.in, DefaultOptions()))
		})
	}
}

func TestStandardPathSortsKeys(t *testing.T) {
	v := map[string]any{"b": 1, "a": 2}

	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(out))

	opts := IndentOptions(2)
	opts.Compact = false
	assert.Equal(t, "{\n  \"a\": 2,\n  \"b\": 1\n}", indent(t, v, opts))
}

func TestStandardPathRoundTrip(t *testing.T) {
	v := map[string]any{
		"a": []any{1.5, "x", nil, true},
		"b": map[string]any{"c": 2.0, "d": []any{}},
	}
	opts := DefaultOptions()
	opts.Compact = false

	out := indent(t, v, opts)
	var got any
	require.NoError(t, Unmarshal([]byte(out), &got))
	assert.Equal(t, v, got)
}

func TestSimpleObjectIsInline(t *testing.T) {
	v := map[string]any{"b": 1, "a": "two", "c": nil}
	assert.Equal(t, `{"a":"two","b":1,"c":null}`, indent(t, v, noCollapse(2)))
}

func TestSimpleThreshold(t *testing.T) {
	obj := func(n int) map[string]any {
		m := make(map[string]any, n)
		for i := range n {
			m[fmt.Sprintf("k%02d", i)] = i
		}
		return m
	}

	below := indent(t, obj(15), noCollapse(2))
	assert.NotContains(t, below, "\n")
	assert.True(t, strings.HasPrefix(below, `{"k00":0,"k01":1,`))

	at := indent(t, obj(16), noCollapse(2))
	lines := strings.Split(at, "\n")
	require.Len(t, lines, 18)
	assert.Equal(t, `{ "_":"-*- js-indent-level: 2 -*-",`, lines[0])
	assert.Equal(t, `  "k00": 0,`, lines[1])
	assert.Equal(t, `  "k15": 15`, lines[16])
	assert.Equal(t, "}", lines[17])

	opts := noCollapse(2)
	opts.SimpleThreshold = 4
	assert.Contains(t, indent(t, obj(4), opts), "\n")
	assert.NotContains(t, indent(t, obj(3), opts), "\n")
}

func TestBlockLayout(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{
			name: "nested arrays in object",
			in:   map[string]any{"a": []any{[]any{1}, []any{2}}},
			want: "{ \"_\":\"-*- js-indent-level: 2 -*-\",\n" +
				"  \"a\": [\n" +
				"    [1],\n" +
				"    [2]\n" +
				"  ]\n" +
				"}",
		},
		{
			name: "nested object has no hint",
			in:   map[string]any{"a": map[string]any{"b": []any{1, []any{2}}}},
			want: "{ \"_\":\"-*- js-indent-level: 2 -*-\",\n" +
				"  \"a\": {\n" +
				"    \"b\": [\n" +
				"      1,\n" +
				"      [2]\n" +
				"    ]\n" +
				"  }\n" +
				"}",
		},
		{
			name: "top-level array",
			in:   []any{[]any{1, 2}, []any{3}, "x"},
			want: "[\n  [1,2],\n  [3],\n  \"x\"\n]",
		},
		{
			name: "empty containers are simple",
			in:   map[string]any{"a": []any{}, "b": map[string]any{}},
			want: "{ \"_\":\"-*- js-indent-level: 2 -*-\",\n  \"a\": [],\n  \"b\": {}\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, indent(t, tt.in, noCollapse(2)))
		})
	}
}

func TestIndentIncrement(t *testing.T) {
	v := map[string]any{"a": []any{[]any{1}}}
	want := "{   \"_\":\"-*- js-indent-level: 4 -*-\",\n" +
		"    \"a\": [\n" +
		"        [1]\n" +
		"    ]\n" +
		"}"
	assert.Equal(t, want, indent(t, v, noCollapse(4)))

	want = "{\"_\":\"-*- js-indent-level: 1 -*-\",\n" +
		" \"a\": [\n" +
		"  [1]\n" +
		" ]\n" +
		"}"
	assert.Equal(t, want, indent(t, v, noCollapse(1)))
}

func TestLongBlockIsKept(t *testing.T) {
	long := strings.Repeat("A", 100)
	v := map[string]any{
		"name": "x",
		"items": []any{
			map[string]any{"id": 1, "label": long},
			map[string]any{"id": 2, "label": long},
		},
	}
	want := "{ \"_\":\"-*- js-indent-level: 2 -*-\",\n" +
		"  \"items\": [\n" +
		"    {\"id\":1,\"label\":\"" + long + "\"},\n" +
		"    {\"id\":2,\"label\":\"" + long + "\"}\n" +
		"  ],\n" +
		"  \"name\": \"x\"\n" +
		"}"
	assert.Equal(t, want, indent(t, v, IndentOptions(2)))
}

func TestNestedBlockCollapses(t *testing.T) {
	big := strings.Repeat("x", 250)
	v := map[string]any{
		"big":  big,
		"data": []any{map[string]any{"a": 1}, map[string]any{"b": 2}},
	}
	want := "{ \"_\":\"-*- js-indent-level: 2 -*-\",\n" +
		"  \"big\": \"" + big + "\",\n" +
		"  \"data\": [{\"a\":1},{\"b\":2}]\n" +
		"}"
	assert.Equal(t, want, indent(t, v, IndentOptions(2)))
}

func TestTopLevelCollapseDropsHint(t *testing.T) {
	v := make(map[string]any, 20)
	var inline []string
	for i := range 20 {
		k := string(rune('a' + i))
		v[k] = i % 10
		inline = append(inline, fmt.Sprintf(`"%s":%d`, k, i%10))
	}

	// 182 characters without the hint: below the default width.
	out := indent(t, v, IndentOptions(1))
	assert.Equal(t, "{"+strings.Join(inline, ",")+"}", out)
	assert.NotContains(t, out, IndentHintKey)

	// 202 characters: stays a block and keeps its hint.
	out = indent(t, v, IndentOptions(2))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 22)
	assert.Equal(t, `{ "_":"-*- js-indent-level: 2 -*-",`, lines[0])
	assert.Equal(t, `  "a": 0,`, lines[1])
	assert.Equal(t, `  "t": 9`, lines[20])
	assert.Equal(t, 1, strings.Count(out, `"_"`))
}

func TestCollapseWidthOption(t *testing.T) {
	v := map[string]any{"a": []any{[]any{1}, []any{2}}}

	opts := IndentOptions(2)
	assert.Equal(t, `{"a":[[1],[2]]}`, indent(t, v, opts))

	opts.OneLineMaxWidth = 10
	assert.Contains(t, indent(t, v, opts), "\n")

	opts.OneLineMaxWidth = 0
	assert.Equal(t, `{"a":[[1],[2]]}`, indent(t, v, opts), "zero selects the default width")

	opts.OneLineMaxWidth = -1
	assert.Contains(t, indent(t, v, opts), "\n")
}

func TestHintKeyCollision(t *testing.T) {
	v := map[string]any{"_": "mine", "a": []any{[]any{1}}}
	out := indent(t, v, noCollapse(2))
	lines := strings.Split(out, "\n")
	assert.Equal(t, `{ "_":"-*- js-indent-level: 2 -*-",`, lines[0])
	assert.Equal(t, `  "_": "mine",`, lines[1])

	// The caller's value wins when the document is parsed back.
	parsed, err := Loads([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "mine", parsed.(map[string]any)["_"])
}

func TestStripIndentHint(t *testing.T) {
	v := map[string]any{"a": []any{[]any{1}}, "b": "x"}
	out := indent(t, v, noCollapse(2))

	parsed, err := Loads([]byte(out))
	require.NoError(t, err)
	stripped := StripIndentHint(parsed)
	assert.NotContains(t, stripped, IndentHintKey)
	assert.Equal(t, out, indent(t, stripped, noCollapse(2)))

	keep := map[string]any{"_": "not a hint"}
	assert.Equal(t, keep, StripIndentHint(keep))
	assert.Equal(t, []any{1}, StripIndentHint([]any{1}))
}

func TestIsSimple(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"scalar", Number("1"), true},
		{"flat array", []any{Number("1"), "a", nil}, true},
		{"array of arrays", []any{[]any{}}, false},
		{"array with object", []any{map[string]any{}}, false},
		{"flat object", map[string]any{"a": Number("1")}, true},
		{"object with array", map[string]any{"a": []any{}}, false},
		{"object at threshold", map[string]any{"a": nil, "b": nil}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSimple(tt.in, 2))
		})
	}
}

func TestHTMLCharactersAreNotEscaped(t *testing.T) {
	v := map[string]any{"a<b": "x & <y>", "n": []any{[]any{1}}}
	want := `{"a<b":"x & <y>","n":[[1]]}`

	assert.Equal(t, want, indent(t, v, IndentOptions(2)))
	assert.Equal(t, want, indent(t, v, DefaultOptions()))

	block := indent(t, v, noCollapse(2))
	assert.Contains(t, block, `"a<b": "x & <y>"`)

	standard := IndentOptions(2)
	standard.Compact = false
	assert.Contains(t, indent(t, v, standard), `"a<b": "x & <y>"`)
}
