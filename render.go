package compactjson

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	gojson "github.com/goccy/go-json"
)

// IndentHintKey is the pseudo-key written first into a multi-line top-level
// object. Its value tells editors which indentation width the file uses.
const IndentHintKey = "_"

// indentHintValue is the editor hint, e.g. "-*- js-indent-level: 2 -*-".
func indentHintValue(increment int) string {
	return "-*- js-indent-level: " + strconv.Itoa(increment) + " -*-"
}

// indentHint is the remainder of the opening line of a top-level object:
// the hint entry is padded so its key starts in the same column as the keys
// on the following lines.
func indentHint(increment int) string {
	return strings.Repeat(" ", max(increment-1, 0)) +
		`"` + IndentHintKey + `":"` + indentHintValue(increment) + `",`
}

// StripIndentHint removes an editor hint previously written by the compact
// renderer from a decoded top-level object, so re-formatting a file does not
// produce a second hint key. Other values are returned unchanged.
func StripIndentHint(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	hint, ok := m[IndentHintKey].(string)
	if !ok || !strings.HasPrefix(hint, "-*- js-indent-level: ") {
		return v
	}
	out := make(map[string]any, len(m)-1)
	for k, e := range m {
		if k != IndentHintKey {
			out[k] = e
		}
	}
	return out
}

// isContainer reports whether a normalized value is an object or array.
func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// isSimple reports whether v may be written as a single inline literal. The
// test looks one level deep only: a container of scalars is simple, a
// container holding any container is not. Objects additionally need fewer
// than threshold keys.
func isSimple(v any, threshold int) bool {
	switch val := v.(type) {
	case map[string]any:
		if len(val) >= threshold {
			return false
		}
		for _, e := range val {
			if isContainer(e) {
				return false
			}
		}
	case []any:
		for _, e := range val {
			if isContainer(e) {
				return false
			}
		}
	}
	return true
}

// sortedKeys returns the keys of m in lexicographic order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// quote encodes s as a JSON string literal. HTML characters are left alone.
func quote(s string) (string, error) {
	b, err := gojson.MarshalWithOption(s, gojson.DisableHTMLEscape())
	if err != nil {
		return "", fmt.Errorf("compactjson: failed to encode string: %w", err)
	}
	return string(b), nil
}

// renderInline writes a normalized value as one compact literal with no
// insignificant whitespace and object keys in lexicographic order.
func renderInline(v any) (string, error) {
	var sb strings.Builder
	if err := appendInline(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func appendInline(sb *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case Number:
		sb.WriteString(string(val))
	case string:
		s, err := quote(val)
		if err != nil {
			return err
		}
		sb.WriteString(s)
	case []any:
		sb.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := appendInline(sb, e); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case map[string]any:
		sb.WriteByte('{')
		for i, k := range sortedKeys(val) {
			if i > 0 {
				sb.WriteByte(',')
			}
			key, err := quote(k)
			if err != nil {
				return err
			}
			sb.WriteString(key)
			sb.WriteByte(':')
			if err := appendInline(sb, val[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	return nil
}

// renderer holds the per-call settings of the compact algorithm.
type renderer struct {
	increment int
	threshold int
	width     int
	logger    *slog.Logger
}

// render dispatches v to the inline or block renderer and applies the
// collapse heuristic to the block result.
func (r *renderer) render(v any, indent int, toplevel bool) (string, error) {
	if isSimple(v, r.threshold) {
		return renderInline(v)
	}
	s, err := r.block(v, indent, toplevel)
	if err != nil {
		return "", err
	}
	return r.collapse(v, s, toplevel)
}

// block writes a container across multiple lines: one entry per line at
// indent spaces, closing delimiter at indent-increment spaces.
func (r *renderer) block(v any, indent int, toplevel bool) (string, error) {
	pad := strings.Repeat(" ", indent)
	var lines []string

	switch val := v.(type) {
	case map[string]any:
		if toplevel {
			lines = append(lines, "{"+indentHint(r.increment))
		} else {
			lines = append(lines, "{")
		}
		keys := sortedKeys(val)
		for i, k := range keys {
			key, err := quote(k)
			if err != nil {
				return "", err
			}
			child, err := r.render(val[k], indent+r.increment, false)
			if err != nil {
				return "", err
			}
			lines = append(lines, pad+key+": "+child+separator(i, len(keys)))
		}
		lines = append(lines, r.closing('}', indent))

	case []any:
		lines = append(lines, "[")
		for i, e := range val {
			child, err := r.render(e, indent+r.increment, false)
			if err != nil {
				return "", err
			}
			lines = append(lines, pad+child+separator(i, len(val)))
		}
		lines = append(lines, r.closing(']', indent))

	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}

	return strings.Join(lines, "\n"), nil
}

// separator returns the comma that follows entry i of n, if any.
func separator(i, n int) string {
	if i < n-1 {
		return ","
	}
	return ""
}

// closing indents a closing delimiter one increment left of its entries.
func (r *renderer) closing(delim byte, indent int) string {
	if indent > r.increment {
		return strings.Repeat(" ", indent-r.increment) + string(delim)
	}
	return string(delim)
}

// collapse replaces a multi-line block shorter than the width budget with the
// inline literal of the same value. The editor hint does not count towards
// the length, and a collapsed top-level object loses it.
func (r *renderer) collapse(v any, block string, toplevel bool) (string, error) {
	if r.width < 0 || !strings.Contains(block, "\n") {
		return block, nil
	}
	n := utf8.RuneCountInString(block)
	if _, ok := v.(map[string]any); ok && toplevel {
		n -= utf8.RuneCountInString(indentHint(r.increment))
	}
	if n >= r.width {
		if toplevel {
			r.logger.Debug("compactjson: keeping multi-line block", "length", n, "width", r.width)
		}
		return block, nil
	}
	if toplevel {
		r.logger.Debug("compactjson: collapsing top-level block", "width", r.width)
	}
	return renderInline(v)
}
