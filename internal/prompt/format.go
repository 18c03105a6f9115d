package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatExamples serializes examples into the <example> block embedded in instructions.
func FormatExamples(examples []Example) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ex := range examples {
		id := ex.ID
		if id == "" {
			id = "example_" + strconv.Itoa(i+1)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "<example id=%q>\n", id)
		b.WriteString("  <input>\n")
		writeValue(&b, ex.Input, 4)
		b.WriteString("  </input>\n")
		if ex.Reasoning != "" {
			fmt.Fprintf(&b, "  <reasoning>%s</reasoning>\n", ex.Reasoning)
		}
		b.WriteString("  <output>\n")
		writeValue(&b, ex.Output, 4)
		b.WriteString("  </output>\n")
		b.WriteString("</example>")
	}
	return b.String()
}

// writeValue writes v as indented "key: value" lines with map keys sorted.
func writeValue(b *strings.Builder, v any, indent int) {
	pad := strings.Repeat(" ", indent)
	switch t := v.(type) {
	case nil:
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch child := t[k].(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s%s:\n", pad, k)
				writeValue(b, child, indent+2)
			default:
				fmt.Fprintf(b, "%s%s: %s\n", pad, k, stringify(child))
			}
		}
	case []any:
		for _, item := range t {
			switch item.(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s-\n", pad)
				writeValue(b, item, indent+2)
			default:
				fmt.Fprintf(b, "%s- %s\n", pad, stringify(item))
			}
		}
	default:
		fmt.Fprintf(b, "%s%s\n", pad, stringify(t))
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
