package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// JSONStrategy decodes the greedy first-"{"-to-last-"}" span of the text.
type JSONStrategy struct{}

func (JSONStrategy) Name() string { return "json" }

func (JSONStrategy) Extract(raw string, schema Schema) Record {
	span, ok := ExtractObject(raw)
	if !ok {
		return nil
	}
	var obj map[string]any
	if err := decodeJSON(span, &obj); err != nil {
		return nil
	}
	return fromObject(obj, schema)
}

// LineStrategy scans lines for "Label: value" pairs.
type LineStrategy struct{}

func (LineStrategy) Name() string { return "lines" }

func (LineStrategy) Extract(raw string, schema Schema) Record {
	lines := nonEmptyLines(raw)
	if len(lines) == 0 {
		return nil
	}

	rec := Record{}
	for _, f := range schema.Fields {
		if v, ok := findLabeled(lines, f.labels()); ok {
			rec[f.Key] = v
		}
	}
	return rec
}

// ExtractObject returns the substring from the first "{" to the last "}".
func ExtractObject(raw string) (string, bool) {
	return span(raw, "{", "}")
}

// ExtractArray returns the substring from the first "[" to the last "]".
func ExtractArray(raw string) (string, bool) {
	return span(raw, "[", "]")
}

func span(raw, open, close string) (string, bool) {
	start := strings.Index(raw, open)
	end := strings.LastIndex(raw, close)
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func decodeJSON(s string, out any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	return dec.Decode(out)
}

func extractList(raw string, schema Schema) ([]Record, bool) {
	s, ok := ExtractArray(raw)
	if !ok {
		return nil, false
	}
	var items []any
	if err := decodeJSON(s, &items); err != nil || len(items) == 0 {
		return nil, false
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			records = append(records, fromObject(v, schema))
		case string:
			// A bare string fills the first field, e.g. a list of prompt texts.
			if len(schema.Fields) > 0 && strings.TrimSpace(v) != "" {
				records = append(records, Record{schema.Fields[0].Key: strings.TrimSpace(v)})
			}
		}
	}
	return records, len(records) > 0
}

// fromObject picks the schema's fields out of a decoded JSON object.
// Keys match case-insensitively against the field key and its aliases.
func fromObject(obj map[string]any, schema Schema) Record {
	lowered := make(map[string]any, len(obj))
	for k, v := range obj {
		lowered[normalizeKey(k)] = v
	}

	rec := Record{}
	for _, f := range schema.Fields {
		for _, label := range f.labels() {
			v, ok := lowered[normalizeKey(label)]
			if !ok {
				continue
			}
			if s := coerce(v); s != "" {
				rec[f.Key] = s
				break
			}
		}
	}
	return rec
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// coerce renders a decoded JSON value as a field string.
func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerce(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func nonEmptyLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Markdown emphasis that models wrap labels in. Quotes are kept so a raw
// JSON member like "title": never reads as a label.
var labelNoise = strings.NewReplacer("*", "", "`", "")

// findLabeled returns the value of the first line containing "<label>:".
func findLabeled(lines []string, labels []string) (string, bool) {
	for _, line := range lines {
		clean := labelNoise.Replace(line)
		for _, label := range labels {
			i := indexFold(clean, label+":")
			if i < 0 {
				continue
			}
			v := strings.Trim(strings.TrimSpace(clean[i+len(label)+1:]), " ,'\"")
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// indexFold is a case-insensitive strings.Index for an ASCII needle.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

var listMarker = regexp.MustCompile(`^\s*(?:\d+\s*[.)]|[-*•])\s*`)

// NumberedLines returns up to limit non-empty lines with list markers removed.
// A limit of zero or less returns every line.
func NumberedLines(raw string, limit int) []string {
	var out []string
	for _, line := range nonEmptyLines(raw) {
		text := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if text == "" {
			continue
		}
		out = append(out, text)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
