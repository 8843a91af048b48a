package scanning

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
)

// parseClassificationJSON parses the oracle's answer. The payload is either an
// object with a classifications list or, when the model drifts, the bare list.
func parseClassificationJSON(text string) (*Classification, error) {
	raw := text

	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	payload, ferr := extractJSON(text)
	if ferr != nil {
		ferr.Content = raw
		return nil, ferr
	}

	out := &Classification{}
	var items any
	switch v := payload.(type) {
	case map[string]any:
		list, ok := v["classifications"]
		if !ok {
			return nil, &FormatError{Reason: "missing classifications", Content: raw}
		}
		items = list
		out.Store = cleanStore(stringField(v, "store"))
		out.Date = strings.TrimSpace(stringField(v, "date"))
	case []any:
		items = v
	default:
		return nil, &FormatError{Reason: "unexpected payload type", Content: raw}
	}

	if err := validateClassifications(items); err != nil {
		return nil, &FormatError{Reason: "classifications do not match schema", Content: raw, Err: err}
	}

	b, err := json.Marshal(items)
	if err != nil {
		return nil, &FormatError{Reason: "re-encoding classifications", Content: raw, Err: err}
	}
	if err := json.Unmarshal(b, &out.Lines); err != nil {
		return nil, &FormatError{Reason: "decoding classifications", Content: raw, Err: err}
	}

	lines, reordered := orderLines(out.Lines)
	if reordered {
		slog.Warn("Oracle returned unordered or duplicate line numbers", "lines", len(out.Lines), "kept", len(lines))
	}
	out.Lines = lines

	return out, nil
}

// orderLines sorts by line number and drops repeated numbers, keeping the first.
// extractJSON decodes the object slice and the array slice of text. An object
// carrying classifications wins, so chatter like "Note [1]:" ahead of the
// payload does not derail it; otherwise the earliest slice that decodes is used.
func extractJSON(text string) (any, *FormatError) {
	type slice struct{ start, end int }
	var slices []slice
	for _, delims := range []string{"{}", "[]"} {
		start := strings.IndexByte(text, delims[0])
		if start == -1 {
			continue
		}
		slices = append(slices, slice{start, strings.LastIndexByte(text, delims[1])})
	}
	if len(slices) == 0 {
		return nil, &FormatError{Reason: "no JSON found in response"}
	}
	sort.Slice(slices, func(i, j int) bool { return slices[i].start < slices[j].start })

	var (
		fallback any
		firstErr *FormatError
	)
	for _, sl := range slices {
		if sl.end < sl.start {
			if firstErr == nil {
				firstErr = &FormatError{Reason: "unterminated JSON in response"}
			}
			continue
		}
		var payload any
		if err := json.Unmarshal([]byte(text[sl.start:sl.end+1]), &payload); err != nil {
			if firstErr == nil {
				firstErr = &FormatError{Reason: "invalid JSON", Err: err}
			}
			continue
		}
		if obj, ok := payload.(map[string]any); ok {
			if _, ok := obj["classifications"]; ok {
				return payload, nil
			}
		}
		if fallback == nil {
			fallback = payload
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, firstErr
}

func orderLines(lines []LineClassification) ([]LineClassification, bool) {
	sorted := sort.SliceIsSorted(lines, func(i, j int) bool {
		return lines[i].LineNumber < lines[j].LineNumber
	})
	if !sorted {
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].LineNumber < lines[j].LineNumber
		})
	}

	out := make([]LineClassification, 0, len(lines))
	for i, l := range lines {
		if i > 0 && l.LineNumber == out[len(out)-1].LineNumber {
			continue
		}
		out = append(out, l)
	}
	return out, !sorted || len(out) != len(lines)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func cleanStore(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
}
