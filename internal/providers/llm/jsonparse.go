package llm

import (
	"encoding/json"
	"strings"

	"github.com/bcllcc/MockMate/internal/utils"
)

// ParseStructured extracts a JSON object from free text produced by the
// backend: plain JSON, JSON wrapped in a code fence, or JSON embedded in prose.
func ParseStructured(text string) (map[string]any, error) {
	const op = "llm.ParseStructured"

	s := stripCodeFence(strings.TrimSpace(text))
	if doc, ok := decodeObject(s); ok {
		return doc, nil
	}

	for start := strings.IndexByte(s, '{'); start >= 0; {
		end := balancedEnd(s, start)
		if end < 0 {
			break
		}
		if doc, ok := decodeObject(s[start : end+1]); ok {
			return doc, nil
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, utils.E(utils.CodeBadGateway, op, "LLM response was not valid JSON", utils.ErrBackendMalformed)
}

func decodeObject(s string) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	inner := strings.TrimPrefix(s, "```")
	inner = strings.TrimSuffix(strings.TrimSpace(inner), "```")
	// drop the info string ("json", "JSON", ...) on the opening line
	if i := strings.IndexByte(inner, '\n'); i >= 0 && !strings.ContainsAny(inner[:i], "{[") {
		inner = inner[i+1:]
	} else if len(inner) >= 4 && strings.EqualFold(inner[:4], "json") {
		inner = inner[4:]
	}
	return strings.TrimSpace(inner)
}

// balancedEnd returns the index of the brace closing the object opened at
// start, skipping braces inside string literals, or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// String returns doc[key] trimmed when it is a non-empty string.
func String(doc map[string]any, key string) (string, bool) {
	v, ok := doc[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// StringList returns the trimmed, de-duplicated string items of doc[key].
// A bare string is treated as a one-item list; other item types are skipped.
func StringList(doc map[string]any, key string, limit int) []string {
	out := []string{}
	seen := map[string]struct{}{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch v := doc[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		add(v)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Number returns doc[key] as a float64, accepting JSON numbers and numeric strings.
func Number(doc map[string]any, key string) (float64, bool) {
	switch v := doc[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Object returns doc[key] when it is a JSON object.
func Object(doc map[string]any, key string) (map[string]any, bool) {
	v, ok := doc[key].(map[string]any)
	return v, ok
}
