package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON payload out of a model reply and unmarshals it
// into v. Replies routinely arrive wrapped in markdown code fences, with or
// without a "json" language tag, sometimes surrounded by prose. Returns true
// only when unmarshaling succeeded; never panics or errors.
func ExtractJSON(content string, v interface{}) bool {
	cleaned := stripFences(content)
	if cleaned == "" {
		return false
	}
	if json.Unmarshal([]byte(cleaned), v) == nil {
		return true
	}
	// Last resort: find the outermost object or array in the text.
	if frag := extractBracketed(cleaned); frag != "" {
		return json.Unmarshal([]byte(frag), v) == nil
	}
	return false
}

// stripFences removes a markdown code fence wrapper if present.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.Contains(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	inner = strings.TrimPrefix(inner, "JSON")
	return strings.TrimSpace(inner)
}

// extractBracketed returns the substring from the first { or [ to the
// matching last } or ], or "" when no bracket pair exists.
func extractBracketed(s string) string {
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			return s[start : end+1]
		}
	}
	return ""
}

// CleanReply strips code fences and surrounding quote marks from a free-text
// model reply, leaving bare copy. Used for ad text where models like to quote
// their answer.
func CleanReply(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = stripFences(s)
	}
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}
