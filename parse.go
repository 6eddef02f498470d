package wordweave

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every tag from provider strings. Policies are safe for
// concurrent use once built.
var strictPolicy = bluemonday.StrictPolicy()

// ParseTranslations extracts the translation list from a provider response.
// It accepts a bare JSON array, an object holding an array, or an array
// embedded in prose. Entries missing an original or a translation are
// dropped; anything unparseable yields an empty list.
func ParseTranslations(content string) []ParsedTranslation {
	content = stripCodeFence(strings.TrimSpace(content))

	if items, ok := decodeArray(content); ok {
		return validateItems(items)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		for _, key := range []string{"translations", "words", "items", "results"} {
			if arr, ok := obj[key].([]any); ok {
				return validateItems(arr)
			}
		}
		for _, v := range obj {
			if arr, ok := v.([]any); ok {
				return validateItems(arr)
			}
		}
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		if items, ok := decodeArray(content[start : end+1]); ok {
			return validateItems(items)
		}
	}

	return []ParsedTranslation{}
}

func decodeArray(s string) ([]any, bool) {
	var arr []any
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, false
	}
	return arr, true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func validateItems(items []any) []ParsedTranslation {
	out := make([]ParsedTranslation, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		p := ParsedTranslation{
			Original:    sanitize(stringField(m, "original")),
			Translation: sanitize(stringField(m, "translation")),
			Phonetic:    sanitize(stringField(m, "phonetic")),
			Position:    intField(m, "position"),
		}
		if p.Original == "" || p.Translation == "" {
			continue
		}
		if d, ok := ParseDifficulty(stringField(m, "difficulty")); ok {
			p.Difficulty = d
		} else {
			p.Difficulty = DefaultDifficulty
		}
		out = append(out, p)
	}
	return out
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		if v >= 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return -1
}

// sanitize drops markup a model might echo back and restores entities.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
