package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/roast-cam/pkg/types"
)

// Field is one required string property of the roast response object
type Field struct {
	Name        string
	Description string
}

// RoastFields lists the response properties in schema order
var RoastFields = []Field{
	{Name: "savage", Description: "A short, brutal roast in Nigerian Pidgin (max 20 words)"},
	{Name: "friendly", Description: "A short, playful roast in Nigerian Pidgin (max 20 words)"},
	{Name: "compliment", Description: "Short Compliment-Roast-Compliment in Nigerian Pidgin (max 20 words)"},
}

// RoastJSONSchema returns the response schema as JSON Schema, for backends
// that accept one
func RoastJSONSchema() json.RawMessage {
	props := make(map[string]any, len(RoastFields))
	required := make([]string, 0, len(RoastFields))
	for _, f := range RoastFields {
		props[f.Name] = map[string]string{"type": "string", "description": f.Description}
		required = append(required, f.Name)
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
	raw, _ := json.Marshal(schema)
	return raw
}

// ErrMalformedResponse is returned when model output is not a usable roast object
var ErrMalformedResponse = errors.New("malformed model response")

// ParseRoasts extracts the roast object from raw model text. Code fences,
// comments and trailing commas are tolerated; a missing or blank variant is
// an error.
func ParseRoasts(raw string) (*types.Roasts, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var missing []string
	get := func(key string) string {
		s, _ := fields[key].(string)
		s = cleanRoast(s)
		if s == "" {
			missing = append(missing, key)
		}
		return s
	}

	r := &types.Roasts{
		Savage:     get("savage"),
		Friendly:   get("friendly"),
		Compliment: get("compliment"),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}
	return r, nil
}

// cleanRoast collapses whitespace runs, newlines included, to single spaces
// and trims stray wrapping quotes
func cleanRoast(s string) string {
	s = strings.Join(strings.Fields(s), " ")
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

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	// Only whole-line comments: roast text can legitimately contain "//"
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
