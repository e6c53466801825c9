package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// ErrNoJSONObject is returned when no candidate in a model answer decodes into the target
var ErrNoJSONObject = errors.New("no JSON object found")

var (
	fencedJSONPattern   = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingCommaRegex  = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyPattern      = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	controlCharsPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes a JSON object from model output into target, which must
// be a non-nil pointer. Candidates are tried in order:
//   - the raw output
//   - the body of a ``` or ```json fence
//   - the first balanced {...} in surrounding prose
//   - the output after repairing trailing commas, bare keys and single quotes
//
// target is reset before every attempt so a failed candidate leaves no fields behind.
func ParseAIJSON(input string, target interface{}) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}

	input = strings.TrimPrefix(strings.TrimSpace(input), "\ufeff")
	if input == "" {
		return fmt.Errorf("empty input: %w", ErrNoJSONObject)
	}

	var lastErr error
	for _, candidate := range jsonCandidates(input) {
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
		if err := json.Unmarshal([]byte(candidate), target); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
	if lastErr != nil {
		return fmt.Errorf("%w in %q: %v", ErrNoJSONObject, truncateString(input, 100), lastErr)
	}
	return fmt.Errorf("%w in %q", ErrNoJSONObject, truncateString(input, 100))
}

// jsonCandidates lists distinct object-shaped strings worth decoding
func jsonCandidates(input string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || !strings.HasPrefix(s, "{") || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(input)
	if fenced := extractFromMarkdown(input); fenced != "" {
		add(fenced)
		add(extractBalancedBraces(fenced))
	}
	braces := extractBalancedBraces(input)
	add(braces)
	if braces != "" {
		add(cleanAndFixJSON(braces))
	}
	add(cleanAndFixJSON(input))
	return out
}

// extractFromMarkdown returns the body of the first code fence
func extractFromMarkdown(input string) string {
	if matches := fencedJSONPattern.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// extractBalancedBraces returns the first balanced {...} block, ignoring
// braces inside string literals
func extractBalancedBraces(input string) string {
	start := strings.IndexByte(input, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false

	for i, ch := range input[start:] {
		if escape {
			escape = false
			continue
		}
		switch {
		case ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return input[start : start+i+1]
			}
		}
	}
	return ""
}

// cleanAndFixJSON repairs the mistakes models make most often
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)
	s = trailingCommaRegex.ReplaceAllString(s, "$1")
	s = fixSingleQuotes(s)
	s = bareKeyPattern.ReplaceAllString(s, `$1"$2"$3`)
	return controlCharsPattern.ReplaceAllString(s, "")
}

// fixSingleQuotes turns single-quoted strings into double-quoted ones. Quotes
// inside double-quoted strings are left alone.
func fixSingleQuotes(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))

	inDouble := false
	inSingle := false
	escape := false

	for _, ch := range input {
		if escape {
			sb.WriteRune(ch)
			escape = false
			continue
		}
		switch {
		case ch == '\\':
			escape = true
			sb.WriteRune(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			sb.WriteRune(ch)
		case ch == '"' && inSingle:
			sb.WriteString(`\"`)
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			sb.WriteRune('"')
		default:
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// truncateString truncates to maxLen runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
