package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	objectPattern    = regexp.MustCompile(`(?s)\{.*"questions".*\}`)
	codeBlockPattern = regexp.MustCompile("```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// extractJSON pulls a questions JSON object out of a model reply that may
// wrap it in prose or markdown fences, and tries to repair a truncated object
// by balancing braces. Returns the input unchanged when nothing better is
// found; the caller's decode step decides whether that is usable.
func extractJSON(text string) string {
	if m := objectPattern.FindString(text); m != "" {
		if repaired, ok := repairTruncated(m); ok {
			return repaired
		}
		return m
	}
	if m := codeBlockPattern.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if start := strings.Index(text, `{"questions"`); start >= 0 {
		if repaired, ok := repairTruncated(text[start:]); ok {
			return repaired
		}
	}
	return text
}

// repairTruncated appends closing braces and brackets to balance a JSON
// fragment, then checks the result actually parses. A fragment cut off inside
// a string literal is first trimmed back to its last complete value.
func repairTruncated(fragment string) (string, bool) {
	if json.Valid([]byte(fragment)) {
		return fragment, true
	}

	// Trim back to the last complete object so a half-written question does
	// not poison the close sequence.
	if i := strings.LastIndex(fragment, "}"); i >= 0 {
		fragment = fragment[:i+1]
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		return "", false
	}

	// Drop a trailing comma left by a truncated list.
	trimmed := strings.TrimRight(fragment, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ",")

	var b strings.Builder
	b.WriteString(trimmed)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	repaired := b.String()
	if json.Valid([]byte(repaired)) {
		return repaired, true
	}
	return "", false
}
