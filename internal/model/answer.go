package model

import "strings"

// AsIndex normalizes a single-choice answer to an option index. JSON decoding
// produces float64; both int and float64 are accepted, anything else is not an
// index. Fractional floats are rejected rather than truncated.
func AsIndex(a Answer) (int, bool) {
	switch v := a.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

// AsIndices normalizes a multi-choice answer to a slice of option indices.
// Returns false if any element is not an index.
func AsIndices(a Answer) ([]int, bool) {
	switch v := a.(type) {
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			i, ok := AsIndex(e)
			if !ok {
				return nil, false
			}
			out = append(out, i)
		}
		return out, true
	case []float64:
		out := make([]int, 0, len(v))
		for _, e := range v {
			i, ok := AsIndex(e)
			if !ok {
				return nil, false
			}
			out = append(out, i)
		}
		return out, true
	}
	return nil, false
}

// AsText normalizes a free-text answer to a string.
func AsText(a Answer) (string, bool) {
	s, ok := a.(string)
	return s, ok
}

// IsAnswerCorrect applies the answer equality law for the question's variant:
// SINGLE_CHOICE compares indices, MULTI_CHOICE compares index sets ignoring
// order and rejecting duplicates, FREE_TEXT compares trimmed strings with
// optional case folding. A nil answer is always incorrect.
func IsAnswerCorrect(q Question, a Answer) bool {
	if a == nil {
		return false
	}

	switch q.Type {
	case SingleChoice:
		i, ok := AsIndex(a)
		return ok && i == q.CorrectIndex

	case MultiChoice:
		got, ok := AsIndices(a)
		if !ok || len(got) != len(q.CorrectIndices) {
			return false
		}
		want := make(map[int]bool, len(q.CorrectIndices))
		for _, i := range q.CorrectIndices {
			want[i] = true
		}
		seen := make(map[int]bool, len(got))
		for _, i := range got {
			if seen[i] || !want[i] {
				return false
			}
			seen[i] = true
		}
		return true

	case FreeText:
		s, ok := AsText(a)
		if !ok {
			return false
		}
		got := strings.TrimSpace(s)
		want := strings.TrimSpace(q.CorrectAnswer)
		if q.CaseSensitive {
			return got == want
		}
		return asciiLower(got) == asciiLower(want)
	}

	return false
}

// asciiLower lowercases ASCII letters only. Unicode case folding is too
// permissive here: the Kelvin sign must not match a plain "k".
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
