// Package textproc prepares free text for question generation. Everything in
// this package is pure: the same input always produces the same output, and
// nothing here touches the network or the store.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

// Validation thresholds for generation input.
const (
	MinWords     = 10
	MinChars     = 50
	MinAlphaRate = 0.5
)

var (
	pageNumberLine = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	pageOfLine     = regexp.MustCompile(`(?m)^\s*Page \d+ of \d+\s*$`)
	chapterLine    = regexp.MustCompile(`(?m)^\s*Chapter \d+\s*$`)
	singleCharLine = regexp.MustCompile(`(?m)^\s*[A-Za-z]\s*$`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)

	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	jsURIPattern      = regexp.MustCompile(`(?i)javascript:`)
	eventAttrPattern  = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	disallowedPattern = regexp.MustCompile(`[^\w\s.,!?;:()\[\]{}"'-]`)
)

var typographicReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"…", "...",
	"–", "-", "—", "-",
)

// Clean normalizes line endings and whitespace, strips page furniture
// (page numbers, "Page N of M", chapter headings, stray single letters), and
// replaces typographic punctuation with ASCII equivalents.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = pageNumberLine.ReplaceAllString(s, "")
	s = pageOfLine.ReplaceAllString(s, "")
	s = chapterLine.ReplaceAllString(s, "")
	s = singleCharLine.ReplaceAllString(s, "")

	s = typographicReplacer.Replace(s)
	s = horizontalRuns.ReplaceAllString(s, " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// Validation is the structured outcome of input validation.
type Validation struct {
	OK         bool     `json:"ok"`
	WordCount  int      `json:"wordCount"`
	CharCount  int      `json:"charCount"`
	AlphaRatio float64  `json:"alphaRatio"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Validate checks that the text is substantial enough to generate questions
// from: enough words, enough characters, and mostly alphabetic content.
func Validate(s string) Validation {
	words := strings.Fields(s)
	v := Validation{
		OK:        true,
		WordCount: len(words),
		CharCount: len(s),
	}

	alpha := 0
	total := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if total > 0 {
		v.AlphaRatio = float64(alpha) / float64(total)
	}

	if v.WordCount < MinWords {
		v.OK = false
		v.Reasons = append(v.Reasons, "too few words")
	}
	if v.CharCount < MinChars {
		v.OK = false
		v.Reasons = append(v.Reasons, "too few characters")
	}
	if v.AlphaRatio < MinAlphaRate {
		v.OK = false
		v.Reasons = append(v.Reasons, "mostly non-alphabetic content")
	}
	return v
}

// Sanitize strips markup and script-like fragments from untrusted text:
// angle-bracketed tags, javascript: URI schemes, on*= attribute fragments,
// and any character outside the allowed punctuation set.
func Sanitize(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = jsURIPattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "")
	s = disallowedPattern.ReplaceAllString(s, "")
	return s
}

// Result is the output of the full pipeline.
type Result struct {
	OK         bool       `json:"ok"`
	Text       string     `json:"text"`
	Metadata   Metadata   `json:"metadata"`
	Chunks     []Chunk    `json:"chunks"`
	Validation Validation `json:"validation"`
}

// Process runs the whole pipeline: clean, validate, sanitize, chunk, and
// analyze. On validation failure the result carries OK=false and the
// structured reasons; no chunks or metadata are produced.
func Process(raw string, opts ChunkOptions) Result {
	cleaned := Clean(raw)
	validation := Validate(cleaned)
	if !validation.OK {
		return Result{OK: false, Validation: validation}
	}

	text := Sanitize(cleaned)
	return Result{
		OK:         true,
		Text:       text,
		Metadata:   Analyze(text),
		Chunks:     Split(text, opts),
		Validation: validation,
	}
}
