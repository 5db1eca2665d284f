package textproc

import (
	"sort"
	"strings"
)

// Complexity buckets for analyzed text.
const (
	ComplexityBasic        = "basic"
	ComplexityIntermediate = "intermediate"
	ComplexityAdvanced     = "advanced"
)

// Metadata summarizes analyzed text.
type Metadata struct {
	WordCount          int      `json:"wordCount"`
	CharCount          int      `json:"charCount"`
	ParagraphCount     int      `json:"paragraphCount"`
	ReadingTimeMinutes int      `json:"readingTimeMinutes"`
	Keywords           []string `json:"keywords"`
	Language           string   `json:"language"`
	Complexity         string   `json:"complexity"`
}

// topKeywords is how many keywords Analyze reports.
const topKeywords = 10

// readingWordsPerMinute is the assumed reading speed.
const readingWordsPerMinute = 200

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "if": true, "in": true,
	"is": true, "it": true, "its": true, "not": true, "of": true, "on": true,
	"or": true, "she": true, "that": true, "the": true, "their": true,
	"there": true, "these": true, "they": true, "this": true, "to": true,
	"was": true, "were": true, "which": true, "will": true, "with": true,
	"you": true, "your": true, "can": true, "all": true, "also": true,
	"been": true, "more": true, "when": true, "who": true, "would": true,
}

// commonEnglish is the sample used for the two-tier language hint.
var commonEnglish = map[string]bool{
	"the": true, "and": true, "that": true, "have": true, "for": true,
	"not": true, "with": true, "you": true, "this": true, "but": true,
	"his": true, "from": true, "they": true, "which": true, "are": true,
	"was": true, "were": true, "there": true, "their": true, "what": true,
}

// languageSampleSize is how many leading words the language hint inspects.
const languageSampleSize = 100

// languageHitThreshold is the minimum common-word hits for an "en" verdict.
const languageHitThreshold = 3

// Analyze computes counts, reading time, keywords, a language hint, and a
// complexity bucket for the given text.
func Analyze(text string) Metadata {
	words := strings.Fields(text)
	m := Metadata{
		WordCount: len(words),
		CharCount: len(text),
		Language:  detectLanguage(words),
	}

	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			m.ParagraphCount++
		}
	}
	if len(words) > 0 {
		m.ReadingTimeMinutes = (len(words) + readingWordsPerMinute - 1) / readingWordsPerMinute
	}
	m.Keywords = extractKeywords(words)
	m.Complexity = classifyComplexity(text, words)
	return m
}

func detectLanguage(words []string) string {
	sample := words
	if len(sample) > languageSampleSize {
		sample = sample[:languageSampleSize]
	}
	hits := 0
	for _, w := range sample {
		if commonEnglish[strings.ToLower(strings.Trim(w, ".,!?;:\"'()"))] {
			hits++
		}
	}
	if hits >= languageHitThreshold {
		return "en"
	}
	return "unknown"
}

func extractKeywords(words []string) []string {
	freq := make(map[string]int)
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,!?;:\"'()[]{}"))
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		freq[w]++
	}

	type wordCount struct {
		word  string
		count int
	}
	counts := make([]wordCount, 0, len(freq))
	for w, c := range freq {
		counts = append(counts, wordCount{w, c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].word < counts[j].word
	})

	n := topKeywords
	if len(counts) < n {
		n = len(counts)
	}
	keywords := make([]string, 0, n)
	for _, wc := range counts[:n] {
		keywords = append(keywords, wc.word)
	}
	return keywords
}

// classifyComplexity buckets text by average sentence length and average word
// length. Long sentences or long words push toward advanced; short of both
// reads as basic.
func classifyComplexity(text string, words []string) string {
	if len(words) == 0 {
		return ComplexityBasic
	}

	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	wordsPerSentence := float64(len(words)) / float64(sentences)

	letters := 0
	for _, w := range words {
		letters += len(w)
	}
	avgWordLen := float64(letters) / float64(len(words))

	switch {
	case wordsPerSentence > 20 || avgWordLen > 6.5:
		return ComplexityAdvanced
	case wordsPerSentence < 12 && avgWordLen < 4.5:
		return ComplexityBasic
	default:
		return ComplexityIntermediate
	}
}
