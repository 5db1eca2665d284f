package textproc

import "strings"

// Chunk is one ordered slice of the input text.
type Chunk struct {
	Content   string `json:"content"`
	Index     int    `json:"index"`
	StartChar int    `json:"startChar"`
	EndChar   int    `json:"endChar"`
	WordCount int    `json:"wordCount"`
}

// ChunkOptions tunes the splitter. Zero values take the defaults.
type ChunkOptions struct {
	MaxSize int
	MinSize int
	Overlap int
}

// Default chunking parameters.
const (
	DefaultMaxChunk = 4000
	DefaultMinChunk = 100
	DefaultOverlap  = 200
)

func (o ChunkOptions) withDefaults() ChunkOptions {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxChunk
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinChunk
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap == 0 {
		o.Overlap = DefaultOverlap
	}
	if o.MinSize > o.MaxSize {
		o.MinSize = o.MaxSize
	}
	return o
}

// Split cuts text into overlapping chunks, preferring to break at a paragraph
// boundary, then a sentence boundary, then a word boundary. The next chunk
// starts Overlap characters before the previous end, but always at least
// MinSize past the previous start so the loop provably terminates.
func Split(text string, opts ChunkOptions) []Chunk {
	opts = opts.withDefaults()
	if text == "" {
		return nil
	}

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		end := pos + opts.MaxSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = findBoundary(text, pos, end, opts.MinSize)
		}

		content := text[pos:end]
		chunks = append(chunks, Chunk{
			Content:   content,
			Index:     len(chunks),
			StartChar: pos,
			EndChar:   end,
			WordCount: len(strings.Fields(content)),
		})

		if end == len(text) {
			break
		}
		next := end - opts.Overlap
		if next < pos+opts.MinSize {
			next = pos + opts.MinSize
		}
		pos = next
	}
	return chunks
}

// findBoundary scans backward from end for the best break point, bounded
// below by pos+minSize. First preference wins: paragraph break, sentence
// break, then word boundary; the separator stays with the preceding chunk.
func findBoundary(text string, pos, end, minSize int) int {
	floor := pos + minSize
	if floor > end {
		return end
	}
	window := text[floor:end]

	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return floor + i + 2
	}
	if i := strings.LastIndex(window, ". "); i >= 0 {
		return floor + i + 2
	}
	if i := strings.LastIndex(window, " "); i >= 0 {
		return floor + i + 1
	}
	return end
}
