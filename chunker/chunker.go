package chunker

import (
	"regexp"
	"strings"

	"github.com/poiesic/docingest/core"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 5000

	// DefaultMinBreakRatio is how far into a window a boundary must fall to be used.
	DefaultMinBreakRatio = 0.3
)

// Boundary markers in priority order.
var (
	codeFence      = []rune("```")
	paragraphBreak = []rune("\n\n")
	sentenceBreak  = []rune(". ")
)

// boilerplatePatterns are removed before splitting. Images go first so an image
// URL is not consumed by the bare URL pattern, which would leave "![alt](" behind.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`!\[.*?\]\(.*?\)`),
	regexp.MustCompile(`<[^>]+>`),
	regexp.MustCompile(`https?://\S+`),
}

// Chunker splits document text into bounded-size segments at code fence,
// paragraph or sentence boundaries.
type Chunker struct {
	chunkSize     int
	minBreakRatio float64
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
// Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithMinBreakRatio sets the fraction of the window a boundary must exceed.
// Values outside [0, 1) are ignored.
func WithMinBreakRatio(ratio float64) Option {
	return func(c *Chunker) {
		if ratio >= 0 && ratio < 1 {
			c.minBreakRatio = ratio
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:     DefaultChunkSize,
		minBreakRatio: DefaultMinBreakRatio,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured target size.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// StripBoilerplate removes markdown images, markup tags and bare URLs.
func StripBoilerplate(text string) string {
	for _, p := range boilerplatePatterns {
		text = p.ReplaceAllString(text, "")
	}
	return text
}

// Split returns the ordered, non-empty chunk texts for text.
//
// Every chunk is at most ChunkSize characters. A window is cut at the last code
// fence, paragraph break or sentence break that lies past the minimum break
// ratio, tried in that order, and at exactly ChunkSize when none qualifies. The
// final window takes whatever text remains.
func (c *Chunker) Split(text string) []string {
	runes := []rune(StripBoilerplate(text))
	n := len(runes)

	var chunks []string
	start := 0
	for start < n {
		end := start + c.chunkSize
		if end >= n {
			if s := strings.TrimSpace(string(runes[start:])); s != "" {
				chunks = append(chunks, s)
			}
			break
		}

		if bp, ok := c.breakpoint(runes[start:end]); ok {
			end = start + bp
		}

		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			chunks = append(chunks, s)
		}

		start = max(start+1, end)
	}

	return chunks
}

// ChunkDocument splits text and wraps each piece in a core.Chunk with its
// sequence index, source and document ID set.
func (c *Chunker) ChunkDocument(docID core.ID, source, text string) []*core.Chunk {
	parts := c.Split(text)
	chunks := make([]*core.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = &core.Chunk{
			DocumentID:  docID,
			URL:         source,
			ChunkNumber: i,
			Content:     part,
		}
	}
	return chunks
}

// breakpoint picks the cut offset inside window, if any boundary qualifies.
func (c *Chunker) breakpoint(window []rune) (int, bool) {
	if i := lastIndex(window, codeFence); c.accept(i) {
		return i, true
	}
	if i := lastIndex(window, paragraphBreak); c.accept(i) {
		return i, true
	}
	if i := lastIndex(window, sentenceBreak); c.accept(i) {
		// keep the period with the sentence it ends
		return i + 1, true
	}
	return 0, false
}

func (c *Chunker) accept(idx int) bool {
	return idx >= 0 && float64(idx) > float64(c.chunkSize)*c.minBreakRatio
}

// lastIndex is strings.LastIndex over runes.
func lastIndex(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if s[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
