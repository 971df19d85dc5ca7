package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxChunkSize is the target upper bound for a chunk, in runes.
	DefaultMaxChunkSize = 500
	// DefaultOverlapWords is how many trailing words of a closed chunk
	// seed the next one to preserve cross-boundary context.
	DefaultOverlapWords = 50
	// minChunkLength filters out fragments too short to be useful.
	minChunkLength = 20
)

// Chunker splits document text into overlapping, paragraph-aligned
// segments. Output is deterministic for identical input and parameters.
type Chunker struct {
	maxChunkSize int
	overlapWords int
	paragraphRe  *regexp.Regexp
	sentenceRe   *regexp.Regexp
}

// New creates a Chunker. A non-positive maxChunkSize and a negative
// overlapWords fall back to defaults; overlapWords of zero is honored
// and disables overlap seeding.
func New(maxChunkSize, overlapWords int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlapWords < 0 {
		overlapWords = DefaultOverlapWords
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		overlapWords: overlapWords,
		paragraphRe:  regexp.MustCompile(`\n[ \t]*\n+`),
		sentenceRe:   regexp.MustCompile(`[^.!?。！？]+(?:[.!?。！？]+|$)`),
	}
}

// Split breaks text into chunks no longer than maxChunkSize runes,
// except single sentences that exceed the limit, which are truncated to
// exactly maxChunkSize. Chunks shorter than the minimum length are
// discarded as noise.
func (c *Chunker) Split(text string) []string {
	paragraphs := c.splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var buf string

	appendPiece := func(piece, sep string) {
		if buf == "" {
			buf = piece
			return
		}
		if utf8.RuneCountInString(buf)+len(sep)+utf8.RuneCountInString(piece) <= c.maxChunkSize {
			buf += sep + piece
			return
		}
		chunks = append(chunks, buf)
		seed := c.tailWords(buf, c.maxChunkSize-utf8.RuneCountInString(piece)-1)
		if seed == "" {
			buf = piece
		} else {
			buf = seed + " " + piece
		}
	}

	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) <= c.maxChunkSize {
			appendPiece(para, "\n\n")
			continue
		}
		// Paragraph alone exceeds the limit: fall back to sentences,
		// hard-truncating any single sentence that still does not fit.
		for _, sent := range c.splitSentences(para) {
			if utf8.RuneCountInString(sent) > c.maxChunkSize {
				sent = string([]rune(sent)[:c.maxChunkSize])
			}
			appendPiece(sent, " ")
		}
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}

	out := chunks[:0]
	for _, ch := range chunks {
		if utf8.RuneCountInString(ch) >= minChunkLength {
			out = append(out, ch)
		}
	}
	return out
}

func (c *Chunker) splitParagraphs(text string) []string {
	parts := c.paragraphRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Chunker) splitSentences(paragraph string) []string {
	raw := c.sentenceRe.FindAllString(paragraph, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// tailWords returns the last overlapWords words of s, dropping words
// from the front until the seed fits within maxRunes.
func (c *Chunker) tailWords(s string, maxRunes int) string {
	if c.overlapWords == 0 || maxRunes <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > c.overlapWords {
		words = words[len(words)-c.overlapWords:]
	}
	for len(words) > 0 {
		seed := strings.Join(words, " ")
		if utf8.RuneCountInString(seed) <= maxRunes {
			return seed
		}
		words = words[1:]
	}
	return ""
}
