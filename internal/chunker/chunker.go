// Package chunker splits document text into bounded, sentence-aligned chunks
// sized for local summarization models.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	. "github.com/roelfdiedericks/docsum/internal/logging"
	"github.com/roelfdiedericks/docsum/internal/tokens"
)

const (
	DefaultMaxInputChars = 4000
	DefaultMaxChunkChars = 500
	DefaultMaxChunks     = 5
)

// Options bounds the chunking. All lengths are in characters (code points).
type Options struct {
	MaxInputChars int
	MaxChunkChars int
	MaxChunks     int
}

// DefaultOptions returns the 4000/500/5 limits.
func DefaultOptions() Options {
	return Options{
		MaxInputChars: DefaultMaxInputChars,
		MaxChunkChars: DefaultMaxChunkChars,
		MaxChunks:     DefaultMaxChunks,
	}
}

// WithDefaults fills every non-positive limit from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.MaxInputChars <= 0 {
		o.MaxInputChars = d.MaxInputChars
	}
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = d.MaxChunkChars
	}
	if o.MaxChunks <= 0 {
		o.MaxChunks = d.MaxChunks
	}
	return o
}

// Chunk is one contiguous slice of normalized text.
type Chunk struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Words  int    `json:"words"`
	Tokens int    `json:"tokens"`
}

// Result is the output of Split.
type Result struct {
	Chunks []Chunk `json:"chunks"`
	// Truncated is set when the input exceeded MaxInputChars.
	Truncated bool `json:"truncated"`
	// Dropped counts chunks discarded by the MaxChunks cap. Their content is
	// not summarized.
	Dropped int `json:"dropped"`
}

// Texts returns the chunk strings in order.
func (r Result) Texts() []string {
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Text
	}
	return out
}

// Normalize collapses whitespace runs to single spaces and trims. Unicode
// spaces such as NBSP count as whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate cuts text to at most max characters.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

// Len is the character length used for every chunk limit.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

var sentenceEnd = regexp.MustCompile(`[.!?] +`)

// SplitSentences splits after '.', '!' or '?' when followed by spaces.
// The separating spaces are dropped; punctuation stays with its sentence.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Split normalizes and truncates text, then greedily packs whole sentences
// into chunks of at most MaxChunkChars. A sentence longer than the limit
// becomes its own chunk. Chunks beyond MaxChunks are dropped without error.
func Split(text string, opts Options) Result {
	opts = opts.WithDefaults()

	var res Result
	clean := Normalize(text)
	if Len(clean) > opts.MaxInputChars {
		clean = strings.TrimSpace(Truncate(clean, opts.MaxInputChars))
		res.Truncated = true
	}
	if clean == "" {
		return res
	}

	var packed []string
	var current strings.Builder
	currentLen := 0
	for _, sentence := range SplitSentences(clean) {
		sl := Len(sentence)
		if currentLen > 0 && currentLen+1+sl > opts.MaxChunkChars {
			packed = append(packed, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sl
	}
	if currentLen > 0 {
		packed = append(packed, current.String())
	}

	if len(packed) > opts.MaxChunks {
		res.Dropped = len(packed) - opts.MaxChunks
		packed = packed[:opts.MaxChunks]
		L_warn("chunker: chunk cap reached, trailing text dropped", "kept", opts.MaxChunks, "dropped", res.Dropped)
	}

	res.Chunks = make([]Chunk, len(packed))
	for i, p := range packed {
		res.Chunks[i] = Chunk{
			Index:  i,
			Text:   p,
			Words:  len(strings.Fields(p)),
			Tokens: tokens.Estimate(p),
		}
	}
	L_debug("chunker: split complete", "chars", Len(clean), "chunks", len(res.Chunks), "truncated", res.Truncated)
	return res
}

// Chunks is the plain-string form of Split with default input truncation.
func Chunks(text string, maxChunkChars, maxChunks int) []string {
	return Split(text, Options{MaxChunkChars: maxChunkChars, MaxChunks: maxChunks}).Texts()
}
