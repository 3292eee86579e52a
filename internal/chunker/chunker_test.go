package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"a  b\t\tc\n\nd", "a b c d"},
		{"\n  Term.  Payment. \r\n", "Term. Payment."},
		{"Term one.\u00a0\u00a0Term two.\u2003Term three.", "Term one. Term two. Term three."},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Errorf("Truncate = %q, want %q", got, "héllo")
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate with max 0 = %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "No terminal punctuation", []string{"No terminal punctuation"}},
		{"three", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"no space after period", "Section 1.2 applies. Done.", []string{"Section 1.2 applies.", "Done."}},
		{"multiple spaces", "One.   Two.", []string{"One.", "Two."}},
		{"trailing fragment", "Signed. by the parties", []string{"Signed.", "by the parties"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitUnicodeSpacesBoundSentences(t *testing.T) {
	s := strings.Repeat("a", 199) + "."
	text := strings.Join([]string{s, s, s, s}, "\u00a0")
	res := Split(text, DefaultOptions())

	if len(res.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(res.Chunks), res.Texts())
	}
	for _, c := range res.Chunks {
		if Len(c.Text) > DefaultMaxChunkChars {
			t.Errorf("chunk %d has %d chars", c.Index, Len(c.Text))
		}
	}
}

func TestWithDefaultsFillsEachLimit(t *testing.T) {
	got := Options{MaxChunkChars: 300}.WithDefaults()
	want := Options{MaxInputChars: DefaultMaxInputChars, MaxChunkChars: 300, MaxChunks: DefaultMaxChunks}
	if got != want {
		t.Errorf("WithDefaults = %+v, want %+v", got, want)
	}
}

func TestSplitEmpty(t *testing.T) {
	for _, in := range []string{"", "  \n\t "} {
		res := Split(in, DefaultOptions())
		if len(res.Chunks) != 0 {
			t.Errorf("Split(%q) produced %d chunks, want 0", in, len(res.Chunks))
		}
	}
}

func TestSplitPacksGreedily(t *testing.T) {
	// Each sentence is 10 characters; 3 fit in 32 (10+1+10+1+10), the 4th does not.
	s := "Aaaaaaaaa."
	text := strings.Repeat(s+" ", 7)
	res := Split(text, Options{MaxChunkChars: 32, MaxChunks: 10})

	want := []string{
		s + " " + s + " " + s,
		s + " " + s + " " + s,
		s,
	}
	if got := res.Texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %q, want %q", got, want)
	}
	if res.Chunks[0].Words != 3 || res.Chunks[2].Index != 2 {
		t.Errorf("unexpected chunk metadata: %+v", res.Chunks)
	}
}

func TestSplitOversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("x", 600) + "."
	text := long + " Short one. Another short."
	res := Split(text, DefaultOptions())

	if len(res.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(res.Chunks), res.Texts())
	}
	if res.Chunks[0].Text != long {
		t.Errorf("first chunk should be the oversized sentence, got %d chars", Len(res.Chunks[0].Text))
	}
	if res.Chunks[1].Text != "Short one. Another short." {
		t.Errorf("second chunk = %q", res.Chunks[1].Text)
	}
	for _, c := range res.Chunks {
		if c.Text == "" {
			t.Error("empty chunk emitted")
		}
	}
}

func TestSplitCapsChunkCountSilently(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Clause %02d requires the supplier to deliver the goods on time and in full. ", i)
	}
	// 40 sentences of 73 chars pack six to a chunk: seven chunks before the cap.
	res := Split(b.String(), DefaultOptions())

	if len(res.Chunks) != DefaultMaxChunks {
		t.Fatalf("got %d chunks, want %d", len(res.Chunks), DefaultMaxChunks)
	}
	if res.Dropped == 0 {
		t.Error("expected dropped chunks to be reported")
	}
	for _, c := range res.Chunks {
		if Len(c.Text) > DefaultMaxChunkChars {
			t.Errorf("chunk %d has %d chars, exceeds %d", c.Index, Len(c.Text), DefaultMaxChunkChars)
		}
	}
}

func TestSplitTruncatesInput(t *testing.T) {
	text := strings.Repeat("word ", 2000) // 10000 chars, no sentence breaks
	res := Split(text, Options{MaxChunks: 10})
	if !res.Truncated {
		t.Error("expected Truncated to be set")
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(res.Chunks))
	}
	if n := Len(res.Chunks[0].Text); n > DefaultMaxInputChars {
		t.Errorf("chunk has %d chars, input cap is %d", n, DefaultMaxInputChars)
	}
}

func TestSplitReconstructsSource(t *testing.T) {
	text := "The Supplier shall deliver.  The Buyer shall pay within 30 days!\nIs the Term renewable? Yes."
	res := Split(text, Options{MaxChunkChars: 40})
	joined := strings.Join(res.Texts(), " ")
	if joined != Normalize(text) {
		t.Errorf("joined chunks = %q, want %q", joined, Normalize(text))
	}
}

func TestChunksHelper(t *testing.T) {
	got := Chunks("A. B. C.", 500, 5)
	if !reflect.DeepEqual(got, []string{"A. B. C."}) {
		t.Errorf("Chunks = %q", got)
	}
}
