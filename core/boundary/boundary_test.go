package boundary

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortTextPassthrough(t *testing.T) {
	got := Truncate("Hello world.", 500)
	if got != "Hello world." {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateEmptyText(t *testing.T) {
	if got := Truncate("", 500); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateCutsAtLastSentence(t *testing.T) {
	text := "The quick brown fox jumped over the lazy dog. " + strings.Repeat("a", 460)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if !strings.Contains(got, "dog.") {
		t.Fatalf("expected cut after %q, got %q", "dog.", got)
	}
	if len(got) > 503 {
		t.Fatalf("result too long: %d bytes", len(got))
	}
}

func TestTruncateQuestionAndExclamation(t *testing.T) {
	text := "Is this a question? " + strings.Repeat("x", 490) + " More text here."
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") || !strings.Contains(got, "question?") {
		t.Fatalf("got %q", got)
	}

	text2 := "What an amazing thing! " + strings.Repeat("x", 490) + " More text here."
	got2 := Truncate(text2, 500)
	if !strings.HasSuffix(got2, "...") || !strings.Contains(got2, "thing!") {
		t.Fatalf("got %q", got2)
	}
}

func TestTruncateAbbreviationSkip(t *testing.T) {
	text := "Dr. Smith went to the store and bought groceries for the week. " + strings.Repeat("a", 450)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "week.") {
		t.Fatalf("expected cut at %q, not at the abbreviation, got %q", "week.", got)
	}
}

func TestTruncateDecimalNotBoundary(t *testing.T) {
	text := "The value of pi is approximately 3.14 and that is a famous constant in mathematics. " + strings.Repeat("a", 430)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "mathematics.") {
		t.Fatalf("expected cut at %q, got %q", "mathematics.", got)
	}
}

func TestTruncateParagraphBreakFallback(t *testing.T) {
	line := strings.Repeat("x", 200)
	text := line + "\n\n" + strings.Repeat("y", 400)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, "yy") {
		t.Fatalf("expected cut at paragraph break, got %q", got)
	}
}

func TestTruncateMarkdownHeadingFallback(t *testing.T) {
	line := strings.Repeat("x", 200)
	text := line + "\n# Heading\n" + strings.Repeat("y", 400)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, "Heading") {
		t.Fatalf("expected cut before heading, got %q", got)
	}
}

func TestTruncateWordBoundaryFallback(t *testing.T) {
	text := strings.Repeat("word", 100) + " " + strings.Repeat("tail", 100)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	trimmed := strings.TrimSuffix(got, "...")
	if strings.HasSuffix(trimmed, "wor") {
		t.Fatalf("cut mid-word: %q", got)
	}
}

func TestTruncateSingleLongWordRawCut(t *testing.T) {
	text := strings.Repeat("a", 1000)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if len(got) != 503 {
		t.Fatalf("expected 503 bytes, got %d", len(got))
	}
}

func TestTruncateMultibyteUTF8NoPanic(t *testing.T) {
	text := strings.Repeat("🌍", 200)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
}

func TestTruncateMinPositionThreshold(t *testing.T) {
	text := "Hi. " + strings.Repeat("word ", 110) + "end of text"
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	trimmed := strings.TrimSuffix(got, "...")
	if len(trimmed) <= 100 {
		t.Fatalf("cut too early, %q leaked the early abbreviation-adjacent boundary", got)
	}
}

func TestTruncateEllipsisHandling(t *testing.T) {
	text := "Something happened... " + strings.Repeat("x", 500) + " more text here."
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "happened") {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateURLPeriodSkip(t *testing.T) {
	text := "Visit example.com for more info and also check out the documentation that is available online for all users. " + strings.Repeat("a", 420)
	got := Truncate(text, 500)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "users.") {
		t.Fatalf("expected cut at %q, got %q", "users.", got)
	}
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	text := "a short piece of text"
	chunks := Chunk(text, 2000, 200)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("got %v", chunks)
	}
}

func TestChunkCoverageAndOverlap(t *testing.T) {
	// Build ~10000 bytes of sentence-like text so tier A has material to bite on.
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("The system processes natural language text efficiently. ")
	}
	text := b.String()

	chunks := Chunk(text, 2000, 200)
	if len(chunks) < 5 {
		t.Fatalf("expected >= 5 chunks for %d bytes, got %d", len(text), len(chunks))
	}

	for i, c := range chunks {
		if len(c) > 2000 {
			t.Fatalf("chunk %d exceeds chunk_size: %d bytes", i, len(c))
		}
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8", i)
		}
	}

	// Each chunk continues the text at the previous chunk's end minus the
	// 200-byte overlap, and the last chunk runs to the end of the text.
	start := 0
	for i, c := range chunks {
		if !strings.HasPrefix(text[start:], c) {
			t.Fatalf("chunk %d does not continue the text at byte %d", i, start)
		}
		if i == len(chunks)-1 {
			if start+len(c) != len(text) {
				t.Fatalf("chunks do not cover the text: last chunk ends at %d of %d", start+len(c), len(text))
			}
			break
		}
		start += len(c) - 200
	}
}

func TestChunkProgressOnPathologicalInput(t *testing.T) {
	// No natural boundaries anywhere: must still terminate via the raw cut tier.
	text := strings.Repeat("a", 9000)
	chunks := Chunk(text, 2000, 200)
	if len(chunks) < 4 {
		t.Fatalf("expected forward progress to produce multiple chunks, got %d", len(chunks))
	}
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	if total < len(text) {
		t.Fatalf("chunks lost bytes: total %d < source %d", total, len(text))
	}
}
