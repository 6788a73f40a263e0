// Package boundary implements C1, the boundary splitter: UTF-8-safe text
// truncation and chunking at natural linguistic boundaries.
package boundary

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// abbreviations that end with a period but are not sentence endings.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"inc": true, "ltd": true, "dept": true, "approx": true, "fig": true,
	"eq": true, "vol": true, "no": true, "gen": true, "gov": true,
	"eg": true, "ie": true,
}

// tlds are common top-level domains that should not be treated as
// sentence-ending periods.
var tlds = map[string]bool{
	"com": true, "org": true, "net": true, "io": true,
	"edu": true, "gov": true, "co": true,
}

var sentenceRe = regexp.MustCompile(`[a-z,)][.!?](\s|$)`)

// floorCharBoundary returns the largest byte index <= idx that falls on a
// UTF-8 rune boundary in s.
func floorCharBoundary(s string, idx int) int {
	if idx >= len(s) {
		return len(s)
	}
	if idx < 0 {
		return 0
	}
	for idx > 0 && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}

// isAbbreviation reports whether the sentence-ending candidate at
// matchStart (the byte index of the [a-z,)] character) is actually an
// abbreviation, a TLD, or a single-letter initial rather than a real
// sentence end.
func isAbbreviation(text string, matchStart int) bool {
	before := text[:matchStart+1]
	wordStart := 0
	if p := strings.LastIndexFunc(before, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }); p >= 0 {
		wordStart = p + 1
	}
	word := strings.ToLower(text[wordStart : matchStart+1])

	if len([]rune(word)) == 1 {
		r := []rune(word)[0]
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}

	return abbreviations[word] || tlds[word]
}

// tieredCut runs tiers A-E of the boundary search over window, returning the
// cut position and true if one of those tiers found a natural boundary. The
// caller is responsible for tier F (the raw char-safe cut at len(window)).
func tieredCut(window string, minPos int) (int, bool) {
	// Tier A: sentence boundary.
	var bestSentence = -1
	for _, m := range sentenceRe.FindAllStringIndex(window, -1) {
		cut := m[0] + 2
		if cut >= minPos && !isAbbreviation(window, m[0]) {
			bestSentence = cut
		}
	}
	if bestSentence >= 0 {
		return bestSentence, true
	}

	// Tier B: paragraph break.
	if pos := strings.LastIndex(window, "\n\n"); pos >= 0 && pos >= minPos {
		return pos, true
	}

	// Tier C: markdown heading.
	if pos := strings.LastIndex(window, "\n#"); pos >= 0 && pos >= minPos {
		return pos, true
	}

	// Tier D: single newline.
	if pos := strings.LastIndex(window, "\n"); pos >= 0 && pos >= minPos {
		return pos, true
	}

	// Tier E: any whitespace, no threshold.
	if pos := strings.LastIndexFunc(window, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}); pos > 0 {
		return pos, true
	}

	return 0, false
}

// Truncate cuts text to at most max_bytes bytes at the best available
// natural boundary, appending a literal "...". If text already fits, it is
// returned unchanged.
func Truncate(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}

	safeEnd := floorCharBoundary(text, maxBytes)
	if safeEnd == 0 {
		return "..."
	}

	window := text[:safeEnd]
	minPos := maxBytes / 5

	if pos, ok := tieredCut(window, minPos); ok {
		return text[:pos] + "..."
	}

	return window + "..."
}

// Chunk splits text into overlapping pieces no larger than chunkSize bytes,
// each cut at a natural boundary. Consecutive chunks share approximately
// overlap bytes so downstream processing has context continuity.
func Chunk(text string, chunkSize, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		remaining := text[start:]
		if len(remaining) <= chunkSize {
			chunks = append(chunks, remaining)
			break
		}

		safeEnd := floorCharBoundary(remaining, chunkSize)
		window := remaining[:safeEnd]
		minPos := chunkSize / 5

		actualEnd := safeEnd
		if pos, ok := tieredCut(window, minPos); ok {
			actualEnd = pos
		}
		if actualEnd == 0 {
			actualEnd = safeEnd
		}

		chunks = append(chunks, remaining[:actualEnd])

		newStart := start + actualEnd - overlap
		if newStart <= start {
			newStart = start + 1
		}
		start = newStart
	}

	return chunks
}
