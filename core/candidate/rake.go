package candidate

import (
	"regexp"
	"strings"
)

// splitDelimRe marks the punctuation RAKE treats as a phrase boundary, in
// addition to stop words.
var splitDelimRe = regexp.MustCompile(`[.!?,;:()\[\]{}"]`)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?`)

// rakePhrases splits text into candidate phrases: maximal runs of
// non-stop-word tokens, broken at punctuation and stop words, matching the
// classic RAKE phrase-extraction step.
func rakePhrases(text string) [][]string {
	var phrases [][]string
	var current []string

	flush := func() {
		if len(current) > 0 {
			phrases = append(phrases, current)
			current = nil
		}
	}

	segments := splitDelimRe.Split(text, -1)
	for _, seg := range segments {
		words := wordRe.FindAllString(strings.ToLower(seg), -1)
		for _, w := range words {
			if isStopword(w) {
				flush()
				continue
			}
			current = append(current, w)
		}
		flush()
	}
	return phrases
}

// rakeWordScores computes the RAKE word-degree score for every distinct
// word across all phrases: degree(w)/freq(w), where degree sums
// co-occurrence (including self) within each phrase the word appears in.
func rakeWordScores(phrases [][]string) map[string]float64 {
	degree := make(map[string]float64)
	freq := make(map[string]float64)

	for _, phrase := range phrases {
		n := float64(len(phrase))
		for _, w := range phrase {
			freq[w]++
			degree[w] += n
		}
	}

	scores := make(map[string]float64, len(freq))
	for w, f := range freq {
		scores[w] = degree[w] / f
	}
	return scores
}

// rakePhraseScores sums the word scores of a phrase's constituent words
// (each occurrence counted), yielding one score per unique phrase text.
func rakePhraseScores(phrases [][]string, wordScores map[string]float64) map[string]float64 {
	scores := make(map[string]float64)
	for _, phrase := range phrases {
		if len(phrase) == 0 || len(phrase) > 3 {
			continue
		}
		var total float64
		for _, w := range phrase {
			total += wordScores[w]
		}
		key := strings.Join(phrase, " ")
		if existing, ok := scores[key]; !ok || total > existing {
			scores[key] = total
		}
	}
	return scores
}
