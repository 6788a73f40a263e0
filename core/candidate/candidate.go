// Package candidate implements C2, the candidate keyword extractor: a
// RAKE + TF-IDF hybrid with stemmed deduplication.
package candidate

import (
	"sort"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"

	"github.com/hrygo/mindmapforge/core/model"
)

const minTextBytes = 50

// Extract runs the seven-step RAKE+TF-IDF hybrid over text and returns at
// most maxCandidates candidate keywords sorted by score descending.
func Extract(text string, maxCandidates int) []model.Candidate {
	if len(text) < minTextBytes {
		return nil
	}

	scored := rakeStage(text)
	tfidfStage(text, scored)

	filtered := filterStage(scored)
	deduped := stemDedupStage(filtered)

	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].Score != deduped[j].Score {
			return deduped[i].Score > deduped[j].Score
		}
		return deduped[i].Phrase < deduped[j].Phrase
	})

	if len(deduped) > maxCandidates {
		deduped = deduped[:maxCandidates]
	}
	return deduped
}

// rakeStage runs step 1 (RAKE) and step 2 (normalize + merge).
func rakeStage(text string) map[string]float64 {
	phrases := rakePhrases(text)
	wordScores := rakeWordScores(phrases)
	phraseScores := rakePhraseScores(phrases, wordScores)

	rakeMax := maxScore(phraseScores)
	if m := maxScore(wordScores); m > rakeMax {
		rakeMax = m
	}

	scored := make(map[string]float64)
	if rakeMax > 0 {
		for phrase, s := range phraseScores {
			mergeMax(scored, phrase, s/rakeMax)
		}
		for word, s := range wordScores {
			mergeMax(scored, word, s/rakeMax)
		}
	}
	return scored
}

func mergeMax(m map[string]float64, key string, value float64) {
	if existing, ok := m[key]; !ok || value > existing {
		m[key] = value
	}
}

// tfidfStage runs step 3 (TF-IDF single words) and step 4 (TF-IDF
// bigrams), folding both into scored using the boost-on-overlap rule.
func tfidfStage(text string, scored map[string]float64) {
	words := tfidfWordScores(text)
	tfidfMax := maxScore(words)
	if tfidfMax <= 0 {
		return
	}

	boost := func(key string, normalized float64) {
		if existing, ok := scored[key]; ok {
			scored[key] = minF(1.0, existing+normalized*0.5)
		} else {
			scored[key] = normalized * 0.8
		}
	}

	for word, s := range words {
		boost(word, s/tfidfMax)
	}

	bigrams := tfidfBigrams(text, words)
	for bigram, s := range bigrams {
		boost(bigram, s/tfidfMax)
	}
}

// filterStage applies step 5: drop entries with more than 3 tokens or
// fewer than 2 characters.
func filterStage(scored map[string]float64) []model.Candidate {
	out := make([]model.Candidate, 0, len(scored))
	for phrase, score := range scored {
		if len(phrase) < 2 {
			continue
		}
		if len(strings.Fields(phrase)) > 3 {
			continue
		}
		out = append(out, model.Candidate{Phrase: phrase, Score: score})
	}
	return out
}

// stemDedupStage runs step 6: group candidates by their per-token Porter
// stem, keep the best-scoring surface form per group, and boost groups
// with more than one surviving surface form.
func stemDedupStage(candidates []model.Candidate) []model.Candidate {
	type group struct {
		best    model.Candidate
		variety int
	}
	groups := make(map[string]*group)

	for _, c := range candidates {
		tokens := strings.Fields(c.Phrase)
		stems := make([]string, len(tokens))
		for i, t := range tokens {
			stems[i] = porterstemmer.StemString(t)
		}
		key := strings.Join(stems, " ")

		g, ok := groups[key]
		if !ok {
			groups[key] = &group{best: c, variety: 1}
			continue
		}
		g.variety++
		if c.Score > g.best.Score {
			g.best = c
		}
	}

	out := make([]model.Candidate, 0, len(groups))
	for _, g := range groups {
		c := g.best
		if g.variety > 1 {
			c.Score = minF(1.0, c.Score+0.1)
		}
		out = append(out, c)
	}
	return out
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
