package candidate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractShortTextEmpty(t *testing.T) {
	assert.Empty(t, Extract("Too short", 20))
	assert.Empty(t, Extract("", 20))
}

func TestExtractBasic(t *testing.T) {
	text := "Machine learning is a subset of artificial intelligence. " +
		"Machine learning algorithms build models based on sample data. " +
		"Neural networks are a key component of deep learning. " +
		"Deep learning uses neural networks with many layers."

	candidates := Extract(text, 20)
	assert.NotEmpty(t, candidates)

	var found bool
	for _, c := range candidates {
		if strings.Contains(c.Phrase, "learning") || strings.Contains(c.Phrase, "neural") {
			found = true
		}
	}
	assert.True(t, found, "expected a learning/neural candidate among %+v", candidates)
}

func TestExtractScoresNormalized(t *testing.T) {
	text := "Go is a systems programming language focused on safety, concurrency, " +
		"and performance. Go prevents memory errors without garbage collection. " +
		"The Go compiler enforces strict ownership rules for memory safety."

	for _, c := range Extract(text, 20) {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}

func TestExtractMaxPhraseLength(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. " +
		"Natural language processing is a field of computer science. " +
		"Text analysis involves many different techniques and algorithms."

	for _, c := range Extract(text, 20) {
		assert.LessOrEqual(t, len(strings.Fields(c.Phrase)), 3)
		assert.GreaterOrEqual(t, len(c.Phrase), 2)
	}
}

func TestExtractStemDedup(t *testing.T) {
	text := "We are learning about learning systems. The learner keeps learning every day. " +
		"Learning happens continuously as the learner learns new material about learning."

	candidates := Extract(text, 30)
	variants := map[string]bool{"learn": true, "learning": true, "learned": true, "learns": true}
	count := 0
	for _, c := range candidates {
		if variants[c.Phrase] {
			count++
		}
	}
	assert.LessOrEqual(t, count, 1, "morphological variants of learn should collapse to one surviving candidate")
}

func TestExtractRespectsMaxCandidates(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta epsilon zeta eta theta iota kappa. ", 20)
	candidates := Extract(text, 5)
	assert.LessOrEqual(t, len(candidates), 5)
}
