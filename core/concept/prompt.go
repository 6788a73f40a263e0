package concept

import (
	"fmt"
	"strings"

	"github.com/hrygo/mindmapforge/core/model"
)

const systemPrompt = `You are a concept extraction engine for a 3-D mind-map builder.
Given a passage of text and a list of candidate keywords already scored by
a statistical extractor, return the concepts that best summarize the
passage's ideas.

Respond with ONLY a JSON object of this exact shape, no prose, no markdown
fences:
{"concepts":[{"name":"concept text","importance":0.0}]}

Rules:
- "importance" is a float between 0 and 1, your confidence that this
  concept is central to the passage.
- Prefer short noun phrases (1-3 words) over full sentences.
- Deduplicate near-synonyms; keep the clearer phrasing.
- Return at most 15 concepts.`

func buildUserPrompt(text string, candidates []model.Candidate) string {
	var b strings.Builder
	b.WriteString("Candidate keywords (statistical extractor, for reference only):\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s (score %.2f)\n", c.Phrase, c.Score)
	}
	b.WriteString("\nPassage:\n")
	b.WriteString(text)
	return b.String()
}

// numCtxHint estimates a generous context window for providers that honor
// it out-of-band. It is not wired into the request itself: the chat
// completion API this client speaks has no portable field for it.
func numCtxHint(textBytes int) int {
	hint := textBytes/3 + 1024
	if hint < 4096 {
		return 4096
	}
	return hint
}
