// Package concept implements C3, the LLM-backed concept extractor: it
// turns a passage of text plus C2's statistical candidates into a set of
// named, importance-scored concepts.
package concept

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/hrygo/mindmapforge/core/boundary"
	"github.com/hrygo/mindmapforge/core/model"
	"github.com/hrygo/mindmapforge/llmclient"
)

// directCallThreshold is the byte length above which text is chunked and
// processed in parallel instead of sent to the LLM in one request.
const directCallThreshold = 6000

const (
	chunkSize    = 2000
	chunkOverlap = 200
)

// Extractor turns text and statistical candidates into named concepts.
type Extractor struct {
	llm llmclient.Service
}

// NewExtractor builds an Extractor over an already-configured LLM client.
func NewExtractor(llm llmclient.Service) *Extractor {
	return &Extractor{llm: llm}
}

// Extract dispatches text directly to the LLM when it is short enough,
// otherwise chunks it and merges per-chunk results by lowercased concept
// text, keeping the highest importance seen for each.
func (e *Extractor) Extract(ctx context.Context, text string, candidates []model.Candidate) ([]model.Concept, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.NewError(model.KindInvalidInput, "empty text")
	}

	if len(text) <= directCallThreshold {
		return e.extractChunk(ctx, text, candidates)
	}

	chunks := boundary.Chunk(text, chunkSize, chunkOverlap)
	slog.Info("concept: chunking long text for extraction", "chunks", len(chunks), "text_bytes", len(text))

	type chunkResult struct {
		concepts []model.Concept
		err      error
	}
	results := make([]chunkResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			concepts, err := e.extractChunk(ctx, chunk, candidates)
			results[i] = chunkResult{concepts: concepts, err: err}
		}(i, chunk)
	}
	wg.Wait()

	merged := make(map[string]model.Concept)
	for i, r := range results {
		if r.err != nil {
			slog.Warn("concept: chunk extraction failed, skipping", "chunk_index", i, "error", r.err)
			continue
		}
		for _, c := range r.concepts {
			key := strings.ToLower(c.Text)
			if existing, ok := merged[key]; !ok || c.Importance > existing.Importance {
				merged[key] = c
			}
		}
	}

	if len(merged) == 0 {
		return nil, model.NewError(model.KindNoConceptsExtracted, "no concepts extracted from any chunk")
	}

	out := make([]model.Concept, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	return out, nil
}

func (e *Extractor) extractChunk(ctx context.Context, text string, candidates []model.Candidate) ([]model.Concept, error) {
	_ = numCtxHint(len(text)) // computed but not sent; see prompt.go

	raw, err := e.llm.Chat(ctx, systemPrompt, buildUserPrompt(text, candidates))
	if err != nil {
		return nil, model.WrapError(model.KindUpstream, "LLM concept extraction call failed", err)
	}

	concepts, err := parseConcepts(raw)
	if err != nil {
		return nil, model.WrapError(model.KindUpstream, "failed to parse LLM concept response", err)
	}
	if len(concepts) == 0 {
		return nil, model.NewError(model.KindNoConceptsExtracted, "LLM returned no concepts")
	}
	return concepts, nil
}

type conceptObjectForm struct {
	Concepts []struct {
		Name       string  `json:"name"`
		Importance float32 `json:"importance"`
	} `json:"concepts"`
}

// parseConcepts accepts two response shapes: the documented object form
// {"concepts":[{"name","importance"}]}, and a legacy bare string array
// ["concept a","concept b"] that some providers still produce despite the
// prompt. Legacy entries get model.DefaultImportance.
func parseConcepts(raw string) ([]model.Concept, error) {
	payload := extractJSON(raw)

	var obj conceptObjectForm
	if err := json.Unmarshal([]byte(payload), &obj); err == nil && len(obj.Concepts) > 0 {
		out := make([]model.Concept, 0, len(obj.Concepts))
		for _, c := range obj.Concepts {
			name := cleanConceptName(c.Name)
			if name == "" || len(strings.Fields(name)) > 3 {
				continue
			}
			importance := c.Importance
			if importance <= 0 {
				importance = model.DefaultImportance
			} else if importance > 1.0 {
				importance = 1.0
			}
			out = append(out, model.Concept{Text: name, Importance: importance})
		}
		return out, nil
	}

	var legacy []string
	if err := json.Unmarshal([]byte(payload), &legacy); err == nil {
		out := make([]model.Concept, 0, len(legacy))
		for _, name := range legacy {
			cleaned := cleanConceptName(name)
			if cleaned == "" || len(strings.Fields(cleaned)) > 3 {
				continue
			}
			out = append(out, model.Concept{Text: cleaned, Importance: model.DefaultImportance})
		}
		return out, nil
	}

	return nil, model.NewError(model.KindUpstream, "LLM response did not match either supported concept shape")
}

// extractJSON trims LLM chatter and code fences around the JSON payload by
// slicing between the first '{' or '[' and the matching last '}' or ']'.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}
	openChar := raw[start]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}
	end := strings.LastIndexByte(raw, closeChar)
	if end < start {
		return raw
	}
	return raw[start : end+1]
}

func cleanConceptName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "\"'.,;:")
	return strings.ToLower(name)
}
