// Package embedvec implements C4, the embedding generator: it trims and
// filters concept text, then delegates to an embedclient.Service for the
// actual vectors.
package embedvec

import (
	"context"
	"strings"

	"github.com/hrygo/mindmapforge/core/model"
	"github.com/hrygo/mindmapforge/embedclient"
)

// Generator embeds concept text into fixed-dimension vectors.
type Generator struct {
	client embedclient.Service
}

// NewGenerator builds a Generator over an already-configured embedding
// client.
func NewGenerator(client embedclient.Service) *Generator {
	return &Generator{client: client}
}

// Embed trims each concept's text, drops any that go empty, and requests
// vectors for the remainder. The returned slice is parallel to the
// filtered, non-empty concept texts — not to the input slice — so callers
// must use the returned texts (or re-derive the mapping) rather than
// assume index alignment with concepts.
func (g *Generator) Embed(ctx context.Context, concepts []model.Concept) ([]string, []model.Embedding, error) {
	texts := make([]string, 0, len(concepts))
	for _, c := range concepts {
		trimmed := strings.TrimSpace(c.Text)
		if trimmed == "" {
			continue
		}
		texts = append(texts, trimmed)
	}

	if len(texts) == 0 {
		return nil, nil, model.NewError(model.KindInvalidInput, "no non-empty concept text to embed")
	}

	vectors, err := g.client.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, model.WrapError(model.KindEmbeddingGeneration, "embedding batch failed", err)
	}
	if len(vectors) != len(texts) {
		return nil, nil, model.NewError(model.KindEmbeddingGeneration, "embedding count does not match input text count")
	}

	return texts, vectors, nil
}
