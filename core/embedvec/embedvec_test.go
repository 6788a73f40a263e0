package embedvec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mindmapforge/core/model"
)

type fakeEmbedClient struct {
	dims int
	err  error
}

func (f *fakeEmbedClient) Dimensions() int { return f.dims }

func (f *fakeEmbedClient) EmbedBatch(ctx context.Context, texts []string) ([]model.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([]model.Embedding, len(texts))
	for i := range texts {
		vectors[i] = model.Embedding{float32(i), 0, 0}
	}
	return vectors, nil
}

func TestEmbedFiltersEmptyTextAndPreservesOrder(t *testing.T) {
	g := NewGenerator(&fakeEmbedClient{dims: 3})
	concepts := []model.Concept{
		{Text: "alpha"}, {Text: "   "}, {Text: "beta"},
	}

	texts, vectors, err := g.Embed(context.Background(), concepts)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, texts)
	require.Len(t, vectors, 2)
}

func TestEmbedAllEmptyReturnsInvalidInput(t *testing.T) {
	g := NewGenerator(&fakeEmbedClient{dims: 3})
	_, _, err := g.Embed(context.Background(), []model.Concept{{Text: "  "}})
	require.Error(t, err)
	var mmErr *model.Error
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, model.KindInvalidInput, mmErr.Kind)
}

func TestEmbedPropagatesClientError(t *testing.T) {
	g := NewGenerator(&fakeEmbedClient{dims: 3, err: assert.AnError})
	_, _, err := g.Embed(context.Background(), []model.Concept{{Text: "alpha"}})
	require.Error(t, err)
	var mmErr *model.Error
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, model.KindEmbeddingGeneration, mmErr.Kind)
}
