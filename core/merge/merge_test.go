package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mindmapforge/core/model"
)

func TestMergeIdenticalEmbeddingsCollapseToOneGroup(t *testing.T) {
	concepts := []model.Concept{
		{Text: "machine learning", Importance: 0.9},
		{Text: "neural networks", Importance: 0.7},
	}
	embeddings := []model.Embedding{
		{1, 0, 0},
		{1, 0, 0},
	}

	groups, err := Merge(concepts, embeddings, DefaultSimilarityThreshold)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"machine learning", "neural networks"}, groups[0].Members)
}

func TestMergeOrthogonalEmbeddingsStaySeparate(t *testing.T) {
	concepts := []model.Concept{
		{Text: "concept a", Importance: 0.5},
		{Text: "concept b", Importance: 0.5},
	}
	embeddings := []model.Embedding{
		{1, 0, 0},
		{0, 1, 0},
	}

	groups, err := Merge(concepts, embeddings, DefaultSimilarityThreshold)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestMergeShapeInvariant(t *testing.T) {
	concepts := []model.Concept{
		{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"},
	}
	embeddings := []model.Embedding{
		{1, 0, 0}, {1, 0.01, 0}, {0, 1, 0}, {0, 0, 1},
	}

	groups, err := Merge(concepts, embeddings, DefaultSimilarityThreshold)
	require.NoError(t, err)

	total := 0
	seen := make(map[string]bool)
	for _, g := range groups {
		total += len(g.Members)
		for _, m := range g.Members {
			assert.False(t, seen[m], "member %q appeared in more than one group", m)
			seen[m] = true
		}
	}
	assert.Equal(t, len(concepts), total)
}

func TestMergeRejectsMismatchedLengths(t *testing.T) {
	_, err := Merge([]model.Concept{{Text: "a"}}, []model.Embedding{}, DefaultSimilarityThreshold)
	require.Error(t, err)
	var mmErr *model.Error
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, model.KindInvalidInput, mmErr.Kind)
}

func TestMergeRejectsZeroDimEmbedding(t *testing.T) {
	_, err := Merge(
		[]model.Concept{{Text: "a"}, {Text: "b"}},
		[]model.Embedding{{1, 0}, {}},
		DefaultSimilarityThreshold,
	)
	require.Error(t, err)
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(model.Embedding{0, 0, 0}, model.Embedding{1, 0, 0}))
}
