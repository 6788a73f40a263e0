package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mindmapforge/core/layout"
	"github.com/hrygo/mindmapforge/core/model"
)

func sampleMerged() []model.MergedGroup {
	return []model.MergedGroup{
		{Members: []string{"a"}, Importances: []float32{0.8}, RootIndex: 5},
		{Members: []string{"b", "c"}, Importances: []float32{0.6, 0.4}, RootIndex: 5},
		{Members: []string{"d"}, Importances: []float32{0.2}, RootIndex: 9},
	}
}

func samplePositions() []layout.Position {
	return []layout.Position{{0, 0, 0}, {1, 1, 1}, {-1, -1, -1}}
}

func TestBuildCompactsGroupIDs(t *testing.T) {
	merged := sampleMerged()
	sim := model.NewSimilarityMatrix(3)
	sim[0][1], sim[1][0] = 0.5, 0.5

	groups := Build(merged, samplePositions(), sim)
	require.Len(t, groups, 3)

	ids := map[int]bool{}
	for _, g := range groups {
		ids[g.GroupID] = true
	}
	for id := range ids {
		assert.GreaterOrEqual(t, id, 0)
		assert.Less(t, id, len(ids))
	}
}

func TestBuildConnectionsSymmetric(t *testing.T) {
	merged := sampleMerged()
	sim := model.NewSimilarityMatrix(3)
	sim[0][2], sim[2][0] = 0.3, 0.3

	groups := Build(merged, samplePositions(), sim)

	found02, found20 := false, false
	for _, c := range groups[0].Connections {
		if c == 2 {
			found02 = true
		}
	}
	for _, c := range groups[2].Connections {
		if c == 0 {
			found20 = true
		}
	}
	assert.True(t, found02)
	assert.True(t, found20)
}

func TestBuildImportanceFloor(t *testing.T) {
	merged := []model.MergedGroup{{Members: []string{"lonely"}, Importances: []float32{0}, RootIndex: 0}}
	positions := []layout.Position{{0, 0, 0}}
	sim := model.NewSimilarityMatrix(1)

	groups := Build(merged, positions, sim)
	require.Len(t, groups, 1)
	assert.GreaterOrEqual(t, groups[0].ImportanceScore, float32(minImportance))
}

func TestBuildMismatchedLengthsReturnsNil(t *testing.T) {
	merged := sampleMerged()
	groups := Build(merged, samplePositions()[:1], model.NewSimilarityMatrix(3))
	assert.Nil(t, groups)
}

func TestBuildEmptyInput(t *testing.T) {
	assert.Nil(t, Build(nil, nil, nil))
}
