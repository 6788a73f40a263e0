package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mindmapforge/core/model"
)

func randomEmbeddings(n, dim int, seed int) []model.Embedding {
	embeddings := make([]model.Embedding, n)
	state := uint32(seed + 1)
	next := func() float32 {
		state = state*1664525 + 1013904223
		return float32(state%2000)/1000 - 1
	}
	for i := range embeddings {
		e := make(model.Embedding, dim)
		for d := range e {
			e[d] = next()
		}
		embeddings[i] = e
	}
	return embeddings
}

func TestRunTwoPointsPlacedOnLine(t *testing.T) {
	embeddings := []model.Embedding{{1, 0, 0}, {0, 1, 0}}
	positions, sim, err := Run(embeddings, DefaultParams())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.NotEqual(t, positions[0], positions[1])
	assert.Len(t, sim, 2)
}

func TestRunBoundingBoxWithinReason(t *testing.T) {
	embeddings := randomEmbeddings(10, 16, 1)
	positions, _, err := Run(embeddings, DefaultParams())
	require.NoError(t, err)
	require.Len(t, positions, 10)

	for _, p := range positions {
		for d := 0; d < 3; d++ {
			assert.False(t, math.IsNaN(float64(p[d])))
			assert.False(t, math.IsInf(float64(p[d]), 0))
		}
	}
}

func TestPhysicsStepEnergyNonNegative(t *testing.T) {
	positions := []Position{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {5, 5, 5}}
	sim := model.NewSimilarityMatrix(len(positions))
	sim[0][1], sim[1][0] = 0.9, 0.9
	sim[0][2], sim[2][0] = 0.4, 0.4

	params := DefaultParams()
	for i := 0; i < 150; i++ {
		energy := physicsStep(positions, sim, params)
		assert.GreaterOrEqual(t, energy, float32(0))
	}
}

func TestNormalizeZeroVectorReturnsZero(t *testing.T) {
	assert.Equal(t, vec3{0, 0, 0}, normalize(vec3{0, 0, 0}))
}

func TestClampMagnitudeRespectsLimit(t *testing.T) {
	v := clampMagnitude(vec3{10, 0, 0}, 2)
	mag := math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
	assert.InDelta(t, 2.0, mag, 1e-4)
}

func TestRunEmptyInputIsDimensionalityError(t *testing.T) {
	_, _, err := Run(nil, DefaultParams())
	require.Error(t, err)
	var mmErr *model.Error
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, model.KindDimensionality, mmErr.Kind)
}
