// Package layout implements C6, the mind-map layout: PCA-seeded
// force-directed placement of merged concept groups in ℝ³.
package layout

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hrygo/mindmapforge/core/merge"
	"github.com/hrygo/mindmapforge/core/model"
)

// Params holds the force-directed simulation's tunable constants. The
// zero value is never used directly; call DefaultParams.
type Params struct {
	AttractionStrength  float32
	RepulsionStrength   float32
	CenterGravity       float32
	Damping             float32
	MinDistance         float32
	MaxVelocity         float32
	Iterations          int
	SimilarityThreshold float32
}

// DefaultParams matches the reference implementation's defaults exactly.
func DefaultParams() Params {
	return Params{
		AttractionStrength:  2.0,
		RepulsionStrength:   10.0,
		CenterGravity:       0.1,
		Damping:             0.9,
		MinDistance:         3.0,
		MaxVelocity:         2.0,
		Iterations:          150,
		SimilarityThreshold: float32(merge.DefaultSimilarityThreshold),
	}
}

const convergenceThreshold = 0.001

type vec3 [3]float32

// Position is a group's final 3-D coordinate.
type Position = vec3

// Run lays out m groups' averaged embeddings: seeds positions via PCA, then
// iterates the force-directed physics step until convergence or the
// iteration cap. It returns the final positions and the continuous
// (unthresholded) similarity matrix used both for attraction and for C7's
// connection/importance calculations.
func Run(embeddings []model.Embedding, params Params) ([]Position, model.SimilarityMatrix, error) {
	n := len(embeddings)
	if n == 0 {
		return nil, nil, model.NewError(model.KindDimensionality, "no concepts to layout")
	}

	sim := buildContinuousSimilarity(embeddings)

	positions, err := seedPCA(embeddings)
	if err != nil {
		return nil, nil, err
	}

	for iter := 0; iter < params.Iterations; iter++ {
		energy := physicsStep(positions, sim, params)
		if iter%50 == 0 {
			slog.Info("force-directed iteration", "iteration", iter, "of", params.Iterations, "energy", energy)
		}
		if energy < convergenceThreshold {
			slog.Info("force layout converged", "iteration", iter, "energy", energy)
			break
		}
	}

	return positions, sim, nil
}

// buildContinuousSimilarity keeps every positive cosine similarity,
// preserving the attraction gradient (no thresholding, unlike C5).
func buildContinuousSimilarity(embeddings []model.Embedding) model.SimilarityMatrix {
	n := len(embeddings)
	sim := model.NewSimilarityMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := float32(merge.CosineSimilarity(embeddings[i], embeddings[j]))
			if s > 0 {
				sim[i][j] = s
				sim[j][i] = s
			}
		}
	}
	return sim
}

// seedPCA projects the averaged embeddings onto their top 3 principal
// components and rescales each axis independently to [-5, 5]. With two or
// fewer groups, PCA is meaningless, so points are placed on a line.
func seedPCA(embeddings []model.Embedding) ([]Position, error) {
	n := len(embeddings)
	if n <= 2 {
		positions := make([]Position, n)
		for i := range positions {
			positions[i] = Position{float32(i)*3 - 1.5, 0, 0}
		}
		return positions, nil
	}

	dim := len(embeddings[0])
	data := make([]float64, 0, n*dim)
	for _, e := range embeddings {
		for d := 0; d < dim; d++ {
			if d < len(e) {
				data = append(data, float64(e[d]))
			} else {
				data = append(data, 0)
			}
		}
	}
	x := mat.NewDense(n, dim, data)

	nComponents := 3
	if dim < nComponents {
		nComponents = dim
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, model.NewError(model.KindDimensionality, "PCA fitting failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	axes := mat.NewDense(dim, nComponents, nil)
	axes.Copy(vecs.Slice(0, dim, 0, nComponents))

	projected := mat.NewDense(n, nComponents, nil)
	projected.Mul(x, axes)

	minVals := [3]float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
	maxVals := [3]float64{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
	for i := 0; i < n; i++ {
		for d := 0; d < nComponents; d++ {
			v := projected.At(i, d)
			if v < minVals[d] {
				minVals[d] = v
			}
			if v > maxVals[d] {
				maxVals[d] = v
			}
		}
	}

	positions := make([]Position, n)
	for i := 0; i < n; i++ {
		var p Position
		for d := 0; d < nComponents; d++ {
			rng := maxVals[d] - minVals[d]
			if rng > 1e-6 {
				p[d] = float32((projected.At(i, d)-minVals[d])/rng*10 - 5)
			}
		}
		positions[i] = p
	}

	slog.Info("PCA initialized positions", "count", n)
	return positions, nil
}

// physicsStep applies one Jacobi-style update — every node's new velocity
// is computed entirely from the previous iteration's positions — and
// returns the accumulated kinetic energy for convergence detection.
func physicsStep(positions []Position, sim model.SimilarityMatrix, params Params) float32 {
	n := len(positions)
	newPositions := make([]Position, n)
	var totalEnergy float32

	for i := 0; i < n; i++ {
		var v vec3

		for j := 0; j < n; j++ {
			if i == j || sim[i][j] <= 0 {
				continue
			}
			dir := normalize(sub(positions[j], positions[i]))
			force := sim[i][j] * params.AttractionStrength
			v = addScaled(v, dir, force)
		}

		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dist := distance(positions[i], positions[j])
			dir := normalize(sub(positions[i], positions[j]))
			force := params.RepulsionStrength / (dist*dist + 0.01)
			v = addScaled(v, dir, force)
		}

		toCenter := scale(positions[i], -params.CenterGravity)
		v = add(v, toCenter)

		v = scale(v, params.Damping)
		v = clampMagnitude(v, params.MaxVelocity)

		totalEnergy += v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
		newPositions[i] = add(positions[i], v)
	}

	copy(positions, newPositions)
	return totalEnergy
}

func sub(a, b vec3) vec3   { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func add(a, b vec3) vec3   { return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func scale(v vec3, s float32) vec3 {
	return vec3{v[0] * s, v[1] * s, v[2] * s}
}
func addScaled(a, b vec3, s float32) vec3 {
	return vec3{a[0] + b[0]*s, a[1] + b[1]*s, a[2] + b[2]*s}
}
func distance(a, b vec3) float32 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}
func normalize(d vec3) vec3 {
	mag := float32(math.Sqrt(float64(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])))
	if mag < 1e-4 {
		return vec3{0, 0, 0}
	}
	return vec3{d[0] / mag, d[1] / mag, d[2] / mag}
}
func clampMagnitude(v vec3, maxMag float32) vec3 {
	mag := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if mag > maxMag && mag > 1e-4 {
		s := maxMag / mag
		return vec3{v[0] * s, v[1] * s, v[2] * s}
	}
	return v
}
