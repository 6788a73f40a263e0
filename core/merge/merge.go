// Package merge implements C5, the concept merger: a pairwise cosine
// similarity matrix plus union-find over a similarity threshold.
package merge

import (
	"log/slog"
	"math"

	"github.com/hrygo/mindmapforge/core/model"
)

// DefaultSimilarityThreshold is the default union threshold, empirically
// tuned for snowflake-arctic-embed2-shaped embedders. Callers with a
// different embedder norm regime should tune it.
const DefaultSimilarityThreshold = 0.7

// CosineSimilarity returns dot(a,b)/(‖a‖·‖b‖), or 0 if either vector has
// zero norm.
func CosineSimilarity(a, b model.Embedding) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(x, y int) {
	rx, ry := u.find(x), u.find(y)
	if rx != ry {
		u.parent[ry] = rx
	}
}

// Merge builds the symmetric cosine-similarity matrix over concepts'
// embeddings, unions indices whose similarity exceeds threshold, and
// returns one MergedGroup per union-find root with averaged embeddings
// and carried-forward importances.
func Merge(concepts []model.Concept, embeddings []model.Embedding, threshold float64) ([]model.MergedGroup, error) {
	n := len(concepts)
	if n == 0 || len(embeddings) == 0 {
		return nil, model.NewError(model.KindInvalidInput, "empty concepts or embeddings")
	}
	if n != len(embeddings) {
		return nil, model.NewError(model.KindInvalidInput, "concepts length does not match embeddings length")
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, model.NewError(model.KindInvalidInput, "embedding has zero dimensions")
		}
		_ = i
	}

	dim0 := len(embeddings[0])
	uniform := true
	for _, e := range embeddings {
		if len(e) != dim0 {
			uniform = false
			break
		}
	}
	if !uniform {
		slog.Warn("inconsistent embedding dimensions detected in merge input")
	}

	sim := model.NewSimilarityMatrix(n)
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := float32(CosineSimilarity(embeddings[i], embeddings[j]))
			sim[i][j] = s
			sim[j][i] = s
			if float64(s) > threshold {
				uf.union(i, j)
			}
		}
	}

	groupsByRoot := make(map[int][]int)
	var rootOrder []int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if _, ok := groupsByRoot[root]; !ok {
			rootOrder = append(rootOrder, root)
		}
		groupsByRoot[root] = append(groupsByRoot[root], i)
	}

	merged := make([]model.MergedGroup, 0, len(rootOrder))
	for _, root := range rootOrder {
		indices := groupsByRoot[root]
		members := make([]string, len(indices))
		importances := make([]float32, len(indices))
		for k, idx := range indices {
			members[k] = concepts[idx].Text
			importances[k] = concepts[idx].Importance
		}

		avg := make(model.Embedding, dim0)
		for _, idx := range indices {
			e := embeddings[idx]
			for d := 0; d < dim0 && d < len(e); d++ {
				avg[d] += e[d]
			}
		}
		for d := range avg {
			avg[d] /= float32(len(indices))
		}

		merged = append(merged, model.MergedGroup{
			Members:      members,
			AvgEmbedding: avg,
			Importances:  importances,
			RootIndex:    root,
		})
	}

	return merged, nil
}
