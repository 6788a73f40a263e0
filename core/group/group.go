// Package group implements C7: it turns merged concept groups plus their
// laid-out 3-D positions into the final ConceptGroup records the API
// returns, computing connections and an importance score for each.
package group

import (
	"log/slog"
	"sort"

	"github.com/hrygo/mindmapforge/core/layout"
	"github.com/hrygo/mindmapforge/core/model"
)

const minImportance = 0.1

// Build assembles one model.ConceptGroup per merged group, in the same
// order as merged/positions. group_id values are compacted to a dense
// 0..k-1 range derived from the union-find root indices so API consumers
// never see sparse or negative identifiers.
func Build(merged []model.MergedGroup, positions []layout.Position, sim model.SimilarityMatrix) []model.ConceptGroup {
	n := len(merged)
	if n == 0 {
		return nil
	}
	if len(positions) != n || len(sim) != n {
		slog.Error("group.Build called with mismatched slice lengths", "merged", n, "positions", len(positions), "sim", len(sim))
		return nil
	}

	groupIDs := compactGroupIDs(merged)

	groups := make([]model.ConceptGroup, n)
	for i := range merged {
		connections := connectionsFor(i, n, sim)
		importance := calculateImportance(merged[i], connections)

		groups[i] = model.ConceptGroup{
			Concepts:         append([]string(nil), merged[i].Members...),
			ReducedEmbedding: [3]float32(positions[i]),
			Connections:      connections,
			ImportanceScore:  importance,
			GroupID:          groupIDs[i],
		}
	}
	return groups
}

// compactGroupIDs remaps each group's union-find RootIndex to a dense
// integer id by sorting the distinct roots that actually appear.
func compactGroupIDs(merged []model.MergedGroup) []int {
	roots := make([]int, len(merged))
	for i, m := range merged {
		roots[i] = m.RootIndex
	}

	unique := append([]int(nil), roots...)
	sort.Ints(unique)
	compacted := unique[:0]
	for i, r := range unique {
		if i == 0 || r != unique[i-1] {
			compacted = append(compacted, r)
		}
	}

	rank := make(map[int]int, len(compacted))
	for idx, r := range compacted {
		rank[r] = idx
	}

	ids := make([]int, len(merged))
	for i, r := range roots {
		ids[i] = rank[r]
	}
	return ids
}

// connectionsFor lists every other group index with positive continuous
// similarity to i.
func connectionsFor(i, n int, sim model.SimilarityMatrix) []int {
	var connections []int
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		if sim[i][j] > 0 {
			connections = append(connections, j)
		}
	}
	return connections
}

// calculateImportance blends each member's average NLP-stage importance,
// the group's connection count, and its concept count, floored so no
// group vanishes entirely in the rendered map.
func calculateImportance(g model.MergedGroup, connections []int) float32 {
	avgNLP := float32(0.5)
	if len(g.Importances) > 0 {
		var sum float32
		for _, imp := range g.Importances {
			sum += imp
		}
		avgNLP = sum / float32(len(g.Importances))
	}

	connectionScore := float32(len(connections))
	conceptScore := float32(len(g.Members))

	score := avgNLP*0.4 + connectionScore*0.4 + conceptScore*0.2
	if score < minImportance {
		score = minImportance
	}
	return score
}
