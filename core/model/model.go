// Package model holds the shared types that flow through the mind-map
// construction pipeline: concepts, embeddings, candidate keywords, and the
// final ConceptGroup output, plus the error taxonomy the pipeline raises.
package model

import "fmt"

// Concept is a normalized short phrase representing an idea present in the
// source text, together with the LLM's confidence that it matters.
type Concept struct {
	Text       string  `json:"text"`
	Importance float32 `json:"importance"`
}

// DefaultImportance is used whenever an upstream concept omits a score.
const DefaultImportance float32 = 0.5

// Embedding is a dense vector encoding of a concept. Cosine similarity is
// the only distance measured over it anywhere in the pipeline.
type Embedding []float32

// Candidate is a statistically salient phrase produced by the RAKE/TF-IDF
// extractor and offered to the LLM as a hint.
type Candidate struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

// SimilarityMatrix is a symmetric n×n matrix of cosine similarities. The
// diagonal is unused and always reads as 0.
type SimilarityMatrix [][]float32

// NewSimilarityMatrix allocates an n×n matrix of zeroes.
func NewSimilarityMatrix(n int) SimilarityMatrix {
	m := make(SimilarityMatrix, n)
	for i := range m {
		m[i] = make([]float32, n)
	}
	return m
}

// MergedGroup is the intermediate result of the concept merger: the member
// surface forms, the averaged embedding, their individual importances, and
// the union-find root that produced the group.
type MergedGroup struct {
	Members       []string
	AvgEmbedding  Embedding
	Importances   []float32
	RootIndex     int
}

// ConceptGroup is the pipeline's output entity. Field names are bit-exact
// with the HTTP JSON contract.
type ConceptGroup struct {
	Concepts         []string  `json:"concepts"`
	ReducedEmbedding [3]float32 `json:"reduced_embedding"`
	Connections      []int     `json:"connections"`
	ImportanceScore  float32   `json:"importance_score"`
	GroupID          int       `json:"group_id"`
}

// TextReference associates a stored text excerpt with one concept it was
// mined from. Per DESIGN.md's Open Question decision, Concept is always the
// single concept this row was queried by, not the text's full concept set.
type TextReference struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Concept     string `json:"concept"`
	TextExcerpt string `json:"text_excerpt"`
	SourceURL   string `json:"source_url,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// Scene is a named, persisted snapshot of a rendered mind map.
type Scene struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Groups    []ConceptGroup `json:"groups"`
	CreatedAt int64          `json:"created_at"`
}

// Kind classifies a pipeline failure for HTTP status mapping and logging.
type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindNoConceptsExtracted   Kind = "no_concepts_extracted"
	KindEmbeddingGeneration   Kind = "embedding_generation_error"
	KindDimensionality        Kind = "dimensionality_error"
	KindUpstream              Kind = "upstream_error"
	KindStore                 Kind = "store_error"
	KindSceneNotFound         Kind = "scene_not_found"
)

// Error is the pipeline's error type. It carries a Kind for status mapping
// and an optional wrapped cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs a *Error with no wrapped cause.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError constructs a *Error wrapping an existing error.
func WrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}
