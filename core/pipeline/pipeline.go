// Package pipeline implements C8, the orchestrator that sequences C2
// through C7 into the end-to-end vectorize operation the server exposes.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/mindmapforge/core/boundary"
	"github.com/hrygo/mindmapforge/core/candidate"
	"github.com/hrygo/mindmapforge/core/group"
	"github.com/hrygo/mindmapforge/core/layout"
	"github.com/hrygo/mindmapforge/core/merge"
	"github.com/hrygo/mindmapforge/core/model"
)

// ConceptExtractor is C3's interface as seen by the pipeline, satisfied
// by *concept.Extractor.
type ConceptExtractor interface {
	Extract(ctx context.Context, text string, candidates []model.Candidate) ([]model.Concept, error)
}

// EmbeddingGenerator is C4's interface as seen by the pipeline, satisfied
// by *embedvec.Generator.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, concepts []model.Concept) ([]string, []model.Embedding, error)
}

// DefaultUserUUID is substituted whenever a caller omits a user id or
// passes the literal string "default". It lets single-tenant deployments
// skip user management entirely.
var DefaultUserUUID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

// userIDNamespace seeds UUID v5 derivation for arbitrary external user
// identifiers, so the same external id always maps to the same internal
// UUID without a lookup table.
var userIDNamespace = uuid.NameSpaceURL

// ResolveUserID normalizes a possibly-empty external user identifier into
// an internal UUID: "" and "default" map to DefaultUserUUID, a string that
// already parses as a UUID is returned as that UUID, and anything else
// maps deterministically via UUID v5.
func ResolveUserID(externalID string) uuid.UUID {
	if externalID == "" || externalID == "default" {
		return DefaultUserUUID
	}
	if parsed, err := uuid.Parse(externalID); err == nil {
		return parsed
	}
	return uuid.NewSHA1(userIDNamespace, []byte(externalID))
}

// MetricsRecorder is the observability boundary the pipeline reports
// through. Implementations live in the metrics package; a nil recorder
// passed to WithMetrics leaves the pipeline running unobserved.
type MetricsRecorder interface {
	RecordStage(stage string, latency time.Duration, success bool)
	IncRunsInFlight()
	DecRunsInFlight()
	RecordLLMCall(provider string, latency time.Duration)
	RecordEmbeddingBatch(provider string, latency time.Duration)
	RecordStoreOp(operation string, err error)
	RecordRunShape(conceptCount, groupCount int)
}

type noopRecorder struct{}

func (noopRecorder) RecordStage(string, time.Duration, bool)    {}
func (noopRecorder) IncRunsInFlight()                           {}
func (noopRecorder) DecRunsInFlight()                           {}
func (noopRecorder) RecordLLMCall(string, time.Duration)        {}
func (noopRecorder) RecordEmbeddingBatch(string, time.Duration) {}
func (noopRecorder) RecordStoreOp(string, error)                {}
func (noopRecorder) RecordRunShape(int, int)                    {}

// ConceptStore is the persistence boundary the pipeline needs: looking up
// embeddings for concepts a user has already vectorized, and recording
// newly extracted ones. Implementations live in the store package.
type ConceptStore interface {
	// LookupEmbeddings returns, for each concept text already known for
	// userID, its stored embedding. Unknown texts are simply absent from
	// the result map.
	LookupEmbeddings(ctx context.Context, userID uuid.UUID, texts []string) (map[string]model.Embedding, error)

	// SaveConcepts persists newly extracted concepts with their
	// embeddings for userID.
	SaveConcepts(ctx context.Context, userID uuid.UUID, concepts []model.Concept, embeddings map[string]model.Embedding) error

	// SaveTextReferences persists the (concept, source excerpt) links
	// produced by this run.
	SaveTextReferences(ctx context.Context, refs []model.TextReference) error
}

const maxCandidates = 20

// Pipeline wires the per-stage components together.
type Pipeline struct {
	extractor ConceptExtractor
	embedder  EmbeddingGenerator
	store     ConceptStore
	threshold float64
	params    layout.Params

	metrics           MetricsRecorder
	llmProvider       string
	embeddingProvider string
}

// New builds a Pipeline from its stage collaborators.
func New(extractor ConceptExtractor, embedder EmbeddingGenerator, store ConceptStore) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		threshold: merge.DefaultSimilarityThreshold,
		params:    layout.DefaultParams(),
		metrics:   noopRecorder{},
	}
}

// WithMetrics attaches a MetricsRecorder that Run reports stage latencies,
// provider call latencies, and store operation outcomes through. provider
// names are used only as metric labels. Returns the pipeline for chaining.
func (p *Pipeline) WithMetrics(recorder MetricsRecorder, llmProvider, embeddingProvider string) *Pipeline {
	if recorder != nil {
		p.metrics = recorder
	}
	p.llmProvider = llmProvider
	p.embeddingProvider = embeddingProvider
	return p
}

// Result is the vectorize operation's output.
type Result struct {
	Groups []model.ConceptGroup
}

// Run executes the full C2-through-C7 sequence for one piece of text.
// userID should already be resolved via ResolveUserID. sourceURL may be
// empty when the text came from a raw paste rather than a scrape.
func (p *Pipeline) Run(ctx context.Context, userID uuid.UUID, text, sourceURL string) (*Result, error) {
	p.metrics.IncRunsInFlight()
	defer p.metrics.DecRunsInFlight()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewError(model.KindInvalidInput, "empty input text")
	}

	candidateStart := time.Now()
	candidates := candidate.Extract(text, maxCandidates)
	p.metrics.RecordStage("candidate_extraction", time.Since(candidateStart), true)

	type extractOutcome struct {
		concepts []model.Concept
		err      error
	}
	type lookupOutcome struct {
		existing map[string]model.Embedding
		err      error
	}

	extractCh := make(chan extractOutcome, 1)
	go func() {
		start := time.Now()
		concepts, err := p.extractor.Extract(ctx, text, candidates)
		elapsed := time.Since(start)
		p.metrics.RecordStage("concept_extraction", elapsed, err == nil)
		p.metrics.RecordLLMCall(p.llmProvider, elapsed)
		extractCh <- extractOutcome{concepts: concepts, err: err}
	}()

	lookupCh := make(chan lookupOutcome, 1)
	go func() {
		phrases := make([]string, len(candidates))
		for i, c := range candidates {
			phrases[i] = c.Phrase
		}
		existing, err := p.store.LookupEmbeddings(ctx, userID, phrases)
		p.metrics.RecordStoreOp("lookup_embeddings", err)
		lookupCh <- lookupOutcome{existing: existing, err: err}
	}()

	extracted := <-extractCh
	looked := <-lookupCh

	if extracted.err != nil {
		return nil, extracted.err
	}
	if looked.err != nil {
		slog.Warn("pipeline: prior-concept lookup failed, proceeding without reuse", "error", looked.err)
		looked.existing = nil
	}

	if len(extracted.concepts) == 0 {
		return nil, model.NewError(model.KindNoConceptsExtracted, "no concepts extracted from text")
	}

	newConcepts := make([]model.Concept, 0, len(extracted.concepts))
	priorTexts := make([]string, 0)
	priorEmbeddings := make([]model.Embedding, 0)
	priorImportances := make([]float32, 0)
	for _, c := range extracted.concepts {
		if emb, ok := looked.existing[strings.ToLower(c.Text)]; ok {
			priorTexts = append(priorTexts, c.Text)
			priorEmbeddings = append(priorEmbeddings, emb)
			priorImportances = append(priorImportances, c.Importance)
			continue
		}
		newConcepts = append(newConcepts, c)
	}

	var newTexts []string
	var newEmbeddings []model.Embedding
	if len(newConcepts) > 0 {
		embedStart := time.Now()
		var err error
		newTexts, newEmbeddings, err = p.embedder.Embed(ctx, newConcepts)
		elapsed := time.Since(embedStart)
		p.metrics.RecordStage("embedding", elapsed, err == nil)
		p.metrics.RecordEmbeddingBatch(p.embeddingProvider, elapsed)
		if err != nil {
			return nil, err
		}
		if len(newTexts) != len(newEmbeddings) {
			return nil, model.NewError(model.KindEmbeddingGeneration, "embedding/text count mismatch")
		}
	}

	go p.persist(userID, text, sourceURL, newConcepts, newTexts, newEmbeddings)

	allTexts := append(append([]string{}, newTexts...), priorTexts...)
	allEmbeddings := append(append([]model.Embedding{}, newEmbeddings...), priorEmbeddings...)
	allImportances := append(append([]float32{}, importancesFor(newConcepts, newTexts)...), priorImportances...)

	if len(allTexts) == 0 {
		return nil, model.NewError(model.KindNoConceptsExtracted, "no concepts survived embedding")
	}

	allConcepts := make([]model.Concept, len(allTexts))
	for i, t := range allTexts {
		allConcepts[i] = model.Concept{Text: t, Importance: allImportances[i]}
	}

	mergeStart := time.Now()
	merged, err := merge.Merge(allConcepts, allEmbeddings, p.threshold)
	p.metrics.RecordStage("merge", time.Since(mergeStart), err == nil)
	if err != nil {
		return nil, err
	}

	avgEmbeddings := make([]model.Embedding, len(merged))
	for i, g := range merged {
		avgEmbeddings[i] = g.AvgEmbedding
	}

	layoutStart := time.Now()
	positions, sim, err := layout.Run(avgEmbeddings, p.params)
	p.metrics.RecordStage("layout", time.Since(layoutStart), err == nil)
	if err != nil {
		return nil, err
	}

	groupStart := time.Now()
	groups := group.Build(merged, positions, sim)
	p.metrics.RecordStage("group_assembly", time.Since(groupStart), true)

	p.metrics.RecordRunShape(len(allConcepts), len(groups))
	return &Result{Groups: groups}, nil
}

func importancesFor(concepts []model.Concept, texts []string) []float32 {
	byText := make(map[string]float32, len(concepts))
	for _, c := range concepts {
		byText[strings.TrimSpace(c.Text)] = c.Importance
	}
	out := make([]float32, len(texts))
	for i, t := range texts {
		out[i] = byText[t]
	}
	return out
}

// persist runs detached from the request's context so a slow or failing
// store write never delays the response the caller is waiting on.
func (p *Pipeline) persist(userID uuid.UUID, sourceText, sourceURL string, concepts []model.Concept, texts []string, embeddings []model.Embedding) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(concepts) > 0 {
		embByText := make(map[string]model.Embedding, len(texts))
		for i, t := range texts {
			embByText[t] = embeddings[i]
		}
		err := p.store.SaveConcepts(ctx, userID, concepts, embByText)
		p.metrics.RecordStoreOp("save_concepts", err)
		if err != nil {
			slog.Error("pipeline: failed to persist new concepts", "error", err)
		}
	}

	refs := make([]model.TextReference, 0, len(concepts))
	now := time.Now().Unix()
	for _, c := range concepts {
		refs = append(refs, model.TextReference{
			ID:          uuid.New().String(),
			UserID:      userID.String(),
			Concept:     c.Text,
			TextExcerpt: boundary.Truncate(sourceText, 500),
			SourceURL:   sourceURL,
			CreatedAt:   now,
		})
	}
	if len(refs) > 0 {
		err := p.store.SaveTextReferences(ctx, refs)
		p.metrics.RecordStoreOp("save_text_references", err)
		if err != nil {
			slog.Error("pipeline: failed to persist text references", "error", err)
		}
	}
}
