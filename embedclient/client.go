// Package embedclient wraps an OpenAI-compatible embeddings endpoint for
// the embedding generator (C4), requesting vectors one text at a time
// with bounded concurrency. A failure of any single request fails the
// whole batch.
package embedclient

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/mindmapforge/core/model"
)

// Config configures a Service's provider, model, and concurrency.
type Config struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Dimensions    int
	MaxConcurrent int64 // default 4
}

// Service embeds one or many texts into fixed-dimension vectors.
type Service interface {
	// EmbedBatch embeds every text in texts, preserving order. If any
	// single embedding request fails, the whole batch fails: partial
	// vector sets are useless to the similarity stages downstream.
	EmbedBatch(ctx context.Context, texts []string) ([]model.Embedding, error)

	// Dimensions reports the configured vector width.
	Dimensions() int
}

type service struct {
	client     *openai.Client
	model      string
	dimensions int
	sem        *semaphore.Weighted
}

// NewService builds a Service from cfg.
func NewService(cfg Config) (Service, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &service{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		sem:        semaphore.NewWeighted(maxConcurrent),
	}, nil
}

func (s *service) Dimensions() int { return s.dimensions }

type embedResult struct {
	index int
	vec   model.Embedding
	err   error
}

func (s *service) EmbedBatch(ctx context.Context, texts []string) ([]model.Embedding, error) {
	if len(texts) == 0 {
		return nil, model.NewError(model.KindInvalidInput, "no texts provided for embedding")
	}

	results := make(chan embedResult, len(texts))
	for i, text := range texts {
		i, text := i, text
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("embedclient: acquiring concurrency slot: %w", err)
		}
		go func() {
			defer s.sem.Release(1)
			vec, err := s.embedOne(ctx, text)
			results <- embedResult{index: i, vec: vec, err: err}
		}()
	}

	vectors := make([]model.Embedding, len(texts))
	for range texts {
		r := <-results
		if r.err != nil {
			return nil, model.WrapError(model.KindEmbeddingGeneration, "embedding request failed", r.err)
		}
		vectors[r.index] = r.vec
	}
	return vectors, nil
}

func (s *service) embedOne(ctx context.Context, text string) (model.Embedding, error) {
	req := openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return model.Embedding(resp.Data[0].Embedding), nil
}
