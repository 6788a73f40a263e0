// Package store defines the persistence boundary for concepts, their
// embeddings, text-to-concept references, and saved scenes, plus the
// Postgres/pgvector and SQLite drivers that implement it.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/hrygo/mindmapforge/core/model"
)

// Driver is implemented once per backend (Postgres+pgvector, SQLite).
type Driver interface {
	// LookupEmbeddings returns the stored embedding for each of texts
	// that userID has previously vectorized. Texts with no stored
	// embedding are simply absent from the result.
	LookupEmbeddings(ctx context.Context, userID uuid.UUID, texts []string) (map[string]model.Embedding, error)

	// SaveConcepts upserts concepts and their embeddings for userID,
	// keyed by lowercased concept text.
	SaveConcepts(ctx context.Context, userID uuid.UUID, concepts []model.Concept, embeddings map[string]model.Embedding) error

	// SaveTextReferences appends the given text-excerpt-to-concept links.
	SaveTextReferences(ctx context.Context, refs []model.TextReference) error

	// TextsByConcept returns every stored excerpt linked to concept for
	// userID, most recent first.
	TextsByConcept(ctx context.Context, userID uuid.UUID, concept string) ([]model.TextReference, error)

	// SaveScene persists a rendered mind map snapshot.
	SaveScene(ctx context.Context, scene *model.Scene) error

	// GetScene loads a previously saved scene by id. A nil, nil return
	// means the scene does not exist.
	GetScene(ctx context.Context, id uuid.UUID) (*model.Scene, error)

	Close() error
}

// Store wraps a Driver, giving callers a single concrete type to depend
// on regardless of which backend is configured.
type Store struct {
	driver Driver
}

// New wraps driver in a Store.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) LookupEmbeddings(ctx context.Context, userID uuid.UUID, texts []string) (map[string]model.Embedding, error) {
	embeddings, err := s.driver.LookupEmbeddings(ctx, userID, texts)
	if err != nil {
		return nil, model.WrapError(model.KindStore, "lookup embeddings failed", err)
	}
	return embeddings, nil
}

func (s *Store) SaveConcepts(ctx context.Context, userID uuid.UUID, concepts []model.Concept, embeddings map[string]model.Embedding) error {
	if err := s.driver.SaveConcepts(ctx, userID, concepts, embeddings); err != nil {
		return model.WrapError(model.KindStore, "save concepts failed", err)
	}
	return nil
}

func (s *Store) SaveTextReferences(ctx context.Context, refs []model.TextReference) error {
	if err := s.driver.SaveTextReferences(ctx, refs); err != nil {
		return model.WrapError(model.KindStore, "save text references failed", err)
	}
	return nil
}

func (s *Store) TextsByConcept(ctx context.Context, userID uuid.UUID, concept string) ([]model.TextReference, error) {
	refs, err := s.driver.TextsByConcept(ctx, userID, concept)
	if err != nil {
		return nil, model.WrapError(model.KindStore, "texts by concept lookup failed", err)
	}
	return refs, nil
}

func (s *Store) SaveScene(ctx context.Context, scene *model.Scene) error {
	if err := s.driver.SaveScene(ctx, scene); err != nil {
		return model.WrapError(model.KindStore, "save scene failed", err)
	}
	return nil
}

func (s *Store) GetScene(ctx context.Context, id uuid.UUID) (*model.Scene, error) {
	scene, err := s.driver.GetScene(ctx, id)
	if err != nil {
		return nil, model.WrapError(model.KindStore, "get scene failed", err)
	}
	if scene == nil {
		return nil, model.NewError(model.KindSceneNotFound, "scene not found")
	}
	return scene, nil
}

func (s *Store) Close() error {
	return s.driver.Close()
}
