package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mindmapforge/core/model"
)

type fakeDriver struct {
	embeddings map[string]model.Embedding
	scene      *model.Scene
	closed     bool
}

func (f *fakeDriver) LookupEmbeddings(ctx context.Context, userID uuid.UUID, texts []string) (map[string]model.Embedding, error) {
	return f.embeddings, nil
}

func (f *fakeDriver) SaveConcepts(ctx context.Context, userID uuid.UUID, concepts []model.Concept, embeddings map[string]model.Embedding) error {
	return nil
}

func (f *fakeDriver) SaveTextReferences(ctx context.Context, refs []model.TextReference) error {
	return nil
}

func (f *fakeDriver) TextsByConcept(ctx context.Context, userID uuid.UUID, concept string) ([]model.TextReference, error) {
	return nil, nil
}

func (f *fakeDriver) SaveScene(ctx context.Context, scene *model.Scene) error {
	return nil
}

func (f *fakeDriver) GetScene(ctx context.Context, id uuid.UUID) (*model.Scene, error) {
	return f.scene, nil
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func TestStoreGetSceneNotFoundMapsToSceneNotFoundKind(t *testing.T) {
	s := New(&fakeDriver{scene: nil})
	_, err := s.GetScene(context.Background(), uuid.New())
	require.Error(t, err)
	var mmErr *model.Error
	require.ErrorAs(t, err, &mmErr)
	assert.Equal(t, model.KindSceneNotFound, mmErr.Kind)
}

func TestStoreGetSceneFound(t *testing.T) {
	scene := &model.Scene{ID: "abc", UserID: "def"}
	s := New(&fakeDriver{scene: scene})
	got, err := s.GetScene(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, scene, got)
}

func TestStoreCloseDelegatesToDriver(t *testing.T) {
	driver := &fakeDriver{}
	s := New(driver)
	require.NoError(t, s.Close())
	assert.True(t, driver.closed)
}

func TestStoreLookupEmbeddingsPassesThrough(t *testing.T) {
	driver := &fakeDriver{embeddings: map[string]model.Embedding{"alpha": {1, 2, 3}}}
	s := New(driver)
	out, err := s.LookupEmbeddings(context.Background(), uuid.New(), []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, model.Embedding{1, 2, 3}, out["alpha"])
}
