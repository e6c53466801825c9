package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landprice/internal/model"
	"landprice/internal/service"
)

type fakeStore struct {
	exists     bool
	dims       int
	deleted    bool
	ensured    int
	batches    [][]model.Point
	upsertErr  error
	indexesErr error
}

func (f *fakeStore) QuerySimilar(context.Context, []float32, *model.QueryFilter, int) ([]model.ScoredRecord, error) {
	return nil, nil
}

func (f *fakeStore) UpsertPoints(_ context.Context, points []model.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	batch := make([]model.Point, len(points))
	copy(batch, points)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeStore) CollectionExists(context.Context) (bool, error) { return f.exists, nil }

func (f *fakeStore) CreateCollection(_ context.Context, dims int) error {
	f.exists = true
	f.dims = dims
	return nil
}

func (f *fakeStore) EnsureIndexes(context.Context) error {
	f.ensured++
	return f.indexesErr
}

func (f *fakeStore) DeleteCollection(context.Context) error {
	f.exists = false
	f.deleted = true
	return nil
}

func (f *fakeStore) Close() error { return nil }

type lengthEmbedder struct {
	dims  int
	calls int
	err   error
}

func (e *lengthEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dims)
		v[0] = float32(len(text))
		out[i] = v
	}
	return out, nil
}

func TestIngester_CreatesCollectionAndUpsertsInBatches(t *testing.T) {
	store := &fakeStore{}
	embedder := &lengthEmbedder{dims: 4}
	ing := NewIngester(store, embedder, 2, zerolog.Nop())

	result, err := ing.Run(context.Background(), parcelsWithPrices(100, 200, 300, 400, 500), false)
	require.NoError(t, err)

	assert.Equal(t, &Result{Records: 5, Dimensions: 4, Batches: 3}, result)
	assert.Equal(t, 4, store.dims)
	assert.False(t, store.deleted)
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[2], 1)

	for _, batch := range store.batches {
		for _, p := range batch {
			assert.Len(t, p.Vector, 4)
			assert.Equal(t, float32(len(p.Payload.SemanticText)), p.Vector[0])
		}
	}
}

func TestIngester_KeepsExistingCollection(t *testing.T) {
	store := &fakeStore{exists: true, dims: 8}
	ing := NewIngester(store, &lengthEmbedder{dims: 8}, 0, zerolog.Nop())

	result, err := ing.Run(context.Background(), parcelsWithPrices(100), false)
	require.NoError(t, err)
	assert.False(t, result.Recreated)
	assert.False(t, store.deleted)
	assert.Equal(t, 1, store.ensured)
}

func TestIngester_ExistingCollectionIndexFailure(t *testing.T) {
	boom := errors.New("index creation failed")
	store := &fakeStore{exists: true, dims: 4, indexesErr: boom}
	ing := NewIngester(store, &lengthEmbedder{dims: 4}, 0, zerolog.Nop())

	_, err := ing.Run(context.Background(), parcelsWithPrices(100), false)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.batches)
}

func TestIngester_Recreate(t *testing.T) {
	store := &fakeStore{exists: true, dims: 1536}
	ing := NewIngester(store, &lengthEmbedder{dims: 3}, 0, zerolog.Nop())

	result, err := ing.Run(context.Background(), parcelsWithPrices(100, 200), true)
	require.NoError(t, err)
	assert.True(t, result.Recreated)
	assert.True(t, store.deleted)
	assert.Equal(t, 3, store.dims)
}

func TestIngester_EmbeddingFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	boom := errors.New("quota exceeded")
	ing := NewIngester(store, &lengthEmbedder{err: boom}, 0, zerolog.Nop())

	_, err := ing.Run(context.Background(), parcelsWithPrices(100), true)
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.exists)
	assert.Empty(t, store.batches)
}

func TestIngester_EmptyVector(t *testing.T) {
	ing := NewIngester(&fakeStore{}, emptyEmbedder{}, 0, zerolog.Nop())

	_, err := ing.Run(context.Background(), parcelsWithPrices(100), false)
	assert.ErrorIs(t, err, service.ErrNoEmbedding)
}

type emptyEmbedder struct{}

func (emptyEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func TestIngester_UpsertFailure(t *testing.T) {
	boom := errors.New("connection refused")
	ing := NewIngester(&fakeStore{upsertErr: boom}, &lengthEmbedder{dims: 2}, 0, zerolog.Nop())

	_, err := ing.Run(context.Background(), parcelsWithPrices(100), false)
	assert.ErrorIs(t, err, boom)
}

func TestIngester_NoParcels(t *testing.T) {
	ing := NewIngester(&fakeStore{}, &lengthEmbedder{dims: 2}, 0, zerolog.Nop())

	_, err := ing.Run(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrNoParcels)
}
