package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landprice/internal/model"
	"landprice/internal/repository"
)

func TestRetriever_Retrieve(t *testing.T) {
	store := &fakeStore{records: testCorpus()}
	r := NewRetriever(store)

	res, err := r.Retrieve(context.Background(), []float32{1}, nil, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, store.limits)
	assert.Nil(t, store.queries[0])
	require.Len(t, res.Hits, 2)
	assert.Equal(t, []string{res.Hits[0].Payload.SemanticText, res.Hits[1].Payload.SemanticText}, res.Contexts)
}

func TestRetriever_DefaultLimit(t *testing.T) {
	store := &fakeStore{}
	_, err := NewRetriever(store).Retrieve(context.Background(), []float32{1}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{DefaultSearchLimit}, store.limits)
}

func TestRetriever_EmptyIsNotAnError(t *testing.T) {
	store := &fakeStore{records: testCorpus()}
	filter := BuildFilter(model.SearchIntent{Ward: strPtr("存在しない")})

	res, err := NewRetriever(store).Retrieve(context.Background(), []float32{1}, filter, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Empty(t, res.Contexts)
}

func TestRetriever_StoreFailure(t *testing.T) {
	store := &fakeStore{err: repository.ErrStoreUnavailable}

	res, err := NewRetriever(store).Retrieve(context.Background(), []float32{1}, nil, 5)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
