package service

import (
	"context"
	"fmt"

	"landprice/internal/model"
	"landprice/internal/repository"
)

// DefaultSearchLimit is the number of records retrieved per question
const DefaultSearchLimit = 5

// RetrievalResult holds the retrieved records and their texts in ranking order
type RetrievalResult struct {
	Contexts []string
	Hits     []model.ScoredRecord
}

// Retriever runs filtered similarity queries against the record store
type Retriever struct {
	store repository.RecordStore
}

// NewRetriever creates a new retriever
func NewRetriever(store repository.RecordStore) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns up to limit records ordered by descending cosine similarity.
// No hits is a valid result.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, filter *model.QueryFilter, limit int) (*RetrievalResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	hits, err := r.store.QuerySimilar(ctx, vector, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	result := &RetrievalResult{
		Contexts: make([]string, 0, len(hits)),
		Hits:     hits,
	}
	for _, hit := range hits {
		result.Contexts = append(result.Contexts, hit.Payload.SemanticText)
	}
	return result, nil
}
