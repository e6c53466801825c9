package service

import (
	"context"
	"errors"
)

// ErrNoEmbedding is returned when a provider answers without a vector for an input
var ErrNoEmbedding = errors.New("provider returned no embedding")

// CompletionRequest is a single-turn chat completion
type CompletionRequest struct {
	System string
	User   string
	// JSON asks the provider for a JSON object response
	JSON bool
}

// ChatCompleter is the interface for chat-completion providers
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder is the interface for embedding providers
type Embedder interface {
	// CreateEmbeddings returns one vector per text, in input order
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrNoEmbedding
	}
	return vectors[0], nil
}

// Ensure providers implement both interfaces
var (
	_ ChatCompleter = (*OpenAIClient)(nil)
	_ Embedder      = (*OpenAIClient)(nil)
	_ ChatCompleter = (*OllamaClient)(nil)
	_ Embedder      = (*OllamaClient)(nil)
)
