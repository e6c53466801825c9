package service

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"landprice/internal/config"
)

// OllamaClient serves chat and embeddings from a local Ollama server
type OllamaClient struct {
	chat      *ollama.LLM
	embedding *ollama.LLM
}

// NewOllamaClient creates one Ollama handle per model
func NewOllamaClient(cfg *config.OllamaConfig) (*OllamaClient, error) {
	chat, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama chat model: %w", err)
	}

	embedding, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedding model: %w", err)
	}

	return &OllamaClient{chat: chat, embedding: embedding}, nil
}

// Complete sends a single system+user exchange
func (c *OllamaClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}

	opts := []llms.CallOption{llms.WithTemperature(0)}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	content, err := c.chat.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(content.Choices) == 0 {
		return "", fmt.Errorf("no response from ollama")
	}
	return content.Choices[0].Content, nil
}

// CreateEmbeddings embeds texts with the embedding model
func (c *OllamaClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := c.embedding.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs: %w", len(vectors), len(texts), ErrNoEmbedding)
	}
	return vectors, nil
}
