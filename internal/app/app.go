// Package app wires configuration, secrets, stores and model providers into
// the services used by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"landprice/internal/cache"
	"landprice/internal/config"
	"landprice/internal/repository"
	"landprice/internal/service"
)

// ErrOpenAIDisabled is returned when the OpenAI provider is selected without a key
var ErrOpenAIDisabled = errors.New("OPENAI_API_KEY is not set")

// Providers are the model clients selected by LLM_PROVIDER
type Providers struct {
	Chat           service.ChatCompleter
	Embedder       service.Embedder
	EmbeddingModel string
	// EmbeddingDimensions is the requested vector size, zero for the model default
	EmbeddingDimensions int
}

// App holds the long-lived clients of one process
type App struct {
	Config    *config.Config
	Store     repository.RecordStore
	Providers *Providers
	// Embedder is Providers.Embedder, cached when Redis is configured
	Embedder service.Embedder
	Pipeline *service.Pipeline

	logger  zerolog.Logger
	closers []io.Closer
}

// New resolves secrets and builds every client. Secrets are applied before any
// client is constructed.
func New(ctx context.Context, cfg *config.Config, provider config.SecretProvider, logger zerolog.Logger) (*App, error) {
	if err := config.ResolveSecrets(ctx, cfg, provider); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	a := &App{Config: cfg, logger: logger}

	store, err := NewRecordStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store)
	logger.Info().Str("record_store", cfg.RecordStore).Msg("Record store ready")

	providers, err := NewProviders(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Providers = providers
	a.Embedder = providers.Embedder
	logger.Info().
		Str("provider", cfg.LLMProvider).
		Str("embedding_model", providers.EmbeddingModel).
		Msg("Model provider ready")

	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// the cache is optional; serve without it
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Embedding cache disabled")
		} else {
			a.closers = append(a.closers, redisClient)
			a.Embedder = service.NewCachedEmbedder(providers.Embedder, redisClient,
				providers.EmbeddingModel, providers.EmbeddingDimensions,
				time.Duration(cfg.Redis.TTL)*time.Second, logger)
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Embedding cache enabled")
		}
	}

	a.Pipeline = service.NewPipeline(
		service.NewIntentExtractor(providers.Chat, logger),
		a.Embedder,
		service.NewRetriever(a.Store),
		service.NewAnswerGenerator(providers.Chat, cfg.Generation.FallbackLanguage),
		PipelineConfig(cfg),
		logger,
	)
	return a, nil
}

// SecretProvider returns the Secrets Manager provider for the configured
// environment, or nil when running as a local script
func SecretProvider(ctx context.Context, cfg *config.Config) (config.SecretProvider, error) {
	if cfg.Environment == config.EnvironmentLocal {
		return nil, nil
	}
	return config.NewAWSSecretProvider(ctx, cfg)
}

// NewRecordStore creates the backend selected by RECORD_STORE
func NewRecordStore(cfg *config.Config) (repository.RecordStore, error) {
	switch cfg.RecordStore {
	case config.StoreQdrant:
		return repository.NewQdrantRepository(repository.QdrantOptions{
			Addr:       cfg.QdrantAddr(),
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		})
	case config.StorePgvector:
		return repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.Table,
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
	default:
		return nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

// NewProviders creates the chat and embedding clients selected by LLM_PROVIDER
func NewProviders(cfg *config.Config, logger zerolog.Logger) (*Providers, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		client := service.NewOpenAIClient(&cfg.OpenAI, logger)
		if !client.IsEnabled() {
			return nil, ErrOpenAIDisabled
		}
		return &Providers{
			Chat:                client,
			Embedder:            client,
			EmbeddingModel:      cfg.OpenAI.EmbeddingModel,
			EmbeddingDimensions: cfg.OpenAI.EmbeddingDimensions,
		}, nil
	case config.ProviderOllama:
		client, err := service.NewOllamaClient(&cfg.Ollama)
		if err != nil {
			return nil, err
		}
		return &Providers{Chat: client, Embedder: client, EmbeddingModel: cfg.Ollama.EmbeddingModel}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

// PipelineConfig maps the search section of the configuration
func PipelineConfig(cfg *config.Config) service.PipelineConfig {
	return service.PipelineConfig{
		SearchLimit:     cfg.Search.Limit,
		PointBoxMeters:  cfg.Search.PointBoxMeters,
		AreaBoxMeters:   cfg.Search.AreaBoxMeters,
		MetersPerMinute: cfg.Search.MetersPerMinute,
		DefaultLanguage: cfg.Search.DefaultLanguage,
	}
}

// Close releases every client in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
