package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"landprice/internal/model"
	"landprice/internal/repository"
	"landprice/internal/service"
)

// DefaultBatchSize is used when no upsert batch size is configured
const DefaultBatchSize = 256

// ErrNoParcels is returned when the dataset holds no usable records
var ErrNoParcels = errors.New("no parcels to ingest")

// Result summarizes an ingestion run
type Result struct {
	Records    int
	Dimensions int
	Batches    int
	Recreated  bool
}

// Ingester writes a corpus into the record store
type Ingester struct {
	store     repository.RecordStore
	embedder  service.Embedder
	batchSize int
	logger    zerolog.Logger
}

// NewIngester creates a new ingester
func NewIngester(store repository.RecordStore, embedder service.Embedder, batchSize int, logger zerolog.Logger) *Ingester {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Ingester{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run computes payloads for the whole corpus, embeds every semantic_text and
// upserts the points. The collection is created with the dimension the
// embedder actually returns. With recreate set, an existing collection is
// dropped first.
func (i *Ingester) Run(ctx context.Context, parcels []RawParcel, recreate bool) (*Result, error) {
	if len(parcels) == 0 {
		return nil, ErrNoParcels
	}

	points, err := BuildPayloads(parcels)
	if err != nil {
		return nil, fmt.Errorf("failed to build payloads: %w", err)
	}
	i.logger.Info().Int("records", len(points)).Msg("Computed corpus statistics")

	dims, err := i.embed(ctx, points)
	if err != nil {
		return nil, err
	}

	result := &Result{Records: len(points), Dimensions: dims}

	exists, err := i.store.CollectionExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists && recreate {
		if err := i.store.DeleteCollection(ctx); err != nil {
			return nil, err
		}
		i.logger.Info().Msg("Dropped existing collection")
		exists = false
		result.Recreated = true
	}
	if !exists {
		if err := i.store.CreateCollection(ctx, dims); err != nil {
			return nil, err
		}
		i.logger.Info().Int("dimensions", dims).Msg("Created collection")
	} else if err := i.store.EnsureIndexes(ctx); err != nil {
		// a collection left by an interrupted run may lack some indexes
		return nil, err
	}

	for start := 0; start < len(points); start += i.batchSize {
		end := start + i.batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := i.store.UpsertPoints(ctx, points[start:end]); err != nil {
			return nil, fmt.Errorf("failed to upsert records %d-%d: %w", start, end-1, err)
		}
		result.Batches++
		i.logger.Debug().Int("from", start).Int("to", end-1).Msg("Upserted batch")
	}

	i.logger.Info().
		Int("records", result.Records).
		Int("batches", result.Batches).
		Msg("Ingestion complete")
	return result, nil
}

// embed fills every point's vector and returns the common dimension
func (i *Ingester) embed(ctx context.Context, points []model.Point) (int, error) {
	texts := make([]string, len(points))
	for idx, p := range points {
		texts[idx] = p.Payload.SemanticText
	}

	vectors, err := i.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed semantic text: %w", err)
	}
	if len(vectors) != len(points) {
		return 0, fmt.Errorf("%w: got %d vectors for %d records", service.ErrNoEmbedding, len(vectors), len(points))
	}

	dims := len(vectors[0])
	for idx, v := range vectors {
		if len(v) == 0 {
			return 0, fmt.Errorf("record %d: %w", points[idx].ID, service.ErrNoEmbedding)
		}
		if len(v) != dims {
			return 0, fmt.Errorf("record %d: embedding has %d dimensions, expected %d", points[idx].ID, len(v), dims)
		}
		points[idx].Vector = v
	}
	return dims, nil
}
