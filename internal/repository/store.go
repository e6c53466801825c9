package repository

import (
	"context"
	"errors"
	"fmt"

	"landprice/internal/model"
)

// ErrStoreUnavailable marks failures talking to the record store
var ErrStoreUnavailable = errors.New("record store unavailable")

// RecordStore is a vector store holding land-price records
type RecordStore interface {
	// QuerySimilar returns up to limit records ordered by descending cosine
	// similarity. A nil filter matches every record.
	QuerySimilar(ctx context.Context, vector []float32, filter *model.QueryFilter, limit int) ([]model.ScoredRecord, error)
	UpsertPoints(ctx context.Context, points []model.Point) error
	CollectionExists(ctx context.Context) (bool, error)
	CreateCollection(ctx context.Context, dims int) error
	// EnsureIndexes creates any missing payload index and leaves existing ones alone
	EnsureIndexes(ctx context.Context) error
	DeleteCollection(ctx context.Context) error
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
