package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"landprice/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var (
		file     string
		recreate bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a GeoJSON dataset into the record store",
		Long: `Ingest reads a GeoJSON FeatureCollection of land price points, computes
corpus-wide tiers, percentiles and extremal flags, embeds each record's
description and upserts the records.

The collection is created with the dimension returned by the embedding
model. Use --recreate to drop an existing collection first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Hour)
			defer cancel()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open dataset: %w", err)
			}
			defer f.Close()

			parcels, err := ingest.LoadGeoJSON(f)
			if err != nil {
				return err
			}
			log.Info().Str("file", file).Int("parcels", len(parcels)).Msg("Loaded dataset")

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			// corpus text is embedded directly, bypassing the question cache
			ingester := ingest.NewIngester(a.Store, a.Providers.Embedder, cfg.Ingest.UpsertBatchSize, log)
			start := time.Now()
			result, err := ingester.Run(ctx, parcels, recreate)
			if err != nil {
				return err
			}

			log.Info().
				Int("records", result.Records).
				Int("dimensions", result.Dimensions).
				Int("batches", result.Batches).
				Bool("recreated", result.Recreated).
				Dur("elapsed", time.Since(start)).
				Msg("Done")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "GeoJSON dataset path (required)")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop and recreate the collection before loading")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newDropCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the collection and every record in it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to drop without --yes")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			exists, err := store.CollectionExists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				log.Info().Msg("Collection does not exist")
				return nil
			}
			if err := store.DeleteCollection(ctx); err != nil {
				return err
			}
			log.Info().Msg("Collection dropped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
