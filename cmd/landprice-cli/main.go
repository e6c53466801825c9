// Package main provides the land price CLI: offline ingestion, collection
// maintenance and local question answering.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"landprice/internal/app"
	"landprice/internal/config"
	"landprice/internal/logger"
	"landprice/internal/repository"
)

var (
	// Global flags
	outputJSON bool
	verbose    bool

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "landprice-cli",
	Short: "Tokyo land price RAG tooling",
	Long: `landprice-cli manages the land price record store and runs the
question answering pipeline from the command line.

Use this tool to:
- Ingest a GeoJSON land price dataset into the record store
- Drop the collection
- Ask a single question or run the evaluation question set

Configuration comes from the same environment variables as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		opts := logger.FromConfig(cfg.Logging, "landprice-cli")
		opts.Output = os.Stderr
		opts.Format = "console"
		if outputJSON {
			opts.Format = "json"
		}
		if verbose {
			opts.Level = "debug"
		}
		log = logger.New(opts)

		for _, w := range config.Warnings() {
			log.Warn().Msg(w)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "log in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newDropCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newEvalCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap builds every client, secrets first
func bootstrap(ctx context.Context) (*app.App, error) {
	secrets, err := app.SecretProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, secrets, log)
}

// openStore builds only the record store, for commands that need no model provider
func openStore(ctx context.Context) (repository.RecordStore, error) {
	secrets, err := app.SecretProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := config.ResolveSecrets(ctx, cfg, secrets); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}
	return app.NewRecordStore(cfg)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
