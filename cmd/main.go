package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"document-indexer/internal/chromemdb"
	"document-indexer/internal/chunker"
	"document-indexer/internal/config"
	"document-indexer/internal/db"
	"document-indexer/internal/embedding"
	"document-indexer/internal/helper"
	"document-indexer/internal/logger"
	"document-indexer/internal/models"
	"document-indexer/internal/parser"
	"document-indexer/internal/pipeline"
)

const configFilePath = "./configs/config.yaml"

// errReported marks failures that were already written to the log.
var errReported = errors.New("reported")

type options struct {
	strategy   string
	chunkSize  int
	overlap    int
	sizeSet    bool
	overlapSet bool
	configPath string
	sink       string
	dryRun     bool
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			consoleLogger(os.Stderr).Error().Err(err).Msg("Error")
		}
		os.Exit(1)
	}
}

func consoleLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "document-indexer <file>",
		Short:         "Index a PDF or DOCX file as embedded chunks in PostgreSQL",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.sizeSet = cmd.Flags().Changed("chunk-size")
			opts.overlapSet = cmd.Flags().Changed("overlap")
			return runIndex(cmd.Context(), args[0], opts, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.strategy, "strategy", "s", models.StrategyFixed, "Text chunking strategy: fixed, sentence or paragraph")
	flags.IntVar(&opts.chunkSize, "chunk-size", models.DefaultChunkSize, "Window size in characters for the fixed strategy")
	flags.IntVar(&opts.overlap, "overlap", models.DefaultChunkOverlap, "Characters shared by consecutive fixed windows")
	flags.StringVar(&opts.configPath, "config", configFilePath, "Path to an optional YAML config file")
	flags.StringVar(&opts.sink, "sink", "", "Where to store chunks: postgres or chromem (overrides config)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Extract and chunk only, print the chunks, do not embed or store")
	return cmd
}

func runIndex(ctx context.Context, filePath string, opts *options, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.sizeSet {
		cfg.Chunking.ChunkSize = opts.chunkSize
	}
	if opts.overlapSet {
		cfg.Chunking.ChunkOverlap = opts.overlap
	}
	if opts.sink != "" {
		cfg.Sink = opts.sink
	}

	log, closer, err := logger.New(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	fail := func(err error) error {
		log.Error().Err(err).Msg("Error")
		return fmt.Errorf("%w: %w", errReported, err)
	}

	strategy, err := chunker.Parse(opts.strategy, cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return fail(err)
	}

	var (
		embedder pipeline.Embedder
		sink     pipeline.Sink
	)
	if !opts.dryRun {
		if err := cfg.Validate(); err != nil {
			return fail(err)
		}
		if embedder, err = embedding.New(ctx, &cfg.EmbedLLM, log); err != nil {
			return fail(err)
		}
		if sink, err = newSink(cfg, log); err != nil {
			return fail(err)
		}
	}

	p := pipeline.New(parser.FileParser{}, embedder, sink, log)
	result, err := p.Run(ctx, pipeline.Request{FilePath: filePath, Strategy: strategy, DryRun: opts.dryRun})
	if err != nil {
		return fail(err)
	}

	if opts.dryRun {
		return helper.PrettyPrint(stdout, result.Chunks)
	}
	return nil
}

func newSink(cfg *config.Config, log zerolog.Logger) (pipeline.Sink, error) {
	switch cfg.Sink {
	case config.SinkChromem:
		return chromemdb.NewVectorDBManager(cfg.Chromem, log)
	default:
		return db.NewStore(cfg.Database, log), nil
	}
}
