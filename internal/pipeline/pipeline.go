package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"document-indexer/internal/chunker"
	"document-indexer/internal/helper"
	"document-indexer/internal/models"
)

// Extractor reports unsupported file types through Supported before any
// extraction work starts.
type Extractor interface {
	Supported(filePath string) error
	ExtractText(filePath string) (string, error)
}

type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []string) ([][]float32, error)
}

// Sink persists every record of a run or none of them.
type Sink interface {
	Store(ctx context.Context, records []models.ChunkRecord) error
}

type Request struct {
	FilePath string
	Strategy chunker.Strategy
	// DryRun stops after chunking; nothing is embedded or stored.
	DryRun bool
}

type Result struct {
	Filename   string
	Characters int
	Chunks     []string
	Stored     int
	State      State
}

// Pipeline runs Extracting, Chunking, Embedding and Persisting in order for
// a single document.
type Pipeline struct {
	extractor Extractor
	embedder  Embedder
	sink      Sink
	log       zerolog.Logger
}

// New builds a pipeline. embedder and sink may be nil when only dry runs
// are made.
func New(extractor Extractor, embedder Embedder, sink Sink, log zerolog.Logger) *Pipeline {
	return &Pipeline{extractor: extractor, embedder: embedder, sink: sink, log: log}
}

type run struct {
	state State
	log   zerolog.Logger
}

func (r *run) enter(s State) {
	r.log.Debug().Stringer("from", r.state).Stringer("to", s).Msg("State transition")
	r.state = s
}

func (r *run) fail(err error) error {
	failed := r.state
	r.enter(StateFailed)
	return &StageError{State: failed, Err: err}
}

// Run indexes one document. On error the returned *StageError names the
// state that failed, and nothing has been persisted.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	filename := filepath.Base(req.FilePath)
	result := &Result{Filename: filename, State: StateStart}

	runID, err := helper.GenerateUUID()
	if err != nil {
		return result, &StageError{State: StateStart, Err: err}
	}
	r := &run{
		state: StateStart,
		log:   p.log.With().Str("run_id", runID).Str("file", filename).Logger(),
	}
	defer func() { result.State = r.state }()

	r.log.Info().Str("path", req.FilePath).Msg("Processing file")
	if err := checkFile(req.FilePath); err != nil {
		return result, r.fail(err)
	}
	if err := p.extractor.Supported(req.FilePath); err != nil {
		return result, r.fail(err)
	}
	if req.Strategy == nil {
		return result, r.fail(fmt.Errorf("%w: no strategy given", chunker.ErrUnknownStrategy))
	}
	if !req.DryRun && (p.embedder == nil || p.sink == nil) {
		return result, r.fail(errors.New("pipeline has no embedder or sink configured"))
	}

	r.enter(StateExtracting)
	r.log.Info().Msg("Extracting text...")
	text, err := p.extractor.ExtractText(req.FilePath)
	if err != nil {
		return result, r.fail(err)
	}
	if text == "" {
		return result, r.fail(ErrEmptyText)
	}
	result.Characters = len([]rune(text))
	r.log.Info().Int("characters", result.Characters).Msg("Text extracted successfully")

	r.enter(StateChunking)
	r.log.Info().Str("strategy", req.Strategy.Name()).Msg("Chunking text...")
	chunks, err := chunker.Chunk(text, req.Strategy)
	if err != nil {
		return result, r.fail(err)
	}
	result.Chunks = chunks
	r.log.Info().Int("chunks", len(chunks)).Msg("Created chunks")

	if req.DryRun {
		r.enter(StateDone)
		r.log.Info().Msg("Dry run, skipping embedding and storage")
		return result, nil
	}

	r.enter(StateEmbedding)
	r.log.Info().Msg("Generating embeddings...")
	embeddings, err := p.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return result, r.fail(err)
	}
	r.log.Info().Int("embeddings", len(embeddings)).Msg("Generated embeddings")

	records, err := models.NewChunkRecords(chunks, embeddings, filename, req.Strategy.Name())
	if err != nil {
		return result, r.fail(err)
	}

	r.enter(StatePersisting)
	r.log.Info().Msg("Storing chunks...")
	if err := p.sink.Store(ctx, records); err != nil {
		return result, r.fail(err)
	}
	result.Stored = len(records)

	r.enter(StateDone)
	r.log.Info().Int("chunks", result.Stored).Msgf("Successfully indexed %d chunks from %s", result.Stored, filename)
	return result, nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return nil
}
