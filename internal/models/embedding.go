package models

import (
	"errors"
	"fmt"
)

var ErrCountMismatch = errors.New("chunk and embedding counts differ")

// ChunkRecord is one persisted row: a chunk, its vector and provenance.
type ChunkRecord struct {
	Content        string
	Embedding      []float32
	SourceFilename string
	Strategy       string
	ChunkID        int
}

// NewChunkRecords pairs chunks with embeddings by position. It refuses to
// build anything when the two sequences have different lengths.
func NewChunkRecords(chunks []string, embeddings [][]float32, filename, strategy string) ([]ChunkRecord, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", ErrCountMismatch, len(chunks), len(embeddings))
	}
	records := make([]ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = ChunkRecord{
			Content:        chunk,
			Embedding:      embeddings[i],
			SourceFilename: filename,
			Strategy:       strategy,
			ChunkID:        i,
		}
	}
	return records, nil
}
