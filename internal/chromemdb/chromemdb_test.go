package chromemdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-indexer/internal/config"
	"document-indexer/internal/models"
)

func records(t *testing.T, filename string, chunks ...string) []models.ChunkRecord {
	t.Helper()
	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vectors[i] = []float32{float32(i + 1), 1, 0}
	}
	out, err := models.NewChunkRecords(chunks, vectors, filename, models.StrategyParagraph)
	require.NoError(t, err)
	return out
}

func TestVectorDBManager(t *testing.T) {
	t.Run("ShouldRequirePath", func(t *testing.T) {
		_, err := NewVectorDBManager(config.ChromemConfig{Collection: "c"}, zerolog.Nop())
		require.ErrorIs(t, err, config.ErrMissingConfig)
	})

	t.Run("ShouldRejectShortEncryptionKey", func(t *testing.T) {
		_, err := NewVectorDBManager(config.ChromemConfig{Path: t.TempDir(), Collection: "c", EncryptionKey: "short"}, zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("ShouldAppendAcrossRuns", func(t *testing.T) {
		cfg := config.ChromemConfig{Path: filepath.Join(t.TempDir(), "vectors"), Collection: "chunks"}
		m, err := NewVectorDBManager(cfg, zerolog.Nop())
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, m.Store(ctx, records(t, "a.docx", "First.", "Second.")))
		require.NoError(t, m.Store(ctx, records(t, "a.docx", "First.")))

		_, c, err := m.Load()
		require.NoError(t, err)
		assert.Equal(t, 3, c.Count())

		results, err := c.QueryEmbedding(ctx, []float32{2, 1, 0}, 1, map[string]string{"chunk_index": "1"}, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Second.", results[0].Content)
		assert.Equal(t, "a.docx", results[0].Metadata["filename"])
		assert.Equal(t, models.StrategyParagraph, results[0].Metadata["split_strategy"])
	})

	t.Run("ShouldStoreUnitLengthEmbeddings", func(t *testing.T) {
		cfg := config.ChromemConfig{Path: filepath.Join(t.TempDir(), "vectors"), Collection: "chunks"}
		m, err := NewVectorDBManager(cfg, zerolog.Nop())
		require.NoError(t, err)

		ctx := context.Background()
		rs := records(t, "b.pdf", "Only.")
		rs[0].Embedding = []float32{3, 4, 0}
		require.NoError(t, m.Store(ctx, rs))

		_, c, err := m.Load()
		require.NoError(t, err)
		results, err := c.QueryEmbedding(ctx, []float32{3, 4, 0}, 1, nil, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.InDeltaSlice(t, []float32{0.6, 0.8, 0}, results[0].Embedding, 1e-6)
	})

	t.Run("ShouldLeaveExportUntouchedOnFailure", func(t *testing.T) {
		cfg := config.ChromemConfig{Path: t.TempDir(), Collection: "chunks"}
		m, err := NewVectorDBManager(cfg, zerolog.Nop())
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, m.Store(ctx, records(t, "a.pdf", "Kept.")))
		before, err := os.ReadFile(m.FilePath())
		require.NoError(t, err)

		bad := records(t, "b.pdf", "Dropped.", "Also dropped.")
		bad[1].Content = ""
		bad[1].Embedding = nil
		err = m.Store(ctx, bad)
		require.ErrorIs(t, err, ErrStoreFailed)

		after, err := os.ReadFile(m.FilePath())
		require.NoError(t, err)
		assert.Equal(t, before, after)
		_, err = os.Stat(m.FilePath() + ".tmp")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestCreateMetadata(t *testing.T) {
	meta := CreateMetadata(models.ChunkRecord{SourceFilename: "x.pdf", Strategy: models.StrategyFixed, ChunkID: 7})
	assert.Equal(t, map[string]string{"filename": "x.pdf", "split_strategy": "fixed", "chunk_index": "7"}, meta)
}
