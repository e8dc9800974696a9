package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"document-indexer/internal/config"
	"document-indexer/internal/helper"
	"document-indexer/internal/models"
)

var ErrStoreFailed = errors.New("store chunks in chromem")

const exportFile = "collection.gob"

// VectorDBManager keeps chunk records in a chromem-go collection that lives
// in a single export file. The file is only replaced once every record of a
// run has been added, so a failed run leaves the previous export untouched.
// chromem-go normalizes every embedding to unit length when it is added, so
// stored vectors keep their direction but not their magnitude.
type VectorDBManager struct {
	dbPath        string
	filePath      string
	collection    string
	compress      bool
	encryptionKey string
	log           zerolog.Logger
}

func NewVectorDBManager(cfg config.ChromemConfig, log zerolog.Logger) (*VectorDBManager, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: chromem.path", config.ErrMissingConfig)
	}
	if cfg.EncryptionKey != "" && len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("chromem encryption key must be 32 bytes, got %d", len(cfg.EncryptionKey))
	}
	name := exportFile
	if cfg.Compress {
		name += ".gz"
	}
	return &VectorDBManager{
		dbPath:        cfg.Path,
		filePath:      filepath.Join(cfg.Path, cfg.Collection+"."+name),
		collection:    cfg.Collection,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		log:           log,
	}, nil
}

// FilePath returns the export file the collection is persisted to.
func (m *VectorDBManager) FilePath() string {
	return m.filePath
}

// Load reads the current export into memory. A missing file yields an empty
// database.
func (m *VectorDBManager) Load() (*chromem.DB, *chromem.Collection, error) {
	db := chromem.NewDB()
	if _, err := os.Stat(m.filePath); err == nil {
		if err := db.ImportFromFile(m.filePath, m.encryptionKey); err != nil {
			return nil, nil, fmt.Errorf("failed to import database: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, err
	}

	c, err := db.GetOrCreateCollection(m.collection, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return db, c, nil
}

// Store appends records to the collection and rewrites the export file.
func (m *VectorDBManager) Store(ctx context.Context, records []models.ChunkRecord) error {
	if err := helper.CreateFolder(m.dbPath); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	db, c, err := m.Load()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	docs, err := toDocuments(records)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("%w: failed to add documents: %w", ErrStoreFailed, err)
		}
	}

	if err := m.export(db); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	m.log.Debug().Int("documents", len(docs)).Int("total", c.Count()).Str("file", m.filePath).Msg("Exported collection")
	return nil
}

// export writes to a sibling temp file and renames it into place.
func (m *VectorDBManager) export(db *chromem.DB) error {
	tmp := m.filePath + ".tmp"
	if err := db.ExportToFile(tmp, m.compress, m.encryptionKey, m.collection); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to export database: %w", err)
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace export: %w", err)
	}
	return nil
}

func toDocuments(records []models.ChunkRecord) ([]chromem.Document, error) {
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   r.Content,
			Embedding: r.Embedding,
			Metadata:  CreateMetadata(r),
		})
	}
	return docs, nil
}

// CreateMetadata returns the provenance stored next to each chunk.
func CreateMetadata(r models.ChunkRecord) map[string]string {
	return map[string]string{
		"filename":       r.SourceFilename,
		"split_strategy": r.Strategy,
		"chunk_index":    strconv.Itoa(r.ChunkID),
	}
}
