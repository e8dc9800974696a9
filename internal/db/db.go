package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-indexer/internal/config"
	"document-indexer/internal/models"
)

var ErrStoreFailed = errors.New("store chunks")

// Document is one row of the chunk table.
type Document struct {
	bun.BaseModel `bun:"table:document_chunks,alias:dc"`
	ID            int64     `bun:"id,pk,autoincrement"`
	ChunkText     string    `bun:"chunk_text,notnull"`
	Embedding     Vector    `bun:"embedding,notnull,type:vector(768)"`
	Filename      string    `bun:"filename,notnull"`
	SplitStrategy string    `bun:"split_strategy,notnull"`
	ChunkIndex    int       `bun:"chunk_index,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// insertColumns are the columns written on insert. id and created_at come
// from their column defaults.
var insertColumns = []string{"chunk_text", "embedding", "filename", "split_strategy", "chunk_index"}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a database handle with the configured driver. No
// connection is made until the handle is used.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %s", config.ErrMissingConfig, config.EnvPostgresURL)
	}
	switch cfg.Driver {
	case config.DriverPG, "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL))), nil
	case config.DriverPQ:
		connector, err := pq.NewConnector(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		return sql.OpenDB(connector), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// InitDB enables pgvector and creates the chunk table when it is missing.
func InitDB(ctx context.Context, db bun.IDB, table string) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enable vector extension: %w", err)
	}
	_, err := db.NewCreateTable().
		Model((*Document)(nil)).
		ModelTableExpr("?", bun.Ident(table)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// StoreDocuments inserts all docs with one statement.
func StoreDocuments(ctx context.Context, db bun.IDB, table string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&docs).
		ModelTableExpr("?", bun.Ident(table)).
		Column(insertColumns...).
		Exec(ctx)
	return err
}

// DropDocuments drops the chunk table.
func DropDocuments(ctx context.Context, db bun.IDB, table string) error {
	_, err := db.NewDropTable().
		Model((*Document)(nil)).
		ModelTableExpr("?", bun.Ident(table)).
		IfExists().
		Exec(ctx)
	return err
}

// ListDocuments returns the rows stored for filename in insertion order.
func ListDocuments(ctx context.Context, db bun.IDB, table, filename string) ([]Document, error) {
	var docs []Document
	err := db.NewSelect().
		Model(&docs).
		ModelTableExpr("? AS dc", bun.Ident(table)).
		Where("dc.filename = ?", filename).
		OrderExpr("dc.id ASC").
		Scan(ctx)
	return docs, err
}

// Store writes chunk records to Postgres. Each call opens its own
// connection, inserts every record in one transaction, and closes.
type Store struct {
	cfg config.DatabaseConfig
	log zerolog.Logger
}

func NewStore(cfg config.DatabaseConfig, log zerolog.Logger) *Store {
	return &Store{cfg: cfg, log: log}
}

func (s *Store) Store(ctx context.Context, records []models.ChunkRecord) error {
	sqldb, err := ConnectDB(&s.cfg)
	if err != nil {
		return err
	}
	db := NewDB(sqldb, s.cfg.Debug)
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: connect: %w", ErrStoreFailed, describe(err))
	}
	if s.cfg.CreateTable {
		if err := InitDB(ctx, db, s.cfg.Table); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreFailed, describe(err))
		}
	}

	docs := toDocuments(records)
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return StoreDocuments(ctx, tx, s.cfg.Table, docs)
	})
	if err != nil {
		return fmt.Errorf("%w: insert %d rows into %s: %w", ErrStoreFailed, len(docs), s.cfg.Table, describe(err))
	}

	s.log.Debug().Int("rows", len(docs)).Str("table", s.cfg.Table).Msg("Committed chunks")
	return nil
}

func toDocuments(records []models.ChunkRecord) []Document {
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{
			ChunkText:     r.Content,
			Embedding:     Vector(r.Embedding),
			Filename:      r.SourceFilename,
			SplitStrategy: r.Strategy,
			ChunkIndex:    r.ChunkID,
		}
	}
	return docs
}

// describe adds the SQLSTATE code reported by either driver.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pqErr.Code)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pgErr.Field('C'))
	}
	return err
}
