package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PGVectorStore keeps the index in a Postgres table using the pgvector extension.
type PGVectorStore struct {
	config   PGVectorConfig
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
}

var (
	_ vectorstores.VectorStore = (*PGVectorStore)(nil)

	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func (c PGVectorConfig) withDefaults() (PGVectorConfig, error) {
	if c.TableName == "" {
		c.TableName = "chunks"
	}
	if c.VectorDim == 0 {
		c.VectorDim = 384 // all-minilm
	}
	if !identifierRe.MatchString(c.TableName) {
		return c, fmt.Errorf("invalid table name %q", c.TableName)
	}
	if c.ConnString == "" {
		return c, fmt.Errorf("database url is required for the pgvector backend")
	}
	return c, nil
}

func connectPGVector(ctx context.Context, config PGVectorConfig, embedder embeddings.Embedder) (*PGVectorStore, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PGVectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}, nil
}

// tableHasRows reports whether the index table exists and holds at least one chunk.
func (vs *PGVectorStore) tableHasRows(ctx context.Context) (bool, error) {
	var exists bool
	if err := vs.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, vs.config.TableName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table: %w", err)
	}
	if !exists {
		return false, nil
	}
	var hasRows bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s)`, vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&hasRows); err != nil {
		return false, fmt.Errorf("failed to check rows: %w", err)
	}
	return hasRows, nil
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (vs *PGVectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	emb := vs.embedderFor(options)

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = sanitizeUTF8(doc.PageContent)
	}
	vectors, err := emb.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)`,
		vs.config.TableName)

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = uuid.NewString()
		_, err = tx.Exec(ctx, stmt,
			ids[i],
			texts[i],
			doc.Metadata,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ids, nil
}

func (vs *PGVectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	if numDocuments <= 0 {
		return nil, nil
	}
	emb := vs.embedderFor(options)

	queryVec, err := emb.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`
		SELECT content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sql, pgvector.NewVector(queryVec), numDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var docs []schema.Document
	for rows.Next() {
		var (
			doc   schema.Document
			score float64
		)
		if err := rows.Scan(&doc.PageContent, &doc.Metadata, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		doc.Score = float32(score)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (vs *PGVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (vs *PGVectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}

func (vs *PGVectorStore) embedderFor(options []vectorstores.Option) embeddings.Embedder {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Embedder != nil {
		return opts.Embedder
	}
	return vs.embedder
}

// sanitizeUTF8 drops invalid bytes, which Postgres rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
