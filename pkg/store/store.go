package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/askmydocs/internal/types"
)

const (
	BackendLocal    = "local"
	BackendPGVector = "pgvector"

	// IndexFile is the sqlite file kept inside the index directory.
	IndexFile = "vectors.db"
)

// Config selects where the vector index lives.
type Config struct {
	Backend        string
	Dir            string // local backend
	PGVector       PGVectorConfig
	EmbeddingModel string // recorded in new local indexes
}

// ModelRecorder is implemented by indexes that remember their embedding model.
type ModelRecorder interface {
	EmbeddingModel(ctx context.Context) (string, error)
}

func (c Config) backend() string {
	if c.Backend == "" {
		return BackendLocal
	}
	return c.Backend
}

func (c Config) localPath() string {
	dir := c.Dir
	if dir == "" {
		dir = "index"
	}
	return filepath.Join(dir, IndexFile)
}

// Exists reports whether a persisted index holding at least one chunk is
// present. An empty index directory or an index without rows does not count.
func Exists(ctx context.Context, cfg Config) (bool, error) {
	switch cfg.backend() {
	case BackendLocal:
		info, err := os.Stat(cfg.localPath())
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
		if !info.Mode().IsRegular() {
			return false, nil
		}
		s, err := openLocal(cfg.localPath(), nil)
		if err != nil {
			return false, err
		}
		defer s.Close()
		n, err := s.Count(ctx)
		if err != nil {
			return false, err
		}
		return n > 0, nil
	case BackendPGVector:
		vs, err := connectPGVector(ctx, cfg.PGVector, nil)
		if err != nil {
			return false, err
		}
		defer vs.Close()
		return vs.tableHasRows(ctx)
	default:
		return false, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}

// Load opens an existing index. It fails with types.ErrIndexNotFound when
// nothing has been persisted yet.
func Load(ctx context.Context, cfg Config, embedder embeddings.Embedder) (types.Index, error) {
	if embedder == nil {
		return nil, errors.New("store: embedder is required")
	}
	ok, err := Exists(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w at %s", types.ErrIndexNotFound, cfg.location())
	}

	switch cfg.backend() {
	case BackendLocal:
		return openLocal(cfg.localPath(), embedder)
	default:
		return connectPGVector(ctx, cfg.PGVector, embedder)
	}
}

// Create prepares a new, empty index.
func Create(ctx context.Context, cfg Config, embedder embeddings.Embedder) (types.Index, error) {
	if embedder == nil {
		return nil, errors.New("store: embedder is required")
	}

	switch cfg.backend() {
	case BackendLocal:
		if err := os.MkdirAll(filepath.Dir(cfg.localPath()), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index dir: %w", err)
		}
		s, err := openLocal(cfg.localPath(), embedder)
		if err != nil {
			return nil, err
		}
		if err := s.setEmbeddingModel(ctx, cfg.EmbeddingModel); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case BackendPGVector:
		vs, err := connectPGVector(ctx, cfg.PGVector, embedder)
		if err != nil {
			return nil, err
		}
		if err := vs.initialize(ctx); err != nil {
			vs.Close()
			return nil, err
		}
		return vs, nil
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}

// Discard removes an index that was created but never filled. For pgvector
// the empty table is left in place; Exists already ignores it.
func Discard(cfg Config) error {
	if cfg.backend() != BackendLocal {
		return nil
	}
	if err := os.Remove(cfg.localPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove index: %w", err)
	}
	return nil
}

func (c Config) location() string {
	if c.backend() == BackendPGVector {
		if c.PGVector.TableName == "" {
			return "table chunks"
		}
		return "table " + c.PGVector.TableName
	}
	return c.localPath()
}
