package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/askmydocs/internal/logger"
	"github.com/xhad/askmydocs/internal/models"
	"github.com/xhad/askmydocs/internal/types"
	"github.com/xhad/askmydocs/pkg/loader"
	"github.com/xhad/askmydocs/pkg/store"
	"github.com/xhad/askmydocs/pkg/tracker"
)

const DefaultDataDir = "data"

// EmbedderFactory builds the embedding backend for one run.
type EmbedderFactory func(ctx context.Context) (embeddings.Embedder, error)

type PipelineConfig struct {
	DataDir  string
	Tracker  *tracker.Store
	Index    store.Config
	Embedder EmbedderFactory
	Loaders  *loader.Registry

	// OnProgress is called after each new file has been loaded.
	OnProgress func(path string)
}

// Pipeline turns new files in the data directory into indexed chunks.
type Pipeline struct {
	config PipelineConfig
}

var _ types.Ingester = (*Pipeline)(nil)

// one writer per process, shared by every session of the web server
var writeMu sync.Mutex

func NewWithConfig(config PipelineConfig) (*Pipeline, error) {
	if config.DataDir == "" {
		config.DataDir = DefaultDataDir
	}
	if config.Tracker == nil {
		config.Tracker = tracker.New(tracker.DefaultPath)
	}
	if config.Loaders == nil {
		config.Loaders = loader.New()
	}
	if config.Embedder == nil {
		return nil, errors.New("embedder factory is required")
	}
	return &Pipeline{config: config}, nil
}

func (p *Pipeline) DataDir() string {
	return p.config.DataDir
}

// Loaders returns the registry used to decide which files are ingested.
func (p *Pipeline) Loaders() *loader.Registry {
	return p.config.Loaders
}

// Ingest indexes every supported, untracked file in the data directory and
// records it in the tracker. A run with nothing new touches neither the
// index nor the tracker.
func (p *Pipeline) Ingest(ctx context.Context) (*models.IngestionReport, error) {
	writeMu.Lock()
	defer writeMu.Unlock()

	embedder, err := p.config.Embedder(ctx)
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingBackend) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingBackend, err)
	}

	ingested, err := p.config.Tracker.Load()
	if err != nil {
		return nil, err
	}

	files, chunks, err := p.loadNew(ctx, ingested)
	if err != nil {
		return nil, err
	}

	report := &models.IngestionReport{Files: files, Chunks: len(chunks)}
	if len(chunks) == 0 {
		logger.Info("no new documents in %s", p.config.DataDir)
		report.NothingToDo = true
		return report, nil
	}

	if err := p.index(ctx, embedder, chunks); err != nil {
		return nil, err
	}

	// index first, then tracker: a crash in between re-ingests these files next time
	if err := p.config.Tracker.Save(append(ingested, files...)); err != nil {
		return nil, err
	}

	logger.Info("ingested %d file(s), %d chunk(s)", len(files), len(chunks))
	return report, nil
}

func (p *Pipeline) loadNew(ctx context.Context, ingested []string) ([]string, []schema.Document, error) {
	entries, err := os.ReadDir(p.config.DataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read data dir: %w", err)
	}

	var (
		files  []string
		chunks []schema.Document
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(p.config.DataDir, entry.Name())
		if tracker.Contains(ingested, path) {
			logger.Debug("skipping %s, already ingested", path)
			continue
		}

		docs, ok, err := p.config.Loaders.Load(ctx, path)
		if !ok {
			logger.Debug("skipping %s, unsupported type", path)
			continue
		}
		if err != nil {
			return nil, nil, &types.LoadError{File: path, Err: err}
		}

		for i := range docs {
			if docs[i].Metadata == nil {
				docs[i].Metadata = make(map[string]any)
			}
			docs[i].Metadata["source"] = path
		}
		logger.Debug("loaded %s: %d chunk(s)", path, len(docs))

		files = append(files, path)
		chunks = append(chunks, docs...)
		if p.config.OnProgress != nil {
			p.config.OnProgress(path)
		}
	}
	return files, chunks, nil
}

func (p *Pipeline) index(ctx context.Context, embedder embeddings.Embedder, chunks []schema.Document) error {
	exists, err := store.Exists(ctx, p.config.Index)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}

	var idx types.Index
	if exists {
		idx, err = store.Load(ctx, p.config.Index, embedder)
	} else {
		logger.Info("creating new index")
		idx, err = store.Create(ctx, p.config.Index, embedder)
	}
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}

	if _, err := idx.AddDocuments(ctx, chunks); err != nil {
		_ = idx.Close()
		if !exists {
			if derr := store.Discard(p.config.Index); derr != nil {
				logger.Warn("%v", derr)
			}
		}
		if errors.Is(err, types.ErrEmbeddingBackend) {
			return err
		}
		return fmt.Errorf("failed to add chunks to index: %w", err)
	}

	if err := idx.Close(); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	return nil
}
