package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/xhad/askmydocs/internal/fakes"
	"github.com/xhad/askmydocs/internal/types"
	"github.com/xhad/askmydocs/pkg/store"
)

func localConfig(t *testing.T) store.Config {
	return store.Config{
		Backend:        store.BackendLocal,
		Dir:            filepath.Join(t.TempDir(), "index"),
		EmbeddingModel: "fake-embed",
	}
}

func testDocs() []schema.Document {
	return []schema.Document{
		{PageContent: "The sky is blue.", Metadata: map[string]any{"source": "data/a.txt"}},
		{PageContent: "Grass is green in spring.", Metadata: map[string]any{"source": "data/b.pdf", "page": 1}},
		{PageContent: "Paris is the capital of France.", Metadata: map[string]any{"source": "data/b.pdf", "page": 2}},
	}
}

func TestLoadMissingIndex(t *testing.T) {
	cfg := localConfig(t)

	ok, err := store.Exists(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Load(context.Background(), cfg, &fakes.Embedder{})
	assert.ErrorIs(t, err, types.ErrIndexNotFound)
}

func TestEmptyIndexDirIsNotAnIndex(t *testing.T) {
	cfg := localConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Dir, 0o755))

	_, err := store.Load(context.Background(), cfg, &fakes.Embedder{})
	assert.ErrorIs(t, err, types.ErrIndexNotFound)
}

func TestIndexWithoutChunksIsNotAnIndex(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)

	idx, err := store.Create(ctx, cfg, &fakes.Embedder{})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	ok, err := store.Exists(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Load(ctx, cfg, &fakes.Embedder{})
	assert.ErrorIs(t, err, types.ErrIndexNotFound)

	require.NoError(t, store.Discard(cfg))
	_, err = os.Stat(filepath.Join(cfg.Dir, store.IndexFile))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Discard(cfg), "discarding twice is fine")
}

func TestCreateAddSearch(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	emb := &fakes.Embedder{}

	idx, err := store.Create(ctx, cfg, emb)
	require.NoError(t, err)

	ids, err := idx.AddDocuments(ctx, testDocs())
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	require.NoError(t, idx.Close())

	ok, err := store.Exists(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, ok)

	idx, err = store.Load(ctx, cfg, emb)
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := idx.SimilaritySearch(ctx, "what color is the sky", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "The sky is blue.", results[0].PageContent)
	assert.Equal(t, "data/a.txt", results[0].Metadata["source"])
	assert.LessOrEqual(t, len(results), 2)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	model, err := idx.(store.ModelRecorder).EmbeddingModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fake-embed", model)
}

func TestIncrementalAdd(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	emb := &fakes.Embedder{}

	idx, err := store.Create(ctx, cfg, emb)
	require.NoError(t, err)
	_, err = idx.AddDocuments(ctx, testDocs()[:1])
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	idx, err = store.Load(ctx, cfg, emb)
	require.NoError(t, err)
	defer idx.Close()
	_, err = idx.AddDocuments(ctx, testDocs()[1:])
	require.NoError(t, err)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, emb.Count())
}

func TestSearchFiltersAndThreshold(t *testing.T) {
	ctx := context.Background()
	idx, err := store.Create(ctx, localConfig(t), &fakes.Embedder{})
	require.NoError(t, err)
	defer idx.Close()
	_, err = idx.AddDocuments(ctx, testDocs())
	require.NoError(t, err)

	results, err := idx.SimilaritySearch(ctx, "capital of France", 3,
		vectorstores.WithFilters(map[string]any{"source": "data/b.pdf"}))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "data/b.pdf", r.Metadata["source"])
	}
	assert.Equal(t, "Paris is the capital of France.", results[0].PageContent)

	results, err = idx.SimilaritySearch(ctx, "capital of France", 3, vectorstores.WithScoreThreshold(0.99))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbeddingFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	emb := &fakes.Embedder{}
	idx, err := store.Create(ctx, localConfig(t), emb)
	require.NoError(t, err)
	defer idx.Close()

	emb.Err = errors.New("ollama unreachable")
	_, err = idx.AddDocuments(ctx, testDocs())
	assert.Error(t, err)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRetrieverTopK(t *testing.T) {
	ctx := context.Background()
	idx, err := store.Create(ctx, localConfig(t), &fakes.Embedder{})
	require.NoError(t, err)
	defer idx.Close()
	_, err = idx.AddDocuments(ctx, testDocs())
	require.NoError(t, err)

	docs, err := vectorstores.ToRetriever(idx, 1).GetRelevantDocuments(ctx, "green grass")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Grass is green in spring.", docs[0].PageContent)
}
