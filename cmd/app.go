package main

import (
	"context"
	"path/filepath"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/askmydocs/internal/types"
	cfgPkg "github.com/xhad/askmydocs/pkg/config"
	"github.com/xhad/askmydocs/pkg/ingest"
	"github.com/xhad/askmydocs/pkg/llm"
	"github.com/xhad/askmydocs/pkg/rag"
	"github.com/xhad/askmydocs/pkg/session"
	"github.com/xhad/askmydocs/pkg/store"
	"github.com/xhad/askmydocs/pkg/tracker"
)

// app turns the loaded config into pipeline, engine and session instances.
type app struct {
	cfg *cfgPkg.Config
}

func newApp(cfg *cfgPkg.Config) *app {
	return &app{cfg: cfg}
}

func (a *app) embedderConfig() llm.EmbedderConfig {
	return llm.EmbedderConfig{
		Model:   a.cfg.Embedder.Model,
		BaseURL: a.cfg.Embedder.BaseURL,
	}
}

func (a *app) chatConfig() llm.ChatConfig {
	return llm.ChatConfig{
		Model:       a.cfg.LLM.Model,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		BaseURL:     a.cfg.LLM.BaseURL,
	}
}

func (a *app) indexConfig() store.Config {
	return store.Config{
		Backend: a.cfg.Index.Backend,
		Dir:     a.cfg.Index.Dir,
		PGVector: store.PGVectorConfig{
			ConnString: a.cfg.Index.URL,
			TableName:  a.cfg.Index.TableName,
			VectorDim:  a.cfg.Index.VectorDim,
		},
		EmbeddingModel: a.cfg.Embedder.Model,
	}
}

func (a *app) newEmbedder(context.Context) (embeddings.Embedder, error) {
	return llm.NewEmbedderWithConfig(a.embedderConfig())
}

func (a *app) pipeline(onProgress func(path string)) (*ingest.Pipeline, error) {
	return ingest.NewWithConfig(ingest.PipelineConfig{
		DataDir:    filepath.Clean(a.cfg.DataDir),
		Tracker:    tracker.New(a.cfg.TrackerFile),
		Index:      a.indexConfig(),
		Embedder:   a.newEmbedder,
		OnProgress: onProgress,
	})
}

func (a *app) buildHandler(ctx context.Context) (types.ChatHandler, error) {
	embedder, err := llm.NewEmbedderWithConfig(a.embedderConfig())
	if err != nil {
		return nil, err
	}
	chat := a.chatConfig()
	model, err := llm.NewWithConfig(chat)
	if err != nil {
		return nil, err
	}
	return rag.Build(ctx, rag.Options{
		Index:          a.indexConfig(),
		Embedder:       embedder,
		EmbeddingModel: embedder.ModelName(),
		LLM:            model,
		CallOptions:    chat.CallOptions(),
	})
}

func (a *app) newSession() (*session.Session, error) {
	p, err := a.pipeline(nil)
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		DataDir:    p.DataDir(),
		Ingester:   p,
		Build:      a.buildHandler,
		Extensions: p.Loaders().Extensions(),
	})
}
