package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/xhad/askmydocs/internal/logger"
	"github.com/xhad/askmydocs/internal/models"
	"github.com/xhad/askmydocs/internal/types"
	"github.com/xhad/askmydocs/pkg/store"
)

// TopK is the number of chunks retrieved per question.
const TopK = 3

type Options struct {
	Index          store.Config
	Embedder       embeddings.Embedder
	EmbeddingModel string // compared with the model recorded in the index
	LLM            llms.Model
	CallOptions    []chains.ChainCallOption
}

// Engine answers questions from the chunks of a persisted index. It keeps no
// conversation state of its own.
type Engine struct {
	index    types.Index
	qa       chains.RetrievalQA
	condense *chains.LLMChain
	opts     []chains.ChainCallOption
	warning  string
}

var _ types.ChatHandler = (*Engine)(nil)

// Build loads the index and wires retriever, prompt and model into a
// retrieval QA chain.
func Build(ctx context.Context, opts Options) (*Engine, error) {
	if opts.LLM == nil {
		return nil, errors.New("rag: language model is required")
	}

	idx, err := store.Load(ctx, opts.Index, opts.Embedder)
	if err != nil {
		return nil, err
	}
	warning := checkEmbeddingModel(ctx, idx, opts.EmbeddingModel)

	combine := chains.NewStuffDocuments(chains.NewLLMChain(opts.LLM, answerPrompt()))
	qa := chains.NewRetrievalQA(combine, vectorstores.ToRetriever(idx, TopK))
	qa.ReturnSourceDocuments = true

	return &Engine{
		index:    idx,
		qa:       qa,
		condense: chains.NewLLMChain(opts.LLM, condensePrompt()),
		opts:     opts.CallOptions,
		warning:  warning,
	}, nil
}

// checkEmbeddingModel returns a user-facing warning when the index was built
// with another embedding model than the configured one.
func checkEmbeddingModel(ctx context.Context, idx types.Index, want string) string {
	rec, ok := idx.(store.ModelRecorder)
	if !ok || want == "" {
		return ""
	}
	got, err := rec.EmbeddingModel(ctx)
	if err != nil {
		logger.Warn("could not read index embedding model: %v", err)
		return ""
	}
	if got == "" || got == want {
		return ""
	}
	warning := fmt.Sprintf("Index was built with embedding model %q but %q is configured. Re-ingest to get reliable answers.", got, want)
	logger.Warn("%s", warning)
	return warning
}

// Warning is non-empty when the engine works but answers may be unreliable.
func (e *Engine) Warning() string {
	return e.warning
}

// Handle answers question. When history is non-empty the question is first
// rewritten into a standalone one.
func (e *Engine) Handle(ctx context.Context, question string, history []models.Message) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	if len(history) > 0 {
		standalone, err := e.standaloneQuestion(ctx, question, history)
		if err != nil {
			return nil, err
		}
		logger.Debug("condensed question: %s", standalone)
		question = standalone
	}

	result, err := chains.Call(ctx, e.qa, map[string]any{"query": question}, e.opts...)
	if err != nil {
		return nil, wrapChainError(err)
	}

	text, _ := result["text"].(string)
	docs, _ := result["source_documents"].([]schema.Document)

	answer := &models.Answer{Text: strings.TrimSpace(text)}
	for _, doc := range docs {
		answer.Sources = append(answer.Sources, ChunkRef(doc))
	}
	return answer, nil
}

func (e *Engine) standaloneQuestion(ctx context.Context, question string, history []models.Message) (string, error) {
	var b strings.Builder
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			b.WriteString("Human: ")
		default:
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	out, err := chains.Call(ctx, e.condense, map[string]any{
		"chat_history": b.String(),
		"question":     question,
	}, e.opts...)
	if err != nil {
		return "", wrapChainError(err)
	}
	standalone, _ := out[e.condense.OutputKey].(string)
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return question, nil
	}
	return standalone, nil
}

func (e *Engine) Close() error {
	return e.index.Close()
}

func wrapChainError(err error) error {
	if errors.Is(err, types.ErrEmbeddingBackend) {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrGeneration, err)
}

// ChunkRef converts a retrieved document into a source reference.
func ChunkRef(doc schema.Document) models.ChunkRef {
	ref := models.ChunkRef{Content: doc.PageContent, Score: doc.Score}
	if src, ok := doc.Metadata["source"].(string); ok {
		ref.Source = src
	}
	switch page := doc.Metadata["page"].(type) {
	case int:
		ref.Page = page
	case int64:
		ref.Page = int(page)
	case float64:
		ref.Page = int(page)
	}
	return ref
}

// FormatSources lists the distinct sources of refs for citation.
func FormatSources(refs []models.ChunkRef) string {
	if len(refs) == 0 {
		return ""
	}

	var sources []string
	seen := make(map[string]bool)

	for _, ref := range refs {
		label := ref.Source
		if ref.Page > 0 {
			label = fmt.Sprintf("%s (page %d)", ref.Source, ref.Page)
		}
		if !seen[label] {
			sources = append(sources, label)
			seen[label] = true
		}
	}

	return fmt.Sprintf("Sources:\n%s", strings.Join(sources, "\n"))
}
