package types

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/vectorstores"
	"github.com/xhad/askmydocs/internal/models"
)

// Core interfaces
type ChatHandler interface {
	Handle(ctx context.Context, question string, history []models.Message) (*models.Answer, error)
	Close() error
}

type Index interface {
	vectorstores.VectorStore
	Count(ctx context.Context) (int, error)
	Close() error
}

type Ingester interface {
	Ingest(ctx context.Context) (*models.IngestionReport, error)
}

var (
	ErrCorruptTracker    = errors.New("corrupt tracker file")
	ErrEmbeddingBackend  = errors.New("embedding backend error")
	ErrIndexNotFound     = errors.New("index not found")
	ErrGeneration        = errors.New("generation error")
	ErrNoIndex           = errors.New("no index loaded, upload documents first")
	ErrUnsupportedUpload = errors.New("unsupported file type")
)

// LoadError reports a source document that could not be read or parsed.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
