package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Func loads the chunks of a single file.
type Func func(ctx context.Context, path string) ([]schema.Document, error)

// Registry dispatches files to a loader by extension. Extensions are matched
// case-insensitively and include the leading dot.
type Registry struct {
	byExt map[string]Func
}

// New returns a registry that knows .pdf (one chunk per page) and .txt (one
// chunk per file).
func New() *Registry {
	r := &Registry{byExt: make(map[string]Func)}
	r.Register(".pdf", LoadPDF)
	r.Register(".txt", LoadText)
	return r
}

func (r *Registry) Register(ext string, fn Func) {
	r.byExt[strings.ToLower(ext)] = fn
}

func (r *Registry) lookup(name string) (Func, bool) {
	fn, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return fn, ok
}

func (r *Registry) Supports(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Extensions lists the registered extensions without the dot, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return exts
}

// Load reads path with the loader registered for its extension. The boolean
// is false when no loader handles the file.
func (r *Registry) Load(ctx context.Context, path string) ([]schema.Document, bool, error) {
	fn, ok := r.lookup(path)
	if !ok {
		return nil, false, nil
	}
	docs, err := fn(ctx, path)
	return docs, true, err
}

func LoadPDF(ctx context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	docs, err := documentloaders.NewPDF(f, info.Size()).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return docs, nil
}

func LoadText(ctx context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return documentloaders.NewText(f).Load(ctx)
}
