// Package fakes holds deterministic stand-ins for the Ollama backends so the
// pipeline can be exercised in tests without a running model server.
package fakes

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/llms"
)

const Dim = 64

// Embedder hashes lowercase words into a fixed-size bag-of-words vector.
type Embedder struct {
	mu       sync.Mutex
	Err      error
	Embedded []string
}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = Vector(text)
	}
	e.Embedded = append(e.Embedded, texts...)
	return out, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return Vector(text), nil
}

// Count returns how many document texts were embedded so far.
func (e *Embedder) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Embedded)
}

func Vector(text string) []float32 {
	vec := make([]float32, Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%Dim]++
	}
	return vec
}

// LLM answers every prompt with Respond, recording the prompts it saw.
type LLM struct {
	mu      sync.Mutex
	Respond func(prompt string) (string, error)
	Prompts []string
}

var errNoPrompt = errors.New("fake llm: no text in prompt")

func (l *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
	}
	if b.Len() == 0 {
		return nil, errNoPrompt
	}
	text, err := l.Call(ctx, b.String())
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (l *LLM) Call(_ context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	l.mu.Lock()
	l.Prompts = append(l.Prompts, prompt)
	respond := l.Respond
	l.mu.Unlock()
	if respond == nil {
		return "ok", nil
	}
	return respond(prompt)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (l *LLM) LastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Prompts) == 0 {
		return ""
	}
	return l.Prompts[len(l.Prompts)-1]
}
