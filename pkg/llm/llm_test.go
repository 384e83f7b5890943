package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/askmydocs/internal/fakes"
	"github.com/xhad/askmydocs/internal/types"
	"github.com/xhad/askmydocs/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  llm.ChatConfig
		wantErr bool
	}{
		{
			name:   "defaults",
			config: llm.ChatConfig{},
		},
		{
			name: "explicit",
			config: llm.ChatConfig{
				Model:       "testmodel",
				Temperature: 0.5,
				MaxTokens:   1000,
				BaseURL:     "http://localhost:1234",
			},
		},
		{
			name:    "temperature out of range",
			config:  llm.ChatConfig{Temperature: 3},
			wantErr: true,
		},
		{
			name:    "negative max tokens",
			config:  llm.ChatConfig{MaxTokens: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := llm.NewWithConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, model)
		})
	}
}

func TestCallOptions(t *testing.T) {
	assert.Empty(t, llm.ChatConfig{}.CallOptions())
	assert.Len(t, llm.ChatConfig{Temperature: 0.8, MaxTokens: 500}.CallOptions(), 2)
}

func TestNewEmbedderWithConfigDefaults(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultEmbeddingModel, emb.ModelName())
	assert.Equal(t, llm.DefaultBaseURL, emb.Config.BaseURL)
}

func TestWrapTagsBackendErrors(t *testing.T) {
	inner := &fakes.Embedder{Err: errors.New("connection refused")}
	emb := llm.Wrap(llm.EmbedderConfig{Model: "all-minilm"}, inner)

	_, err := emb.EmbedDocuments(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, types.ErrEmbeddingBackend)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = emb.EmbedQuery(context.Background(), "a")
	assert.ErrorIs(t, err, types.ErrEmbeddingBackend)
}

func TestWrapPassesVectors(t *testing.T) {
	emb := llm.Wrap(llm.EmbedderConfig{Model: "fake"}, &fakes.Embedder{})

	vectors, err := emb.EmbedDocuments(context.Background(), []string{"the sky", "is blue"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], fakes.Dim)
}
