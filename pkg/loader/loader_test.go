package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/askmydocs/internal/fakes"
	"github.com/xhad/askmydocs/pkg/loader"
)

func TestSupports(t *testing.T) {
	r := loader.New()

	tests := []struct {
		name     string
		expected bool
	}{
		{"a.txt", true},
		{"b.pdf", true},
		{"REPORT.PDF", true},
		{"notes.docx", false},
		{"README", false},
		{"archive.txt.gz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Supports(tt.name))
		})
	}
	assert.Equal(t, []string{"pdf", "txt"}, r.Extensions())
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("The sky is blue."), 0o644))

	docs, ok, err := loader.New().Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, docs, 1)
	assert.Equal(t, "The sky is blue.", docs[0].PageContent)
}

func TestLoadUnsupported(t *testing.T) {
	docs, ok, err := loader.New().Load(context.Background(), "data/notes.docx")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, docs)
}

func TestLoadMissingFile(t *testing.T) {
	_, ok, err := loader.New().Load(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.True(t, ok)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPDFOneChunkPerPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.pdf")
	require.NoError(t, os.WriteFile(path, fakes.PDF("Page one text", "Page two text"), 0o644))

	docs, ok, err := loader.New().Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, docs, 2)

	assert.Contains(t, docs[0].PageContent, "Page one text")
	assert.Equal(t, 1, docs[0].Metadata["page"])
	assert.Equal(t, 2, docs[0].Metadata["total_pages"])
	assert.Contains(t, docs[1].PageContent, "Page two text")
	assert.Equal(t, 2, docs[1].Metadata["page"])
}

func TestLoadCorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	_, _, err := loader.New().Load(context.Background(), path)
	assert.Error(t, err)
}

func TestRegisterOverrides(t *testing.T) {
	r := loader.New()
	boom := errors.New("boom")
	r.Register(".PDF", func(context.Context, string) ([]schema.Document, error) {
		return nil, boom
	})

	_, ok, err := r.Load(context.Background(), "b.pdf")
	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
}
