package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestConfig(t *testing.T) {
	tmpDir := t.TempDir()
	got := SetupTestConfig(t, tmpDir, "")

	want := filepath.Join(tmpDir, "config.yml")
	assert.Equal(t, want, got)

	content, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Contains(t, string(content), filepath.Join(tmpDir, "dictionary.db"))
	assert.Contains(t, string(content), "endpoint: http://127.0.0.1:11434")
	assert.Contains(t, string(content), "model: "+KeywordEmbedderModel)
}

func TestWriteSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds", "Dictionary.json")
	WriteSeedFile(t, path, SeedRecords)

	got, err := dictionary.ReadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, SeedRecords, got)
}

func TestKeywordEmbedder(t *testing.T) {
	embedder := NewKeywordEmbedder("clos", "estim")

	got, err := embedder.Embed(context.Background(), []string{"Closing", "ESTIMATION", "CPU"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{
		{1, 0, 0.01},
		{0, 1, 0.01},
		{0, 0, 0.01},
	}, got)
	assert.Equal(t, 1, embedder.Calls())
	assert.Equal(t, KeywordEmbedderModel, embedder.Model())
}
