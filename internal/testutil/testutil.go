// Package testutil provides shared test helpers for config files, seed fixtures and embeddings.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/stretchr/testify/require"
)

// SeedRecords is a small dictionary shared by tests.
var SeedRecords = []dictionary.Record{
	{Keyword: "Closing", Abbreviation: "Clsg", Description: "The act of bringing something to an end."},
	{Keyword: "Estimation", Abbreviation: "Estimn", Description: "An approximate calculation of a value."},
	{Keyword: "Estimated", Abbreviation: "Estimd", Description: "Roughly calculated or judged."},
	{Keyword: "Central Processing Unit", Abbreviation: "CPU", Description: "The main processor of a computer."},
}

// SetupTestConfig creates a config file whose database, seed file and index live under tmpDir.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string, ollamaEndpoint string) string {
	t.Helper()

	if ollamaEndpoint == "" {
		ollamaEndpoint = "http://127.0.0.1:11434"
	}
	configContent := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
seed:
  path: %s
index:
  directory: %s
  similar_count: 2
generation:
  provider: ollama
  model: gemma3n:e4b
  max_attempts: 3
embedding:
  provider: ollama
  model: %s
ollama:
  endpoint: %s
`,
		filepath.Join(tmpDir, "dictionary.db"),
		filepath.Join(tmpDir, "Dictionary.json"),
		filepath.Join(tmpDir, "index"),
		KeywordEmbedderModel,
		ollamaEndpoint,
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// WriteSeedFile writes records as a JSON seed file.
func WriteSeedFile(t *testing.T, path string, records []dictionary.Record) {
	t.Helper()

	content, err := json.MarshalIndent(records, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

const KeywordEmbedderModel = "keyword-test-embedder"

// KeywordEmbedder is a deterministic embedder for tests.
// Each axis is 1 when the text contains the term (case-insensitive), plus a small constant axis
// so that no vector is zero.
type KeywordEmbedder struct {
	Terms     []string
	ModelName string
	calls     atomic.Int32
}

func NewKeywordEmbedder(terms ...string) *KeywordEmbedder {
	return &KeywordEmbedder{
		Terms:     terms,
		ModelName: KeywordEmbedderModel,
	}
}

func (e *KeywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vector := make([]float32, len(e.Terms)+1)
		for j, term := range e.Terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				vector[j] = 1
			}
		}
		vector[len(e.Terms)] = 0.01
		vectors[i] = vector
	}
	return vectors, nil
}

func (e *KeywordEmbedder) Model() string {
	return e.ModelName
}

// Calls returns how many times Embed was invoked.
func (e *KeywordEmbedder) Calls() int {
	return int(e.calls.Load())
}
