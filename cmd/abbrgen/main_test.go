package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/at-ishikawa/abbrgen/internal/inference/ollama"
	"github.com/at-ishikawa/abbrgen/internal/testutil"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		debugMode bool
		wantLevel slog.Level
	}{
		{
			name:      "debug mode enabled",
			debugMode: true,
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "debug mode disabled",
			debugMode: false,
			wantLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogger(tt.debugMode)
			logger := slog.Default()
			assert.NotNil(t, logger)
			assert.Equal(t, tt.wantLevel <= slog.LevelDebug, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	assert.Equal(t, "abbrgen", cmd.Use)
	for _, name := range []string{"config", "debug", "generation-provider", "embedding-provider"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"suggest", "dictionary", "index", "migrate"})
}

// fakeOllama serves the Ollama endpoints the commands use.
// Chat replies walk through abbreviations and then repeat the last one.
type fakeOllama struct {
	*httptest.Server

	mu            sync.Mutex
	abbreviations []string
	chatCalls     int
}

func newFakeOllama(t *testing.T, abbreviations ...string) *fakeOllama {
	t.Helper()

	fake := &fakeOllama{abbreviations: abbreviations}
	embedder := testutil.NewKeywordEmbedder("process", "graphics", "memory")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		var req ollama.EmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vectors, _ := embedder.Embed(r.Context(), req.Input)
		_ = json.NewEncoder(w).Encode(ollama.EmbedResponse{Model: req.Model, Embeddings: vectors})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		var req ollama.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		abbreviation := fake.next()
		_ = json.NewEncoder(w).Encode(ollama.ChatResponse{
			Model: req.Model,
			Message: ollama.Message{
				Role:    "assistant",
				Content: fmt.Sprintf(`{"abbreviation": %q, "description": "Generated for the test."}`, abbreviation),
			},
			Done: true,
		})
	})

	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Close)
	return fake
}

func (fake *fakeOllama) next() string {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	i := min(fake.chatCalls, len(fake.abbreviations)-1)
	fake.chatCalls++
	return fake.abbreviations[i]
}

func (fake *fakeOllama) ChatCalls() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.chatCalls
}

// setupCommandTest writes a config and the shared seed file under a temporary directory.
func setupCommandTest(t *testing.T, endpoint string) string {
	t.Helper()

	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	tmpDir := t.TempDir()
	testutil.WriteSeedFile(t, filepath.Join(tmpDir, "Dictionary.json"), testutil.SeedRecords)
	return testutil.SetupTestConfig(t, tmpDir, endpoint)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
