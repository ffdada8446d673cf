package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexCommand(t *testing.T) {
	cmd := newIndexCommand()

	assert.Equal(t, "index", cmd.Use)
	assert.True(t, cmd.HasSubCommands())
}

func TestIndexCommands(t *testing.T) {
	fake := newFakeOllama(t, "unused")
	cfgPath := setupCommandTest(t, fake.URL)

	output, err := execute(t, "", "--config", cfgPath, "index", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "Entries:         0 (store: 4)")
	assert.Contains(t, output, "Stale:           true")

	output, err = execute(t, "", "--config", cfgPath, "index", "rebuild")
	require.NoError(t, err)
	assert.Contains(t, output, "Indexed 4 records with keyword-test-embedder.")

	output, err = execute(t, "", "--config", cfgPath, "index", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "Embedding model: keyword-test-embedder")
	assert.Contains(t, output, "Entries:         4 (store: 4)")
	assert.Contains(t, output, "Stale:           false")
}

func TestIndexRebuild_OllamaUnavailable(t *testing.T) {
	fake := newFakeOllama(t, "unused")
	endpoint := fake.URL
	fake.Close()
	cfgPath := setupCommandTest(t, endpoint)

	_, err := execute(t, "", "--config", cfgPath, "index", "rebuild")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama unavailable")
}
