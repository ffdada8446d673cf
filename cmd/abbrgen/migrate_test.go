package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/at-ishikawa/abbrgen/internal/testutil"
)

func TestNewMigrateCommand(t *testing.T) {
	cmd := newMigrateCommand()

	assert.Equal(t, "migrate", cmd.Use)
	assert.Equal(t, "Migration commands", cmd.Short)
	assert.True(t, cmd.HasSubCommands())
}

func TestMigrateSeedCommand(t *testing.T) {
	cfgPath := setupCommandTest(t, "")
	extraSeed := filepath.Join(t.TempDir(), "extra.json")
	testutil.WriteSeedFile(t, extraSeed, []dictionary.Record{
		{Keyword: "Closing", Abbreviation: "Cls"},
		{Keyword: "Graphics Processing Unit", Abbreviation: "GPU"},
	})

	tests := []struct {
		name       string
		args       []string
		wantOutput []string
	}{
		{
			name:       "dry run writes nothing",
			args:       []string{"migrate", "seed", "--dry-run"},
			wantOutput: []string{"[NEW]", "[DRY RUN] Imported 4 records, skipped 0."},
		},
		{
			name:       "first import",
			args:       []string{"migrate", "seed"},
			wantOutput: []string{"Imported 4 records, skipped 0."},
		},
		{
			name:       "populated store is skipped",
			args:       []string{"migrate", "seed"},
			wantOutput: []string{"store already has 4 records", "Imported 0 records, skipped 4."},
		},
		{
			name:       "force imports only new keywords",
			args:       []string{"migrate", "seed", "--force", "--file", extraSeed},
			wantOutput: []string{`[SKIP]  "Closing" (keyword exists)`, "Imported 1 records, skipped 1."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, "", append([]string{"--config", cfgPath}, tt.args...)...)
			require.NoError(t, err)
			for _, want := range tt.wantOutput {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestMigrateSeedCommand_MissingFile(t *testing.T) {
	cfgPath := setupCommandTest(t, "")

	_, err := execute(t, "", "--config", cfgPath, "migrate", "seed", "--file", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dictionary.ReadSeedFile()")
}

func TestMigrateSeedCommand_ForceInvalidatesIndex(t *testing.T) {
	fake := newFakeOllama(t, "unused")
	cfgPath := setupCommandTest(t, fake.URL)
	extraSeed := filepath.Join(t.TempDir(), "extra.json")
	testutil.WriteSeedFile(t, extraSeed, []dictionary.Record{
		{Keyword: "Graphics Processing Unit", Abbreviation: "GPU"},
	})

	_, err := execute(t, "", "--config", cfgPath, "index", "rebuild")
	require.NoError(t, err)

	output, err := execute(t, "", "--config", cfgPath, "migrate", "seed", "--force", "--file", extraSeed)
	require.NoError(t, err)
	assert.Contains(t, output, "Imported 1 records, skipped 0.")
	assert.Contains(t, output, "Similarity index invalidated")

	output, err = execute(t, "", "--config", cfgPath, "index", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "Entries:         0 (store: 5)")
	assert.Contains(t, output, "Stale:           true")

	_, err = execute(t, "", "--config", cfgPath, "dictionary", "add", "Random Access Memory", "RAM")
	require.NoError(t, err)

	output, err = execute(t, "", "--config", cfgPath, "index", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "Entries:         6 (store: 6)")
	assert.Contains(t, output, "Stale:           false")
	assert.Equal(t, 0, fake.ChatCalls())
}
