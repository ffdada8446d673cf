package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeedFile(t *testing.T) {
	tests := []struct {
		name          string
		fileName      string
		content       string
		want          []Record
		wantErrString string
	}{
		{
			name:     "list of records",
			fileName: "Dictionary.json",
			content: `[
  {"keyword": "Closing", "abbreviation": "Clsg", "description": "The act of closing"},
  {"keyword": "Estimated", "abbreviation": "Estimd", "description": null}
]`,
			want: []Record{
				{Keyword: "Closing", Abbreviation: "Clsg", Description: "The act of closing"},
				{Keyword: "Estimated", Abbreviation: "Estimd"},
			},
		},
		{
			name:     "keyword to description object",
			fileName: "Dictionary.json",
			content:  `{"CPU": "Central Processing Unit"}`,
			want: []Record{
				{Keyword: "CPU", Abbreviation: "CPU", Description: "Central Processing Unit"},
			},
		},
		{
			name:     "yaml list",
			fileName: "dictionary.yml",
			content: `- keyword: Estimation
  abbreviation: Estimn
  description: " An approximate calculation "
`,
			want: []Record{
				{Keyword: "Estimation", Abbreviation: "Estimn", Description: "An approximate calculation"},
			},
		},
		{
			name:          "invalid json",
			fileName:      "Dictionary.json",
			content:       `[{"keyword": "Closing",`,
			wantErrString: "invalid JSON",
		},
		{
			name:          "scalar json",
			fileName:      "Dictionary.json",
			content:       `"Closing"`,
			wantErrString: "expected a JSON array or object",
		},
		{
			name:          "missing abbreviation",
			fileName:      "Dictionary.json",
			content:       `[{"keyword": "Closing"}]`,
			wantErrString: "seed entry 0 (Closing)",
		},
		{
			name:          "array of strings",
			fileName:      "Dictionary.json",
			content:       `["Closing"]`,
			wantErrString: "entry 0 is not an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.fileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			got, err := ReadSeedFile(path)
			if tt.wantErrString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadSeedFile_Missing(t *testing.T) {
	_, err := ReadSeedFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecord_EmbedText(t *testing.T) {
	record := Record{Keyword: "Closing", Abbreviation: "Clsg", Description: "The act of closing"}
	assert.Equal(t, "Keyword: Closing | Abbreviation: Clsg | Description: The act of closing", record.EmbedText())
}
