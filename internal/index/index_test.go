package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	mock_dictionary "github.com/at-ishikawa/abbrgen/internal/mocks/dictionary"
	mock_inference "github.com/at-ishikawa/abbrgen/internal/mocks/inference"
	"github.com/at-ishikawa/abbrgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestEmbedder() *testutil.KeywordEmbedder {
	return testutil.NewKeywordEmbedder("clos", "estim", "process")
}

func keywords(matches []Match) []string {
	result := make([]string, len(matches))
	for i, match := range matches {
		result[i] = match.Record.Keyword
	}
	return result
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()
	index, err := Open(t.TempDir(), newTestEmbedder())
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, testutil.SeedRecords))

	tests := []struct {
		name  string
		query string
		k     int
		want  []string
	}{
		{
			name:  "closest first",
			query: "Closure",
			k:     1,
			want:  []string{"Closing"},
		},
		{
			name:  "ties keep insertion order",
			query: "Estimator",
			k:     2,
			want:  []string{"Estimation", "Estimated"},
		},
		{
			name:  "k larger than the index",
			query: "Processor",
			k:     10,
			want:  []string{"Central Processing Unit", "Closing", "Estimation", "Estimated"},
		},
		{
			name:  "zero k",
			query: "Processor",
			k:     0,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := index.Search(ctx, tt.query, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keywords(got))
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
			}
		})
	}
}

func TestIndex_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	index, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	assert.True(t, index.Stale())

	got, err := index.Search(ctx, "Closing", 3)
	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, got)

	require.NoError(t, index.Rebuild(ctx, testutil.SeedRecords))
	assert.False(t, index.Stale())

	reopened, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	assert.False(t, reopened.Stale())
	info := reopened.Info()
	assert.Equal(t, testutil.KeywordEmbedderModel, info.EmbeddingModel)
	assert.Equal(t, len(testutil.SeedRecords), info.Entries)
	assert.Equal(t, 4, info.Dimension)
	assert.Equal(t, filepath.Join(dir, "index.json"), info.Path)

	matches, err := reopened.Search(ctx, "Closing", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, dictionary.Record{
		Keyword:      "Closing",
		Abbreviation: "Clsg",
		Description:  "The act of bringing something to an end.",
	}, matches[0].Record)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestIndex_ModelChange(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	index, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, testutil.SeedRecords))

	otherEmbedder := newTestEmbedder()
	otherEmbedder.ModelName = "other-model"
	reopened, err := Open(dir, otherEmbedder)
	require.NoError(t, err)
	assert.True(t, reopened.Stale())

	_, err = reopened.Search(ctx, "Closing", 1)
	assert.ErrorIs(t, err, ErrStale)
	err = reopened.Add(ctx, dictionary.Record{Keyword: "Matching", Abbreviation: "Mtchg"})
	assert.ErrorIs(t, err, ErrStale)

	ctrl := gomock.NewController(t)
	source := mock_dictionary.NewMockRepository(ctrl)
	source.EXPECT().FindAll(gomock.Any()).Return(testutil.SeedRecords[:2], nil).Times(2)

	rebuilt, err := reopened.Sync(ctx, source)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.False(t, reopened.Stale())
	assert.Equal(t, "other-model", reopened.Info().EmbeddingModel)
	assert.Equal(t, 2, reopened.Info().Entries)

	rebuilt, err = reopened.Sync(ctx, source)
	require.NoError(t, err)
	assert.False(t, rebuilt)
}

func TestIndex_Sync_SourceError(t *testing.T) {
	index, err := Open(t.TempDir(), newTestEmbedder())
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	source := mock_dictionary.NewMockRepository(ctrl)
	source.EXPECT().FindAll(gomock.Any()).Return(nil, errors.New("database is locked"))

	_, err = index.Sync(context.Background(), source)
	assert.ErrorContains(t, err, "database is locked")
	assert.True(t, index.Stale())
}

func TestIndex_Add(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	index, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, nil))

	require.NoError(t, index.Add(ctx, dictionary.Record{Keyword: "Closing", Abbreviation: "Cls"}))
	assert.False(t, index.Stale())
	assert.Equal(t, 1, index.Info().Entries)

	require.NoError(t, index.Add(ctx, dictionary.Record{Keyword: "closing", Abbreviation: "Clsg"}))
	require.NoError(t, index.Add(ctx, dictionary.Record{Keyword: "Estimator", Abbreviation: "Estimr"}))
	assert.Equal(t, 2, index.Info().Entries)

	reopened, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	matches, err := reopened.Search(ctx, "Closed", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Clsg", matches[0].Record.Abbreviation)
}

func TestIndex_Invalidate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	index, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, testutil.SeedRecords))

	require.NoError(t, index.Invalidate())
	assert.True(t, index.Stale())
	_, err = os.Stat(filepath.Join(dir, "index.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Invalidating twice is fine
	require.NoError(t, index.Invalidate())
}

func TestIndex_InvalidateThenAdd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	index, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, testutil.SeedRecords))
	require.NoError(t, index.Invalidate())

	_, err = index.Search(ctx, "Processor", 4)
	assert.ErrorIs(t, err, ErrStale)

	gpu := dictionary.Record{Keyword: "Graphics Processing Unit", Abbreviation: "GPU"}
	err = index.Add(ctx, gpu)
	assert.ErrorIs(t, err, ErrStale)
	_, err = os.Stat(filepath.Join(dir, "index.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	store := append(append([]dictionary.Record(nil), testutil.SeedRecords...), gpu)
	ctrl := gomock.NewController(t)
	source := mock_dictionary.NewMockRepository(ctrl)
	source.EXPECT().FindAll(gomock.Any()).Return(store, nil)

	reopened, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	rebuilt, err := reopened.Sync(ctx, source)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.False(t, reopened.Stale())
	assert.Equal(t, len(store), reopened.Info().Entries)
}

func TestIndex_Sync_RecordCountChanged(t *testing.T) {
	ctx := context.Background()
	index, err := Open(t.TempDir(), newTestEmbedder())
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, testutil.SeedRecords[:2]))
	require.False(t, index.Stale())

	ctrl := gomock.NewController(t)
	source := mock_dictionary.NewMockRepository(ctrl)
	source.EXPECT().FindAll(gomock.Any()).Return(testutil.SeedRecords, nil).Times(2)

	rebuilt, err := index.Sync(ctx, source)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, len(testutil.SeedRecords), index.Info().Entries)

	rebuilt, err = index.Sync(ctx, source)
	require.NoError(t, err)
	assert.False(t, rebuilt)
}

func TestIndex_Rebuild_Batches(t *testing.T) {
	records := make([]dictionary.Record, 70)
	for i := range records {
		records[i] = dictionary.Record{
			Keyword:      "Keyword" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Abbreviation: "Kw" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
		}
	}

	embedder := newTestEmbedder()
	index, err := Open(t.TempDir(), embedder)
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(context.Background(), records))

	assert.Equal(t, 3, embedder.Calls())
	assert.Equal(t, 70, index.Info().Entries)
}

func TestIndex_EmbedderErrors(t *testing.T) {
	tests := []struct {
		name            string
		setup           func(embedder *mock_inference.MockEmbedder)
		run             func(ctx context.Context, index *Index) error
		wantErrorString string
	}{
		{
			name: "rebuild propagates embedding errors",
			setup: func(embedder *mock_inference.MockEmbedder) {
				embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
			},
			run: func(ctx context.Context, index *Index) error {
				return index.Rebuild(ctx, testutil.SeedRecords)
			},
			wantErrorString: "connection refused",
		},
		{
			name: "rebuild rejects short batches",
			setup: func(embedder *mock_inference.MockEmbedder) {
				embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
			},
			run: func(ctx context.Context, index *Index) error {
				return index.Rebuild(ctx, testutil.SeedRecords)
			},
			wantErrorString: "returned 1 vectors for 4 texts",
		},
		{
			name: "rebuild rejects mixed dimensions",
			setup: func(embedder *mock_inference.MockEmbedder) {
				embedder.EXPECT().Model().Return("mock-model").AnyTimes()
				embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}, {1}}, nil)
			},
			run: func(ctx context.Context, index *Index) error {
				return index.Rebuild(ctx, testutil.SeedRecords[:2])
			},
			wantErrorString: "inconsistent embedding dimension",
		},
		{
			name: "search rejects query dimension mismatch",
			setup: func(embedder *mock_inference.MockEmbedder) {
				embedder.EXPECT().Model().Return("mock-model").AnyTimes()
				gomock.InOrder(
					embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil),
					embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil),
				)
			},
			run: func(ctx context.Context, index *Index) error {
				if err := index.Rebuild(ctx, testutil.SeedRecords[:1]); err != nil {
					return err
				}
				_, err := index.Search(ctx, "Closing", 1)
				return err
			},
			wantErrorString: "query dimension 3 does not match index dimension 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			embedder := mock_inference.NewMockEmbedder(ctrl)
			tt.setup(embedder)

			index, err := Open(t.TempDir(), embedder)
			require.NoError(t, err)

			err = tt.run(context.Background(), index)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrorString)
		})
	}
}

func TestOpen_UnreadableIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0644))

	index, err := Open(dir, newTestEmbedder())
	require.NoError(t, err)
	assert.True(t, index.Stale())
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "different lengths", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
