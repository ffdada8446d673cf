package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/at-ishikawa/abbrgen/internal/inference"
	"github.com/gofrs/flock"
)

const (
	fileName  = "index.json"
	lockName  = "index.lock"
	batchSize = 32
)

// ErrStale is returned when the index was built with a different embedding model.
var ErrStale = errors.New("similarity index is stale")

// Source provides the records an index is built from
type Source interface {
	FindAll(ctx context.Context) ([]dictionary.Record, error)
}

// Match is a record ranked by similarity to a query
type Match struct {
	Record dictionary.Record
	Score  float64
}

type entry struct {
	Keyword      string    `json:"keyword"`
	Abbreviation string    `json:"abbreviation"`
	Description  string    `json:"description"`
	Vector       []float32 `json:"vector"`
}

func (e entry) record() dictionary.Record {
	return dictionary.Record{
		Keyword:      e.Keyword,
		Abbreviation: e.Abbreviation,
		Description:  e.Description,
	}
}

type indexFile struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	UpdatedAt      time.Time `json:"updated_at"`
	Entries        []entry   `json:"entries"`
}

// Info summarizes the persisted index
type Info struct {
	Path           string    `json:"path" yaml:"path"`
	EmbeddingModel string    `json:"embedding_model" yaml:"embedding_model"`
	Dimension      int       `json:"dimension" yaml:"dimension"`
	Entries        int       `json:"entries" yaml:"entries"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
	Stale          bool      `json:"stale" yaml:"stale"`
}

// Index is a file-backed vector index over dictionary records.
// The file is a derived projection of the store and can be rebuilt at any time.
type Index struct {
	dir      string
	embedder inference.Embedder
	fileLock *flock.Flock

	mu   sync.RWMutex
	data *indexFile
}

// Open loads the index persisted under dir, if any.
func Open(dir string, embedder inference.Embedder) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
	}

	index := &Index{
		dir:      dir,
		embedder: embedder,
		fileLock: flock.New(filepath.Join(dir, lockName)),
	}
	if err := index.load(); err != nil {
		return nil, err
	}
	return index, nil
}

func (index *Index) path() string {
	return filepath.Join(index.dir, fileName)
}

func (index *Index) load() error {
	if err := index.fileLock.RLock(); err != nil {
		return fmt.Errorf("fileLock.RLock > %w", err)
	}
	defer func() {
		_ = index.fileLock.Unlock()
	}()

	content, err := os.ReadFile(index.path())
	if errors.Is(err, os.ErrNotExist) {
		index.data = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("os.ReadFile(%s) > %w", index.path(), err)
	}

	var data indexFile
	if err := json.Unmarshal(content, &data); err != nil {
		slog.Default().Warn("Ignoring unreadable similarity index",
			"path", index.path(),
			"error", err)
		index.data = nil
		return nil
	}
	index.data = &data
	return nil
}

func (index *Index) save(data *indexFile) error {
	if err := index.fileLock.Lock(); err != nil {
		return fmt.Errorf("fileLock.Lock > %w", err)
	}
	defer func() {
		_ = index.fileLock.Unlock()
	}()

	tmp, err := os.CreateTemp(index.dir, fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp > %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := json.NewEncoder(tmp).Encode(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json.Encode > %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close > %w", err)
	}
	if err := os.Rename(tmpPath, index.path()); err != nil {
		return fmt.Errorf("os.Rename(%s) > %w", index.path(), err)
	}
	index.data = data
	return nil
}

// Stale reports whether the index must be rebuilt before use.
func (index *Index) Stale() bool {
	index.mu.RLock()
	defer index.mu.RUnlock()
	return index.stale()
}

func (index *Index) stale() bool {
	return index.data == nil || index.data.EmbeddingModel != index.embedder.Model()
}

func (index *Index) Info() Info {
	index.mu.RLock()
	defer index.mu.RUnlock()

	info := Info{
		Path:  index.path(),
		Stale: index.stale(),
	}
	if index.data != nil {
		info.EmbeddingModel = index.data.EmbeddingModel
		info.Dimension = index.data.Dimension
		info.Entries = len(index.data.Entries)
		info.UpdatedAt = index.data.UpdatedAt
	}
	return info
}

func (index *Index) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := index.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedder.Embed > %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Rebuild embeds every record and replaces the persisted index.
func (index *Index) Rebuild(ctx context.Context, records []dictionary.Record) error {
	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.EmbedText()
	}
	vectors, err := index.embed(ctx, texts)
	if err != nil {
		return err
	}

	data := &indexFile{
		EmbeddingModel: index.embedder.Model(),
		UpdatedAt:      time.Now().UTC(),
		Entries:        make([]entry, len(records)),
	}
	for i, record := range records {
		if data.Dimension == 0 {
			data.Dimension = len(vectors[i])
		}
		if len(vectors[i]) != data.Dimension {
			return fmt.Errorf("inconsistent embedding dimension for %s: %d != %d", record.Keyword, len(vectors[i]), data.Dimension)
		}
		data.Entries[i] = entry{
			Keyword:      record.Keyword,
			Abbreviation: record.Abbreviation,
			Description:  record.Description,
			Vector:       vectors[i],
		}
	}

	index.mu.Lock()
	defer index.mu.Unlock()
	if err := index.save(data); err != nil {
		return err
	}
	slog.Default().Info("Rebuilt similarity index",
		"entries", len(data.Entries),
		"embeddingModel", data.EmbeddingModel)
	return nil
}

// Sync rebuilds the index from source when it is stale or holds a different number of records
// than source, and reports whether it did.
func (index *Index) Sync(ctx context.Context, source Source) (bool, error) {
	records, err := source.FindAll(ctx)
	if err != nil {
		return false, fmt.Errorf("source.FindAll > %w", err)
	}

	index.mu.RLock()
	current := !index.stale() && len(index.data.Entries) == len(records)
	index.mu.RUnlock()
	if current {
		return false, nil
	}

	if err := index.Rebuild(ctx, records); err != nil {
		return false, err
	}
	return true, nil
}

// Add embeds record and stores it, replacing any entry with the same keyword.
func (index *Index) Add(ctx context.Context, record dictionary.Record) error {
	vectors, err := index.embed(ctx, []string{record.EmbedText()})
	if err != nil {
		return err
	}
	vector := vectors[0]

	index.mu.Lock()
	defer index.mu.Unlock()

	var data indexFile
	switch {
	case index.data == nil:
		// A partial file would look current to Sync and never be rebuilt
		return fmt.Errorf("%w: %s is missing", ErrStale, index.path())
	case index.stale():
		return fmt.Errorf("%w: built with %s", ErrStale, index.data.EmbeddingModel)
	default:
		data = *index.data
		data.Entries = append([]entry(nil), index.data.Entries...)
	}
	if data.Dimension == 0 {
		data.Dimension = len(vector)
	}
	if len(vector) != data.Dimension {
		return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(vector), data.Dimension)
	}

	added := entry{
		Keyword:      record.Keyword,
		Abbreviation: record.Abbreviation,
		Description:  record.Description,
		Vector:       vector,
	}
	replaced := false
	for i, e := range data.Entries {
		if strings.EqualFold(e.Keyword, record.Keyword) {
			data.Entries[i] = added
			replaced = true
			break
		}
	}
	if !replaced {
		data.Entries = append(data.Entries, added)
	}
	data.UpdatedAt = time.Now().UTC()
	return index.save(&data)
}

// Search returns up to k records most similar to query, best first.
func (index *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	index.mu.RLock()
	data := index.data
	stale := index.stale()
	index.mu.RUnlock()

	if data == nil {
		return nil, fmt.Errorf("%w: %s is missing", ErrStale, index.path())
	}
	if k <= 0 || len(data.Entries) == 0 {
		return nil, nil
	}
	if stale {
		return nil, fmt.Errorf("%w: built with %s", ErrStale, data.EmbeddingModel)
	}

	vectors, err := index.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVector := vectors[0]
	if len(queryVector) != data.Dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(queryVector), data.Dimension)
	}

	matches := make([]Match, len(data.Entries))
	for i, e := range data.Entries {
		matches[i] = Match{
			Record: e.record(),
			Score:  CosineSimilarity(queryVector, e.Vector),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Invalidate deletes the persisted index so that the next Sync rebuilds it.
func (index *Index) Invalidate() error {
	index.mu.Lock()
	defer index.mu.Unlock()

	if err := index.fileLock.Lock(); err != nil {
		return fmt.Errorf("fileLock.Lock > %w", err)
	}
	defer func() {
		_ = index.fileLock.Unlock()
	}()

	if err := os.Remove(index.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove(%s) > %w", index.path(), err)
	}
	index.data = nil
	return nil
}
