// Package datasync imports seed dictionaries into the record store.
package datasync

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
)

// ImportResult tracks counts for an import.
type ImportResult struct {
	New     int
	Skipped int
	// AlreadySeeded is set when the import was skipped because the store had records.
	AlreadySeeded bool
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool
	// Force imports into a store that already has records; duplicates are still skipped.
	Force bool
}

// Importer writes seed records into the store.
type Importer struct {
	repo   dictionary.Repository
	writer io.Writer
}

// NewImporter creates a new Importer.
func NewImporter(repo dictionary.Repository, writer io.Writer) *Importer {
	return &Importer{
		repo:   repo,
		writer: writer,
	}
}

// ImportDictionary inserts records whose keyword and abbreviation are not taken yet.
// Without Force, a store that already has records is left untouched.
func (imp *Importer) ImportDictionary(ctx context.Context, records []dictionary.Record, opts ImportOptions) (*ImportResult, error) {
	count, err := imp.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count existing records: %w", err)
	}
	if count > 0 && !opts.Force {
		_, _ = fmt.Fprintf(imp.writer, "  [SKIP]  store already has %d records\n", count)
		return &ImportResult{Skipped: len(records), AlreadySeeded: true}, nil
	}

	existing, err := imp.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing records: %w", err)
	}
	keywords := make(map[string]bool, len(existing)+len(records))
	abbreviations := make(map[string]bool, len(existing)+len(records))
	for _, record := range existing {
		keywords[strings.ToLower(record.Keyword)] = true
		abbreviations[strings.ToLower(record.Abbreviation)] = true
	}

	result := &ImportResult{}
	var newRecords []*dictionary.Record
	for i := range records {
		src := records[i]
		keyword := strings.ToLower(src.Keyword)
		abbreviation := strings.ToLower(src.Abbreviation)
		switch {
		case keywords[keyword]:
			result.Skipped++
			_, _ = fmt.Fprintf(imp.writer, "  [SKIP]  %q (keyword exists)\n", src.Keyword)
		case abbreviations[abbreviation]:
			result.Skipped++
			_, _ = fmt.Fprintf(imp.writer, "  [SKIP]  %q (abbreviation %q exists)\n", src.Keyword, src.Abbreviation)
		default:
			result.New++
			keywords[keyword] = true
			abbreviations[abbreviation] = true
			newRecords = append(newRecords, &src)
			_, _ = fmt.Fprintf(imp.writer, "  [NEW]  %q (%s)\n", src.Keyword, src.Abbreviation)
		}
	}

	if !opts.DryRun && len(newRecords) > 0 {
		if err := imp.repo.BatchCreate(ctx, newRecords); err != nil {
			return nil, fmt.Errorf("batch create records: %w", err)
		}
	}
	return result, nil
}
