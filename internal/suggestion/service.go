// Package suggestion generates unique abbreviations for new keywords and saves accepted ones.
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/at-ishikawa/abbrgen/internal/index"
	"github.com/at-ishikawa/abbrgen/internal/inference"
)

//go:generate mockgen -source=service.go -destination=../mocks/suggestion/mock_searcher.go -package=mock_suggestion

const (
	DefaultSimilarCount = 4
	DefaultMaxAttempts  = 3
)

var (
	ErrEmptyKeyword        = errors.New("keyword is empty")
	ErrAlreadyExists       = errors.New("keyword already exists")
	ErrRefinementExhausted = errors.New("no unique abbreviation found")
	ErrServiceUnavailable  = errors.New("service unavailable")
)

// Searcher finds existing records similar to a keyword
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Match, error)
	Add(ctx context.Context, record dictionary.Record) error
	Invalidate() error
	Sync(ctx context.Context, source index.Source) (bool, error)
}

type Options struct {
	// SimilarCount is how many similar records are shown to the model
	SimilarCount int
	// MaxAttempts bounds the generation calls for one keyword
	MaxAttempts int
}

// Suggestion is a generated abbreviation that is unique at the time it was generated.
type Suggestion struct {
	Keyword      string
	Abbreviation string
	Description  string
	Explanation  string
	// Attempts is the number of generation calls it took
	Attempts int
	Examples []dictionary.Record
}

type Service struct {
	repo     dictionary.Repository
	searcher Searcher
	client   inference.Client
	opts     Options
}

func NewService(repo dictionary.Repository, searcher Searcher, client inference.Client, opts Options) *Service {
	if opts.SimilarCount <= 0 {
		opts.SimilarCount = DefaultSimilarCount
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Service{
		repo:     repo,
		searcher: searcher,
		client:   client,
		opts:     opts,
	}
}

func unavailable(component string, err error) error {
	return fmt.Errorf("%w: %s > %w", ErrServiceUnavailable, component, err)
}

// Suggest proposes an abbreviation for keyword that no stored record uses.
// An abbreviation that collides is fed back to the model so that the next attempt avoids it.
func (s *Service) Suggest(ctx context.Context, keyword string) (*Suggestion, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	existing, err := s.repo.FindByKeyword(ctx, keyword)
	if err != nil {
		return nil, unavailable("repo.FindByKeyword", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrAlreadyExists, existing.Keyword, existing.Abbreviation)
	}

	matches, err := s.search(ctx, keyword)
	if err != nil {
		return nil, unavailable("searcher.Search", err)
	}
	examples := make([]dictionary.Record, len(matches))
	promptExamples := make([]inference.Example, len(matches))
	for i, match := range matches {
		examples[i] = match.Record
		promptExamples[i] = inference.Example{
			Keyword:      match.Record.Keyword,
			Abbreviation: match.Record.Abbreviation,
			Description:  match.Record.Description,
		}
	}

	var rejected []string
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		response, err := s.client.SuggestName(ctx, inference.SuggestNameRequest{
			Keyword:  keyword,
			Examples: promptExamples,
			Avoid:    slices.Clone(rejected),
		})
		if errors.Is(err, inference.ErrInvalidOutput) {
			slog.Default().Warn("Discarding unusable model output",
				"keyword", keyword,
				"attempt", attempt,
				"error", err)
			continue
		}
		if err != nil {
			return nil, unavailable("client.SuggestName", err)
		}

		abbreviation := strings.TrimSpace(response.Abbreviation)
		if abbreviation == "" {
			continue
		}
		if containsFold(rejected, abbreviation) {
			slog.Default().Info("Model repeated a rejected abbreviation",
				"keyword", keyword,
				"abbreviation", abbreviation,
				"attempt", attempt)
			continue
		}

		taken, err := s.repo.FindByAbbreviation(ctx, abbreviation)
		if err != nil {
			return nil, unavailable("repo.FindByAbbreviation", err)
		}
		if taken == nil {
			return &Suggestion{
				Keyword:      keyword,
				Abbreviation: abbreviation,
				Description:  strings.TrimSpace(response.Description),
				Explanation:  strings.TrimSpace(response.Explanation),
				Attempts:     attempt,
				Examples:     examples,
			}, nil
		}

		slog.Default().Info("Abbreviation is already taken",
			"keyword", keyword,
			"abbreviation", abbreviation,
			"takenBy", taken.Keyword,
			"attempt", attempt)
		rejected = append(rejected, abbreviation)
	}

	return nil, fmt.Errorf("%w: %s after %d attempts (rejected: %s)",
		ErrRefinementExhausted, keyword, s.opts.MaxAttempts, strings.Join(rejected, ", "))
}

// search rebuilds a stale index from the store once before giving up.
func (s *Service) search(ctx context.Context, keyword string) ([]index.Match, error) {
	matches, err := s.searcher.Search(ctx, keyword, s.opts.SimilarCount)
	if !errors.Is(err, index.ErrStale) {
		return matches, err
	}

	slog.Default().Info("Rebuilding the similarity index from the store",
		"reason", err)
	if _, err := s.searcher.Sync(ctx, s.repo); err != nil {
		return nil, fmt.Errorf("searcher.Sync > %w", err)
	}
	return s.searcher.Search(ctx, keyword, s.opts.SimilarCount)
}

func containsFold(values []string, target string) bool {
	return slices.ContainsFunc(values, func(value string) bool {
		return strings.EqualFold(value, target)
	})
}

// Save persists an accepted suggestion and adds it to the similarity index.
// The store is authoritative: when indexing fails the index is invalidated and rebuilt on the next sync.
func (s *Service) Save(ctx context.Context, suggestion *Suggestion) error {
	if suggestion == nil || strings.TrimSpace(suggestion.Keyword) == "" {
		return ErrEmptyKeyword
	}
	record := &dictionary.Record{
		Keyword:      strings.TrimSpace(suggestion.Keyword),
		Abbreviation: strings.TrimSpace(suggestion.Abbreviation),
		Description:  strings.TrimSpace(suggestion.Description),
	}
	if record.Abbreviation == "" {
		return fmt.Errorf("abbreviation for %s is empty", record.Keyword)
	}

	existing, err := s.repo.FindByKeyword(ctx, record.Keyword)
	if err != nil {
		return unavailable("repo.FindByKeyword", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s (%s)", ErrAlreadyExists, existing.Keyword, existing.Abbreviation)
	}
	taken, err := s.repo.FindByAbbreviation(ctx, record.Abbreviation)
	if err != nil {
		return unavailable("repo.FindByAbbreviation", err)
	}
	if taken != nil {
		return fmt.Errorf("%w: %s is used by %s", dictionary.ErrAbbreviationExists, taken.Abbreviation, taken.Keyword)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		switch {
		case errors.Is(err, dictionary.ErrKeywordExists):
			return fmt.Errorf("%w: %s", ErrAlreadyExists, record.Keyword)
		case errors.Is(err, dictionary.ErrAbbreviationExists):
			return err
		}
		return unavailable("repo.Create", err)
	}

	if err := s.searcher.Add(ctx, *record); err != nil {
		slog.Default().Warn("Saved record could not be indexed; invalidating the similarity index",
			"keyword", record.Keyword,
			"error", err)
		if err := s.searcher.Invalidate(); err != nil {
			slog.Default().Warn("Failed to invalidate the similarity index",
				"error", err)
		}
	}
	return nil
}
