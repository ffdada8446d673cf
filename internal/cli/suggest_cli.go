package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/at-ishikawa/abbrgen/internal/dictionary"
	"github.com/at-ishikawa/abbrgen/internal/suggestion"
)

const (
	keywordPrompt = "Enter a new keyword (type 'exit' to quit): "
	confirmPrompt = "Do you want to add this word to the database? (yes/no): "
	separator     = "=================================================="
)

type SuggestOptions struct {
	// AutoSave saves every suggestion without asking
	AutoSave bool
	// UnavailableHint is printed when the model or store cannot be reached
	UnavailableHint string
}

// SuggestCLI asks for keywords and offers to save the generated abbreviations
type SuggestCLI struct {
	*InteractiveCLI
	suggester Suggester
	opts      SuggestOptions
}

func NewSuggestCLI(suggester Suggester, opts SuggestOptions, stdin io.Reader, stdout io.Writer) *SuggestCLI {
	return &SuggestCLI{
		InteractiveCLI: newInteractiveCLI(stdin, stdout),
		suggester:      suggester,
		opts:           opts,
	}
}

func (r *SuggestCLI) Session(ctx context.Context) error {
	_, _ = fmt.Fprint(r.stdoutWriter, "\n"+keywordPrompt)
	keyword, err := r.readLine()
	if errors.Is(err, io.EOF) {
		_, _ = fmt.Fprintln(r.stdoutWriter)
		return errEnd
	}
	if err != nil {
		return fmt.Errorf("error reading keyword input: %w", err)
	}

	if keyword == "" {
		return nil
	}
	if strings.EqualFold(keyword, "exit") {
		_, _ = fmt.Fprintln(r.stdoutWriter, "Goodbye!")
		return errEnd
	}

	if err := r.suggest(ctx, keyword); err != nil && !isReported(err) {
		return err
	}
	return nil
}

// RunOnce handles a single keyword and returns any failure, including ones already reported to the user.
func (r *SuggestCLI) RunOnce(ctx context.Context, keyword string) error {
	return r.suggest(ctx, keyword)
}

type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func isReported(err error) bool {
	var reported reportedError
	return errors.As(err, &reported)
}

func (r *SuggestCLI) fail(format string, err error, args ...any) error {
	_, _ = fmt.Fprint(r.stdoutWriter, "✗ ")
	_, _ = r.red.Fprintf(r.stdoutWriter, format, args...)
	_, _ = fmt.Fprintln(r.stdoutWriter)
	return reportedError{err: err}
}

func (r *SuggestCLI) suggest(ctx context.Context, keyword string) error {
	_, _ = fmt.Fprintf(r.stdoutWriter, "Generating an abbreviation for %q...\n", keyword)
	result, err := r.suggester.Suggest(ctx, keyword)
	switch {
	case errors.Is(err, suggestion.ErrEmptyKeyword):
		return r.fail("The keyword is empty.", err)
	case errors.Is(err, suggestion.ErrAlreadyExists):
		return r.fail("The keyword %q already exists in the database.", err, keyword)
	case errors.Is(err, suggestion.ErrRefinementExhausted):
		return r.fail("Could not find a unique abbreviation. %v", err, err)
	case errors.Is(err, suggestion.ErrServiceUnavailable):
		err = r.fail("%v", err, err)
		if r.opts.UnavailableHint != "" {
			_, _ = fmt.Fprintf(r.stdoutWriter, "  %s\n", r.opts.UnavailableHint)
		}
		return err
	case err != nil:
		return fmt.Errorf("suggester.Suggest(%s) > %w", keyword, err)
	}

	r.printSuggestion(result)

	save := r.opts.AutoSave
	if !save {
		_, _ = fmt.Fprint(r.stdoutWriter, "\n"+confirmPrompt)
		answer, err := r.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("error reading confirmation input: %w", err)
		}
		answer = strings.ToLower(answer)
		save = answer == "yes" || answer == "y"
	}
	if !save {
		_, _ = fmt.Fprintln(r.stdoutWriter, "Not saved.")
		return nil
	}

	if err := r.suggester.Save(ctx, result); err != nil {
		switch {
		case errors.Is(err, suggestion.ErrAlreadyExists),
			errors.Is(err, dictionary.ErrAbbreviationExists),
			errors.Is(err, suggestion.ErrServiceUnavailable):
			return r.fail("Could not save %q. %v", err, result.Keyword, err)
		}
		return fmt.Errorf("suggester.Save(%s) > %w", result.Keyword, err)
	}
	_, _ = fmt.Fprint(r.stdoutWriter, "✓ ")
	_, _ = r.green.Fprintf(r.stdoutWriter, "Saved %q as %q.", result.Keyword, result.Abbreviation)
	_, _ = fmt.Fprintln(r.stdoutWriter)
	return nil
}

func (r *SuggestCLI) printSuggestion(result *suggestion.Suggestion) {
	w := r.stdoutWriter
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, separator)
	_, _ = r.bold.Fprintln(w, "FINAL SUGGESTION")
	_, _ = fmt.Fprintln(w, separator)
	_, _ = fmt.Fprintf(w, "Keyword:      %s\n", result.Keyword)
	_, _ = fmt.Fprint(w, "Abbreviation: ")
	_, _ = r.bold.Fprintln(w, result.Abbreviation)
	_, _ = fmt.Fprintf(w, "Description:  %s\n", result.Description)
	if result.Explanation != "" {
		_, _ = fmt.Fprintf(w, "Explanation:  %s\n", result.Explanation)
	}
	if len(result.Examples) > 0 {
		similar := make([]string, len(result.Examples))
		for i, example := range result.Examples {
			similar[i] = fmt.Sprintf("%s (%s)", example.Keyword, example.Abbreviation)
		}
		_, _ = r.italic.Fprintf(w, "Similar:      %s\n", strings.Join(similar, ", "))
	}
	if result.Attempts > 1 {
		_, _ = fmt.Fprintf(w, "Attempts:     %d\n", result.Attempts)
	}
	_, _ = fmt.Fprintln(w, separator)
}
