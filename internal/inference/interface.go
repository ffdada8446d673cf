package inference

import (
	"context"
	"errors"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client interface defines the methods for text generation
type Client interface {
	SuggestName(ctx context.Context, params SuggestNameRequest) (SuggestNameResponse, error)
}

// Embedder turns texts into vectors for similarity search
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model is the embedding model identifier; vectors from different models are not comparable.
	Model() string
}

// Example is an existing dictionary entry shown to the model as a style reference
type Example struct {
	Keyword      string `json:"keyword"`
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description"`
}

// SuggestNameRequest holds the keyword to name and the context for generation
type SuggestNameRequest struct {
	Keyword  string
	Examples []Example
	// Avoid lists abbreviations that are already taken
	Avoid []string
}

type SuggestNameResponse struct {
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description"`
	Explanation  string `json:"explanation"`
}

const (
	DefaultMaxRetryAttempts = 0
)

// ErrInvalidOutput indicates the model reply could not be decoded into a suggestion.
var ErrInvalidOutput = errors.New("invalid model output")
