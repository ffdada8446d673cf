package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/at-ishikawa/abbrgen/internal/inference"
	"resty.dev/v3"
)

const DefaultEndpoint = "http://localhost:11434"

// ErrUnavailable indicates the Ollama server could not be reached.
var ErrUnavailable = errors.New("ollama unavailable")

// Client talks to a local Ollama instance for both chat and embeddings
type Client struct {
	httpClient       *resty.Client
	model            string
	embeddingModel   string
	temperature      float64
	maxRetryAttempts uint
}

func NewClient(endpoint, model, embeddingModel string, temperature float64, retryAttempts uint) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(endpoint, "/"))
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(5 * time.Minute)

	return &Client{
		httpClient:       client,
		model:            model,
		embeddingModel:   embeddingModel,
		temperature:      temperature,
		maxRetryAttempts: retryAttempts,
	}
}

func (client Client) Close() error {
	return client.httpClient.Close()
}

// Model returns the embedding model name
func (client Client) Model() string {
	return client.embeddingModel
}

type ChatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Format   string      `json:"format,omitempty"`
	Options  ChatOptions `json:"options,omitempty"`
}

type ChatOptions struct {
	Temperature float64 `json:"temperature"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason,omitempty"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
}

type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Available checks whether the Ollama server is reachable.
func (client *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	response, err := client.httpClient.R().
		SetContext(ctx).
		Get("/api/tags")
	if err != nil {
		return false
	}
	return !response.IsError()
}

// SuggestName implements the inference.Client interface
func (client *Client) SuggestName(
	ctx context.Context,
	params inference.SuggestNameRequest,
) (inference.SuggestNameResponse, error) {
	var result inference.SuggestNameResponse
	if err := inference.Retry(ctx, client.maxRetryAttempts, "SuggestName", func() error {
		response, err := client.suggestName(ctx, params)
		if err != nil {
			return err
		}
		result = response
		return nil
	}); err != nil {
		return inference.SuggestNameResponse{}, err
	}
	return result, nil
}

func (client *Client) suggestName(
	ctx context.Context,
	params inference.SuggestNameRequest,
) (inference.SuggestNameResponse, error) {
	systemPrompt, userPrompt := inference.BuildSuggestNamePrompt(params)
	requestBody := ChatRequest{
		Model: client.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:  false,
		Format:  "json",
		Options: ChatOptions{Temperature: client.temperature},
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatResponse{}).
		Post("/api/chat")
	if err != nil {
		return inference.SuggestNameResponse{}, wrapTransportError(err)
	}
	if response.IsError() {
		return inference.SuggestNameResponse{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*ChatResponse)
	if responseBody == nil || responseBody.Message.Content == "" {
		return inference.SuggestNameResponse{}, fmt.Errorf("empty response content: %s", response.String())
	}
	slog.Default().Debug("ollama response content",
		"keyword", params.Keyword,
		"model", responseBody.Model,
		"content", responseBody.Message.Content,
	)

	decoded, err := inference.DecodeSuggestion(responseBody.Message.Content)
	if err != nil {
		slog.Default().Error("Failed to parse Ollama response",
			"keyword", params.Keyword,
			"error", err)
		return inference.SuggestNameResponse{}, fmt.Errorf("inference.DecodeSuggestion > %w", err)
	}
	return decoded, nil
}

// Embed implements the inference.Embedder interface
func (client *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var result [][]float32
	if err := inference.Retry(ctx, client.maxRetryAttempts, "Embed", func() error {
		vectors, err := client.embed(ctx, texts)
		if err != nil {
			return err
		}
		result = vectors
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (client *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(EmbedRequest{
			Model: client.embeddingModel,
			Input: texts,
		}).
		SetResult(&EmbedResponse{}).
		Post("/api/embed")
	if err != nil {
		return nil, wrapTransportError(err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*EmbedResponse)
	if responseBody == nil || len(responseBody.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings: %s", len(texts), response.String())
	}
	return responseBody.Embeddings, nil
}

func wrapTransportError(err error) error {
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%w: httpClient.Post > %w", ErrUnavailable, err)
	}
	return fmt.Errorf("httpClient.Post > %w", err)
}
