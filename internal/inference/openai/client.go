package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/at-ishikawa/abbrgen/internal/inference"
	"resty.dev/v3"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	httpClient       *resty.Client
	model            string
	embeddingModel   string
	temperature      float32
	maxRetryAttempts uint
}

// NewClient creates a client for the chat completions and embeddings APIs.
// Either model may be empty when the client is only used for the other endpoint.
func NewClient(baseURL, apiKey, model, embeddingModel string, temperature float32, retryAttempts uint) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

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

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  Usage           `json:"usage"`
}

type EmbeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
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
	requestBody := ChatCompletionRequest{
		Model: client.model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		Temperature:    client.temperature,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return inference.SuggestNameResponse{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return inference.SuggestNameResponse{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return inference.SuggestNameResponse{}, fmt.Errorf("empty response body or choices: %s", response.String())
	}

	content := responseBody.Choices[0].Message.Content
	if content == "" {
		return inference.SuggestNameResponse{}, fmt.Errorf("empty response content: %s", response.String())
	}
	slog.Default().Debug("openai response content",
		"keyword", params.Keyword,
		"content", content,
		"usage", responseBody.Usage,
	)

	decoded, err := inference.DecodeSuggestion(content)
	if err != nil {
		slog.Default().Error("Failed to parse OpenAI response",
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
		SetBody(EmbeddingRequest{
			Model: client.embeddingModel,
			Input: texts,
		}).
		SetResult(&EmbeddingResponse{}).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*EmbeddingResponse)
	if responseBody == nil || len(responseBody.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings: %s", len(texts), response.String())
	}

	data := responseBody.Data
	sort.Slice(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})
	vectors := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
