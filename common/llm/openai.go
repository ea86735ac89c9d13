package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openaiClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

func newOpenAIClient(cfg Config) *openaiClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by the resilient wrapper
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openaiClient{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *openaiClient) params(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokensOr(req.MaxTokens, c.maxTokens))),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.User != "" {
		params.User = openai.String(SanitizeName(req.User))
	}
	return params
}

func (c *openaiClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyCompletion
	}

	slog.DebugContext(ctx, "llm completion finished",
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason)

	return &Completion{
		Text: resp.Choices[0].Message.Content,
		Response: Response{
			Model:            c.servedModel(resp.Model),
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (c *openaiClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	params := c.params(req)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        req.SchemaName,
				Description: openai.String("Structured response schema"),
				Schema:      req.Schema,
				Strict:      openai.Bool(true),
			},
		},
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	slog.DebugContext(ctx, "llm structured chat finished",
		"model", resp.Model,
		"schema", req.SchemaName,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w: %w", ErrMalformedResponse, err)
	}

	return &Response{
		Model:            c.servedModel(resp.Model),
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (c *openaiClient) Model() string {
	return c.model
}

// servedModel prefers the model id echoed by the API (it carries the snapshot date).
func (c *openaiClient) servedModel(echoed string) string {
	if echoed != "" {
		return echoed
	}
	return c.model
}
