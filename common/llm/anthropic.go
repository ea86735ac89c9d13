package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func newAnthropicClient(cfg Config) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}

	return &anthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *anthropicClient) send(ctx context.Context, req Request, system string) (*anthropic.Message, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokensOr(req.MaxTokens, c.maxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	// Anthropic takes the system prompt outside the message list.
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.User != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(SanitizeName(req.User))}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	slog.DebugContext(ctx, "llm completion finished",
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason)

	return resp, nil
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	resp, err := c.send(ctx, req, req.SystemPrompt)
	if err != nil {
		return nil, err
	}

	text := messageText(resp)
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	return &Completion{Text: text, Response: c.response(resp)}, nil
}

// Chat asks for JSON through the system prompt since the Messages API has no
// response_format equivalent.
func (c *anthropicClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	system := req.SystemPrompt + "\n\nRespond with a single JSON object matching this JSON schema and nothing else:\n" + string(schema)
	resp, err := c.send(ctx, req, system)
	if err != nil {
		return nil, err
	}

	text := stripCodeFence(messageText(resp))
	if text == "" {
		return nil, ErrEmptyCompletion
	}
	if err := json.Unmarshal([]byte(text), result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w: %w", ErrMalformedResponse, err)
	}

	r := c.response(resp)
	return &r, nil
}

func (c *anthropicClient) Model() string {
	return c.model
}

func (c *anthropicClient) response(resp *anthropic.Message) Response {
	model := string(resp.Model)
	if model == "" {
		model = c.model
	}
	return Response{
		Model:            model,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}
}

func messageText(resp *anthropic.Message) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// stripCodeFence removes a ```json ... ``` wrapper some models add around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
