package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/invopop/jsonschema"
)

var nameInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var (
	ErrMissingAPIKey   = errors.New("API key is required")
	ErrEmptyCompletion = errors.New("completion returned no content")
	ErrUnknownProvider = errors.New("unsupported LLM provider")

	// ErrMalformedResponse wraps structured output that does not decode into the target.
	ErrMalformedResponse = errors.New("malformed structured response")
)

// Config holds LLM client configuration.
type Config struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string // Required: API key for the provider
	BaseURL   string // Optional: custom API endpoint
	Model     string // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5")
	MaxTokens int    // Default completion budget when a request leaves it unset
}

// Client is the completion service: one system + user exchange per call.
type Client interface {
	// Complete returns free-form generated text.
	Complete(ctx context.Context, req Request) (*Completion, error)
	// Chat decodes a JSON answer constrained by req.Schema into result.
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	User         string // end-user identifier forwarded for abuse monitoring
	SchemaName   string // Chat only
	Schema       any    // Chat only
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

type Response struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Completion is the text produced by Complete along with the model that served it.
type Completion struct {
	Text string
	Response
}

// ServiceError is returned once a completion call has failed for good.
type ServiceError struct {
	Provider  string
	Model     string
	Attempts  int
	Retryable bool
	Err       error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s completion (model=%s, attempts=%d): %v", e.Provider, e.Model, e.Attempts, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// New creates a Client for cfg.Provider. Defaults to OpenAI.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}

// SanitizeName converts a user identifier to a valid OpenAI name parameter.
// The name must match ^[a-zA-Z0-9_-]{1,64}$.
func SanitizeName(username string) string {
	sanitized := nameInvalidChars.ReplaceAllString(username, "_")
	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	return sanitized
}

func maxTokensOr(req, fallback int) int {
	if req > 0 {
		return req
	}
	if fallback > 0 {
		return fallback
	}
	return 1024
}
