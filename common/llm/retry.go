package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"golang.org/x/time/rate"
)

func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	if errors.Is(err, ErrEmptyCompletion) {
		return true
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, ErrMalformedResponse) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		slog.ErrorContext(ctx, "llm response does not decode, not retryable", "error", err)
		return false
	}

	status := 0
	var oaiErr *openai.Error
	var antErr *anthropic.Error
	switch {
	case errors.As(err, &oaiErr):
		status = oaiErr.StatusCode
	case errors.As(err, &antErr):
		status = antErr.StatusCode
	default:
		// no API response, treat as a transport failure
		slog.WarnContext(ctx, "llm network error, will retry", "error", err)
		return true
	}

	switch {
	case status == 429:
		slog.WarnContext(ctx, "llm rate limited, will retry", "status_code", status)
		return true
	case status >= 500:
		slog.WarnContext(ctx, "llm server error, will retry", "status_code", status)
		return true
	default:
		slog.ErrorContext(ctx, "llm client error, not retryable", "status_code", status)
		return false
	}
}

type ResilienceConfig struct {
	Timeout       time.Duration // per attempt; 0 = caller's deadline only
	MaxAttempts   int
	RatePerMinute int // 0 = unlimited
	BaseBackoff   time.Duration
	Provider      string
}

// resilientClient bounds every call with a timeout, a shared rate limit and
// exponential backoff (base, 2*base, 4*base...) on retryable failures.
type resilientClient struct {
	next    Client
	cfg     ResilienceConfig
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewResilient(next Client, cfg ResilienceConfig) Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}

	c := &resilientClient{next: next, cfg: cfg, sleep: sleepCtx}
	if cfg.RatePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	return c
}

func (c *resilientClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	var out *Completion
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.next.Complete(ctx, req)
		return err
	})
	return out, err
}

func (c *resilientClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	var out *Response
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.next.Chat(ctx, req, result)
		return err
	})
	return out, err
}

func (c *resilientClient) Model() string {
	return c.next.Model()
}

func (c *resilientClient) do(ctx context.Context, call func(context.Context) error) error {
	var err error
	attempt := 0
	for attempt < c.cfg.MaxAttempts {
		attempt++

		if c.limiter != nil {
			if werr := c.limiter.Wait(ctx); werr != nil {
				err = werr
				break
			}
		}

		err = c.attempt(ctx, call)
		if err == nil {
			return nil
		}
		// the caller's context ending is final; a per-attempt timeout is not
		if ctx.Err() != nil || !c.retryable(ctx, err) {
			break
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		backoff := c.cfg.BaseBackoff * time.Duration(1<<(attempt-1))
		slog.WarnContext(ctx, "llm call retry",
			"model", c.next.Model(),
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			"error", err)
		if serr := c.sleep(ctx, backoff); serr != nil {
			break
		}
	}

	return &ServiceError{
		Provider:  c.cfg.Provider,
		Model:     c.next.Model(),
		Attempts:  attempt,
		Retryable: IsRetryable(ctx, err),
		Err:       err,
	}
}

func (c *resilientClient) attempt(ctx context.Context, call func(context.Context) error) error {
	if c.cfg.Timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return call(attemptCtx)
}

func (c *resilientClient) retryable(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return IsRetryable(ctx, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
