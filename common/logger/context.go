package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every log line emitted with the carrying context.
type LogFields struct {
	UserID    *string // Caller-supplied user identifier
	RequestID *string // One id per answered question
	MessageID *string // Redis stream message ID
	Stage     *string // Pipeline stage (e.g., "draft", "reformulate")
	Component string  // Component name (OTel semantic convention style, e.g., "oracle.brain.orchestrator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields carried by ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.UserID != nil {
		result.UserID = new.UserID
	}
	if new.RequestID != nil {
		result.RequestID = new.RequestID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Stage != nil {
		result.Stage = new.Stage
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate shortens s to at most maxLen runes, appending "..." if truncated.
// Used when logging questions and model output.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
