package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Question is what a host enqueues to get an answer asynchronously.
type Question struct {
	UserID   string
	Question string
	ReplyTo  string
	TraceID  string
}

// Answer is published once a question has been handled, error text included.
type Answer struct {
	QuestionID string // stream id of the question message
	RequestID  string
	UserID     string
	Answer     string
	Model      string
	Failed     bool
}

type Producer interface {
	Enqueue(ctx context.Context, q Question) (string, error)
	Publish(ctx context.Context, stream string, a Answer) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewRedisProducer enqueues questions on stream and publishes answers on
// whatever stream each call names.
func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, q Question) (string, error) {
	values := messageValues(Message{
		UserID:   q.UserID,
		Question: q.Question,
		ReplyTo:  q.ReplyTo,
		TraceID:  q.TraceID,
	}, 1)

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue question: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued question", "message_id", id, "user_id", q.UserID)
	return id, nil
}

func (p *redisProducer) Publish(ctx context.Context, stream string, a Answer) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: answerValues(a),
	}).Err(); err != nil {
		return fmt.Errorf("publish answer (stream=%s): %w", stream, err)
	}

	p.logger.InfoContext(ctx, "published answer", "stream", stream, "question_id", a.QuestionID, "failed", a.Failed)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func answerValues(a Answer) map[string]any {
	return map[string]any{
		"question_id": a.QuestionID,
		"request_id":  a.RequestID,
		"user_id":     a.UserID,
		"answer":      a.Answer,
		"model":       a.Model,
		"failed":      a.Failed,
	}
}
