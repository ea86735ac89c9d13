package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"toacrd.app/oracle/common/logger"
	"toacrd.app/oracle/internal/queue"
)

type Config struct {
	MaxAttempts  int
	AnswerStream string // used when a question names no reply_to stream
}

// Worker answers questions read from the question stream and publishes each
// answer, error text included, to the answer stream.
type Worker struct {
	consumer  Consumer
	answerer  Answerer
	publisher Publisher
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, answerer Answerer, publisher Publisher, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		answerer:  answerer,
		publisher: publisher,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "oracle.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"user_id", msg.UserID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"user_id", msg.UserID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage answers one question and acks it once the answer is
// published. Exported so the reclaimer can reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msg.ID,
		UserID:    &msg.UserID,
	})
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_question")
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt)

	rep := w.answerer.Ask(ctx, msg.UserID, msg.Question)

	stream := msg.ReplyTo
	if stream == "" {
		stream = w.cfg.AnswerStream
	}
	if err := w.publisher.Publish(ctx, stream, queue.Answer{
		QuestionID: msg.ID,
		RequestID:  rep.RequestID,
		UserID:     msg.UserID,
		Answer:     rep.Answer,
		Model:      rep.Model,
		Failed:     rep.Failed,
	}); err != nil {
		sc.RecordError(err)
		return fmt.Errorf("publishing answer: %w", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Log but don't fail - message will be reclaimed but that's safe
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"user_id", msg.UserID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"user_id", msg.UserID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
