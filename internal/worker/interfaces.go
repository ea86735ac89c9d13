package worker

import (
	"context"

	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Answerer is the question answering pipeline.
type Answerer interface {
	Ask(ctx context.Context, userID, question string) brain.Report
}

// Publisher delivers answers back to the host.
type Publisher interface {
	Publish(ctx context.Context, stream string, a queue.Answer) error
}
