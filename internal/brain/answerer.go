package brain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"toacrd.app/oracle/common/llm"
	"toacrd.app/oracle/common/logger"
	"toacrd.app/oracle/common/metrics"
)

// ErrorMarker prefixes every user-visible failure so hosts can tell it apart
// from an answer.
const ErrorMarker = "❌"

type State string

const (
	StateDrafting      State = "drafting"
	StateReformulating State = "reformulating"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Answer is the outcome of one run of the answer pipeline.
type Answer struct {
	Text  string
	Model string // empty when drafting failed
	State State
	Draft string
	// Reformulated is false when reformulation is disabled or fell back to the draft.
	Reformulated bool
	Err          error
}

// Answerer drafts a grounded answer, then asks the model to restate it.
// Failures never escape: a failed draft becomes marked error text and a
// failed reformulation falls back to the draft.
type Answerer struct {
	llm         llm.Client
	reformulate bool
}

func NewAnswerer(client llm.Client, reformulate bool) *Answerer {
	return &Answerer{llm: client, reformulate: reformulate}
}

func (a *Answerer) Run(ctx context.Context, userID string, prompt Prompt) Answer {
	ans := Answer{State: StateDrafting}

	draft, err := a.complete(ctx, "draft", userID, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "draft completion failed", "error", err)
		metrics.RecordCompletionError("draft")
		ans.State = StateFailed
		ans.Err = err
		ans.Text = FormatError("Erreur", err)
		return ans
	}
	ans.Draft = draft.Text
	ans.Text = draft.Text
	ans.Model = draft.Model

	if !a.reformulate {
		ans.State = StateDone
		return ans
	}

	ans.State = StateReformulating
	final, err := a.complete(ctx, "reformulate", userID, Reformulation(draft.Text))
	if err != nil {
		slog.WarnContext(ctx, "reformulation failed, answering with the draft", "error", err)
		metrics.RecordCompletionError("reformulate")
		ans.State = StateDone
		ans.Err = err
		return ans
	}

	ans.Text = final.Text
	ans.Model = final.Model
	ans.Reformulated = true
	ans.State = StateDone
	return ans
}

func (a *Answerer) complete(ctx context.Context, stage, userID string, p Prompt) (*llm.Completion, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr(stage)})
	sc := logger.StartSpan(ctx, "brain."+stage)
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	defer metrics.ObserveStage(stage, start)

	out, err := a.llm.Complete(ctx, llm.Request{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		User:         userID,
	})
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}

	metrics.RecordTokens(out.PromptTokens, out.CompletionTokens)
	sc.SetInt("completion_tokens", out.CompletionTokens)
	slog.DebugContext(ctx, "completion received",
		"model", out.Model,
		"latency_ms", time.Since(start).Milliseconds(),
		"preview", logger.Truncate(out.Text, 120))
	return out, nil
}

// FormatError renders a user-visible failure: "❌ <label> : <err>".
func FormatError(label string, err any) string {
	return fmt.Sprintf("%s %s : %v", ErrorMarker, label, err)
}
